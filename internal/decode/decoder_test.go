package decode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bitswitch/internal/domain"
	"go.uber.org/zap"
)

// encodeWAV writes interleaved 16-bit samples to a temp file and returns its bytes
func encodeWAV(t *testing.T, sampleRate, channels int, samples []int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestDecodeWAV_Stereo(t *testing.T) {
	data := encodeWAV(t, 48000, 2, []int{16384, -16384, 0, 8192, -32768, 32767})

	decoded, err := DecodeWAV(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 48000, decoded.SampleRate)
	assert.Equal(t, 2, decoded.Channels)
	assert.Equal(t, 3, decoded.Frames())
	assert.InDeltaSlice(t, []float32{0.5, 0, -1}, decoded.Left, 1e-4)
	assert.InDeltaSlice(t, []float32{-0.5, 0.25, 0.99997}, decoded.Right, 1e-4)
	assert.False(t, decoded.IsMono())
}

func TestDecodeWAV_MonoAliasesRight(t *testing.T) {
	data := encodeWAV(t, 48000, 1, []int{100, 200, 300, 400})

	decoded, err := DecodeWAV(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, decoded.Channels)
	assert.Equal(t, decoded.Left, decoded.Right)
	assert.True(t, domain.SameBacking(decoded.Left, decoded.Right), "mono right must share the left backing array")
}

func TestDecodeWAV_Invalid(t *testing.T) {
	_, err := DecodeWAV(context.Background(), []byte("not a wav file at all"))
	assert.Error(t, err)
}

func TestDecodeWAV_RejectsFloatFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 48000, 32, 1, 3)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 48000},
		Data:           []int{1, 2, 3, 4},
		SourceBitDepth: 32,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = DecodeWAV(context.Background(), data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not integer PCM")
}

func TestPCMScale(t *testing.T) {
	scale, err := pcmScale(16)
	require.NoError(t, err)
	assert.Equal(t, float32(32768), scale)

	scale, err = pcmScale(8)
	require.NoError(t, err)
	assert.Equal(t, float32(128), scale)

	for _, depth := range []int{0, -1, 4, 64} {
		_, err := pcmScale(depth)
		assert.Error(t, err, "depth %d", depth)
	}
}

func TestDeinterleave_DropsExtraChannels(t *testing.T) {
	decoded, err := deinterleave([]float32{1, 2, 3, 4, 5, 6}, 3, 48000)
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 4}, decoded.Left)
	assert.Equal(t, []float32{2, 5}, decoded.Right)
	assert.Equal(t, 2, decoded.Channels)
}

func TestOpusChannels(t *testing.T) {
	head := append([]byte("OggS....OpusHead"), 1, 2, 0x38, 0x01)
	channels, err := opusChannels(head)
	require.NoError(t, err)
	assert.Equal(t, 2, channels)

	_, err = opusChannels([]byte("OggS no header"))
	assert.Error(t, err)
}

func TestContext_DispatchesByContainer(t *testing.T) {
	ctx := NewContext(Options{SampleRate: 48000, Concurrency: 2, FFmpegBinary: "ffmpeg"}, zap.NewNop())
	data := encodeWAV(t, 48000, 1, []int{1, 2, 3})

	decoded, err := ctx.Decode(context.Background(), ".WAV", data)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Frames())

	assert.False(t, ctx.NeedsFFmpeg("wav"))
	assert.False(t, ctx.NeedsFFmpeg("mp3"))
	assert.True(t, ctx.NeedsFFmpeg("webm"))
}

func TestContext_RejectsSampleRateMismatch(t *testing.T) {
	ctx := NewContext(Options{SampleRate: 48000, Concurrency: 1}, zap.NewNop())
	data := encodeWAV(t, 44100, 2, []int{1, 2})

	_, err := ctx.Decode(context.Background(), "wav", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "44100")
}

func TestContext_MissingFFmpeg(t *testing.T) {
	ctx := NewContext(Options{SampleRate: 48000, Concurrency: 1, FFmpegBinary: "/nonexistent/ffmpeg-bitswitch"}, zap.NewNop())

	assert.False(t, ctx.FFmpegAvailable())
	_, err := ctx.Decode(context.Background(), "webm", []byte{0x1a, 0x45, 0xdf, 0xa3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestContext_BoundsConcurrency(t *testing.T) {
	ctx := NewContext(Options{SampleRate: 48000, Concurrency: 2}, zap.NewNop())

	var running, peak int32
	ctx.Register("slow", DecoderFunc(func(ctx context.Context, data []byte) (*domain.DecodedAudio, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return domain.NewDecodedAudio([][]float32{{0}}, 48000)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ctx.Decode(context.Background(), "slow", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestContext_AcquireHonoursCancellation(t *testing.T) {
	ctx := NewContext(Options{SampleRate: 48000, Concurrency: 1}, zap.NewNop())
	release := make(chan struct{})
	ctx.Register("block", DecoderFunc(func(ctx context.Context, data []byte) (*domain.DecodedAudio, error) {
		<-release
		return nil, errors.New("released")
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx.Decode(context.Background(), "block", nil)
	}()
	time.Sleep(10 * time.Millisecond)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ctx.Decode(cancelled, "block", nil)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done
}
