package decode

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/yourusername/bitswitch/internal/domain"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV decodes an integer PCM RIFF/WAVE buffer
func DecodeWAV(_ context.Context, data []byte) (*domain.DecodedAudio, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("wav is not valid")
	}
	if f := decoder.WavAudioFormat; f != wavFormatPCM && f != wavFormatExtensible {
		return nil, fmt.Errorf("wav format %d is not integer PCM", f)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale, err := pcmScale(bitDepth)
	if err != nil {
		return nil, err
	}

	samples := make([]float32, len(buf.Data))
	if bitDepth == 8 {
		// 8-bit PCM is unsigned
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / scale
		}
	} else {
		for i, v := range buf.Data {
			samples[i] = float32(v) / scale
		}
	}

	return deinterleave(samples, decoder.Format().NumChannels, int(decoder.SampleRate))
}

// pcmScale returns the full-scale magnitude for a signed sample width
func pcmScale(bitDepth int) (float32, error) {
	if bitDepth < 8 || bitDepth > 32 {
		return 0, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}
	return float32(int64(1) << uint(bitDepth-1)), nil
}
