package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yourusername/bitswitch/internal/domain"
	"github.com/yourusername/bitswitch/internal/infrastructure"
	"go.uber.org/zap"
)

// FFmpegDecoder decodes any container ffmpeg understands by piping the
// buffer through stdin and reading raw float32 PCM at the target rate.
type FFmpegDecoder struct {
	binary     string
	probe      string
	sampleRate int
	logger     *zap.Logger
}

// NewFFmpegDecoder creates an ffmpeg-backed decoder
func NewFFmpegDecoder(binary string, sampleRate int, logger *zap.Logger) *FFmpegDecoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	probe := "ffprobe"
	if dir := filepath.Dir(binary); dir != "." {
		probe = filepath.Join(dir, "ffprobe")
	}
	return &FFmpegDecoder{
		binary:     binary,
		probe:      probe,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// Available reports whether the ffmpeg binary can be found
func (d *FFmpegDecoder) Available() bool {
	_, err := exec.LookPath(d.binary)
	return err == nil
}

// Decode runs ffmpeg over data
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*domain.DecodedAudio, error) {
	if !d.Available() {
		return nil, fmt.Errorf("ffmpeg binary %q not found", d.binary)
	}

	channels := d.probeChannels(ctx, data)

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(d.sampleRate),
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	}
	d.logger.Debug("Running ffmpeg", zap.String("command", infrastructure.ShellEscapeCommand(d.binary, args...)))

	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	samples := make([]float32, len(out)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
	}

	return deinterleave(samples, channels, d.sampleRate)
}

// probeChannels asks ffprobe for the source channel count.
// Mono stays mono; anything else is mixed to stereo.
func (d *FFmpegDecoder) probeChannels(ctx context.Context, data []byte) int {
	cmd := exec.CommandContext(ctx, d.probe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=channels",
		"-of", "csv=p=0",
		"pipe:0",
	)
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		d.logger.Debug("ffprobe unavailable, assuming stereo", zap.Error(err))
		return 2
	}
	if n, err := strconv.Atoi(strings.TrimSpace(string(out))); err == nil && n == 1 {
		return 1
	}
	return 2
}
