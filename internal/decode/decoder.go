package decode

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourusername/bitswitch/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Decoder turns one fully buffered container into planar float32 audio
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*domain.DecodedAudio, error)
}

// DecoderFunc adapts a function to Decoder
type DecoderFunc func(ctx context.Context, data []byte) (*domain.DecodedAudio, error)

// Decode calls f
func (f DecoderFunc) Decode(ctx context.Context, data []byte) (*domain.DecodedAudio, error) {
	return f(ctx, data)
}

// Options configures a decoding context
type Options struct {
	SampleRate   int
	Concurrency  int
	FFmpegBinary string
}

// Context is the shared decoding context of one player. It owns the target
// sample rate and bounds how many decodes run at once.
type Context struct {
	sampleRate int
	sem        *semaphore.Weighted
	decoders   map[string]Decoder
	fallback   Decoder
	logger     *zap.Logger
}

// NewContext creates a decoding context with the built-in container decoders
func NewContext(opts Options, logger *zap.Logger) *Context {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	ff := NewFFmpegDecoder(opts.FFmpegBinary, opts.SampleRate, logger)

	return &Context{
		sampleRate: opts.SampleRate,
		sem:        semaphore.NewWeighted(int64(opts.Concurrency)),
		decoders: map[string]Decoder{
			"wav":  DecoderFunc(DecodeWAV),
			"wave": DecoderFunc(DecodeWAV),
			"mp3":  DecoderFunc(DecodeMP3),
			"opus": DecoderFunc(DecodeOpus),
			"ogg":  DecoderFunc(DecodeOpus),
		},
		fallback: ff,
		logger:   logger,
	}
}

// SampleRate returns the rate every decoded variant must match
func (c *Context) SampleRate() int {
	return c.sampleRate
}

// Register overrides the decoder used for a container
func (c *Context) Register(container string, d Decoder) {
	c.decoders[normalize(container)] = d
}

// NeedsFFmpeg reports whether container is decoded through ffmpeg
func (c *Context) NeedsFFmpeg(container string) bool {
	_, ok := c.decoders[normalize(container)]
	return !ok
}

// FFmpegAvailable reports whether the ffmpeg fallback can run
func (c *Context) FFmpegAvailable() bool {
	ff, ok := c.fallback.(*FFmpegDecoder)
	return ok && ff.Available()
}

// Decode decodes data according to its container
func (c *Context) Decode(ctx context.Context, container string, data []byte) (*domain.DecodedAudio, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	d, ok := c.decoders[normalize(container)]
	if !ok {
		d = c.fallback
	}

	audio, err := d.Decode(ctx, data)
	if err != nil {
		return nil, err
	}
	if c.sampleRate > 0 && audio.SampleRate != c.sampleRate {
		return nil, fmt.Errorf("sample rate %d Hz does not match context rate %d Hz", audio.SampleRate, c.sampleRate)
	}
	return audio, nil
}

func normalize(container string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(container), "."))
}
