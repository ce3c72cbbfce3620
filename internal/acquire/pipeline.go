package acquire

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/yourusername/bitswitch/internal/domain"
	"github.com/yourusername/bitswitch/internal/fetch"
	"github.com/yourusername/bitswitch/internal/handoff"
	"github.com/yourusername/bitswitch/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher opens the body of one variant as a chunk stream
type Fetcher interface {
	Fetch(ctx context.Context, variant domain.Variant, tracker domain.ProgressTracker) (*fetch.ChunkStream, error)
}

// Decoder decodes a buffered container
type Decoder interface {
	Decode(ctx context.Context, container string, data []byte) (*domain.DecodedAudio, error)
}

// Entry is the outcome for one variant. Audio is nil once the batch
// has been built.
type Entry struct {
	Variant  domain.Variant
	FileSize int64
	Frames   int
	Audio    *domain.DecodedAudio
}

// Result holds every decoded variant in input order
type Result struct {
	Entries  []Entry
	Duration time.Duration

	once  sync.Once
	batch *handoff.Batch
}

// TotalBytes returns the sum of declared variant sizes
func (r *Result) TotalBytes() int64 {
	var total int64
	for _, e := range r.Entries {
		total += e.FileSize
	}
	return total
}

// Batch builds the transfer batch. It is constructed once; later calls
// return the same batch. The sample memory moves into the batch and the
// result keeps only metadata.
func (r *Result) Batch() *handoff.Batch {
	r.once.Do(func() {
		entries := make([]handoff.Entry, len(r.Entries))
		for i := range r.Entries {
			e := &r.Entries[i]
			entries[i] = handoff.Entry{
				BitrateLabel:     e.Variant.BitrateLabel,
				DeclaredByteSize: e.FileSize,
				SampleRate:       e.Audio.SampleRate,
				Left:             e.Audio.Left,
				Right:            e.Audio.Right,
			}
			e.Audio = nil
		}
		r.batch = handoff.NewBatch(entries)
	})
	return r.batch
}

// Pipeline fetches and decodes all variants of a track in parallel
type Pipeline struct {
	fetcher Fetcher
	decoder Decoder
	logger  *zap.Logger
}

// NewPipeline creates a new acquisition pipeline
func NewPipeline(fetcher Fetcher, decoder Decoder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		decoder: decoder,
		logger:  logger,
	}
}

// Acquire runs fetch and decode for every variant. The first failure
// cancels the others and is returned alone; no partial result is produced.
func (p *Pipeline) Acquire(ctx context.Context, variants []domain.Variant, tracker domain.ProgressTracker) (*Result, error) {
	start := time.Now()
	tracker = meteredTracker{inner: tracker}

	entries := make([]Entry, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range variants {
		g.Go(func() error {
			entry, err := p.acquireOne(gctx, v, tracker)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Warn("Acquisition failed",
			zap.Int("variants", len(variants)),
			zap.Error(err))
		return nil, err
	}

	result := &Result{
		Entries:  entries,
		Duration: time.Since(start),
	}
	metrics.AcquisitionDuration.Observe(result.Duration.Seconds())

	p.logger.Info("Acquisition completed",
		zap.Int("variants", len(entries)),
		zap.Int64("total_bytes", result.TotalBytes()),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *Pipeline) acquireOne(ctx context.Context, v domain.Variant, tracker domain.ProgressTracker) (Entry, error) {
	stream, err := p.fetcher.Fetch(ctx, v, tracker)
	if err != nil {
		return Entry{}, err
	}
	v.DeclaredByteSize = stream.DeclaredSize()

	data, err := fetch.ReadAll(stream)
	if err != nil {
		return Entry{}, err
	}

	audio, err := p.decoder.Decode(ctx, v.Container, data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Entry{}, err
		}
		return Entry{}, &domain.DecodeError{Variant: v.BitrateLabel, Err: err}
	}
	tracker.Report(domain.ProgressDelta{Decoded: 1})

	p.logger.Debug("Variant decoded",
		zap.String("bitrate", v.BitrateLabel),
		zap.Int("frames", audio.Frames()),
		zap.Int("channels", audio.Channels))

	return Entry{
		Variant:  v,
		FileSize: v.DeclaredByteSize,
		Frames:   audio.Frames(),
		Audio:    transferable(audio),
	}, nil
}

// transferable copies the channels once into memory owned by the result.
// A mono source is copied once and both handles keep pointing at the copy.
func transferable(a *domain.DecodedAudio) *domain.DecodedAudio {
	left := slices.Clone(a.Left)
	right := left
	if !a.IsMono() {
		right = slices.Clone(a.Right)
	}
	return &domain.DecodedAudio{
		Left:       left,
		Right:      right,
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
	}
}

// meteredTracker mirrors progress signals into the process metrics
type meteredTracker struct {
	inner domain.ProgressTracker
}

func (t meteredTracker) Register(size int64) {
	t.inner.Register(size)
}

func (t meteredTracker) Report(delta domain.ProgressDelta) {
	if delta.Bytes > 0 {
		metrics.BytesReceived.Add(float64(delta.Bytes))
	}
	if delta.Decoded > 0 {
		metrics.VariantsDecoded.Add(float64(delta.Decoded))
	}
	t.inner.Report(delta)
}
