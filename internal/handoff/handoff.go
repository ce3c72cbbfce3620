package handoff

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/bitswitch/internal/domain"
	"go.uber.org/zap"
)

// Renderer is the real-time side of the handoff. Every method must return
// without waiting on the audio thread.
type Renderer interface {
	// Ready is closed once the renderer can accept a batch
	Ready() <-chan struct{}
	// Load installs the variant set
	Load(entries []Entry) error
	// ScheduleVariant selects a variant from the given renderer time on
	ScheduleVariant(index int, at time.Duration)
	// CurrentTime returns the renderer clock
	CurrentTime() time.Duration
	Resume()
	Suspend()
	SampleRate() int
}

// Handoff delivers one batch to a renderer and relays switch commands
type Handoff struct {
	renderer Renderer
	logger   *zap.Logger

	mu        sync.Mutex
	delivered bool
	count     int
}

// New creates a handoff bound to renderer
func New(renderer Renderer, logger *zap.Logger) *Handoff {
	return &Handoff{
		renderer: renderer,
		logger:   logger,
	}
}

// Deliver waits for the renderer and transfers the batch to it exactly once
func (h *Handoff) Deliver(ctx context.Context, batch *Batch) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.delivered {
		return domain.ErrBatchDelivered
	}

	select {
	case <-h.renderer.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	// Both cases may be ready at once; a cancelled run never takes its batch.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := batch.checkRate(h.renderer.SampleRate()); err != nil {
		return err
	}

	entries, err := batch.Take()
	if err != nil {
		return err
	}

	if err := h.renderer.Load(entries); err != nil {
		return fmt.Errorf("load variants into renderer: %w", err)
	}

	h.delivered = true
	h.count = len(entries)

	h.logger.Info("Variants handed to renderer", zap.Int("variants", h.count))
	return nil
}

// Delivered reports whether a batch has been loaded
func (h *Handoff) Delivered() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.delivered
}

// VariantCount returns the number of delivered variants
func (h *Handoff) VariantCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// SwitchTo selects variant index at the renderer's current time
func (h *Handoff) SwitchTo(index int) error {
	h.mu.Lock()
	delivered, count := h.delivered, h.count
	h.mu.Unlock()

	if !delivered {
		return domain.ErrNotArmed
	}
	if index < 0 || index >= count {
		return fmt.Errorf("%w: %d not in [0, %d)", domain.ErrVariantOutOfRange, index, count)
	}

	h.renderer.ScheduleVariant(index, h.renderer.CurrentTime())
	return nil
}

// Suspend pauses rendering
func (h *Handoff) Suspend() {
	h.renderer.Suspend()
}

// Resume continues rendering
func (h *Handoff) Resume() {
	h.renderer.Resume()
}
