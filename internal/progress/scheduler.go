package progress

import (
	"context"
	"sync"
	"time"
)

// FrameScheduler decouples emission from rendering. Emit only stores the
// latest fraction; a ticker forwards it to the displays once per frame.
type FrameScheduler struct {
	interval time.Duration

	// renderMu orders display calls; it is taken before mu
	renderMu sync.Mutex

	mu        sync.Mutex
	displays  []Display
	latest    float64
	dirty     bool
	failure   error
	failShown bool
	stopped   bool
	rendered  int

	done chan struct{}
}

// NewFrameScheduler creates a scheduler that renders every interval
func NewFrameScheduler(interval time.Duration, displays ...Display) *FrameScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &FrameScheduler{
		interval: interval,
		displays: append([]Display(nil), displays...),
		rendered: -1,
		done:     make(chan struct{}),
	}
}

// Attach adds a display
func (s *FrameScheduler) Attach(d Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays = append(s.displays, d)
}

// Emit coalesces the fraction into the single pending slot
func (s *FrameScheduler) Emit(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = fraction
	s.dirty = true
}

// Fail puts the displays into the error state on the next frame. Once the
// render loop has stopped, for example after showing completion, the
// failure is rendered immediately instead.
func (s *FrameScheduler) Fail(err error) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	if s.failure != nil {
		s.mu.Unlock()
		return
	}
	s.failure = err
	if !s.stopped {
		s.mu.Unlock()
		return
	}
	s.failShown = true
	displays := append([]Display(nil), s.displays...)
	s.mu.Unlock()

	for _, d := range displays {
		d.Fail(err)
	}
}

// Done is closed once a terminal state has been rendered
func (s *FrameScheduler) Done() <-chan struct{} {
	return s.done
}

// Run renders frames until a terminal state is shown or ctx is cancelled
func (s *FrameScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.frame() {
				close(s.done)
			}
			s.stop()
			return
		case <-ticker.C:
			if s.frame() {
				close(s.done)
				return
			}
		}
	}
}

// stop marks the loop as exited and renders a failure that arrived
// after the last frame
func (s *FrameScheduler) stop() {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	s.stopped = true
	failure := s.failure
	pending := failure != nil && !s.failShown
	if pending {
		s.failShown = true
	}
	displays := append([]Display(nil), s.displays...)
	s.mu.Unlock()

	if pending {
		for _, d := range displays {
			d.Fail(failure)
		}
	}
}

// frame renders the pending state and reports whether it was terminal.
// A terminal frame also stops the loop.
func (s *FrameScheduler) frame() bool {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	s.mu.Lock()
	displays := append([]Display(nil), s.displays...)
	failure := s.failure
	fraction, dirty := s.latest, s.dirty
	s.dirty = false
	percent := Percent(fraction)
	changed := dirty && percent != s.rendered
	if changed {
		s.rendered = percent
	}
	if failure != nil {
		s.failShown = true
		s.stopped = true
	} else if dirty && fraction >= 1 {
		s.stopped = true
	}
	s.mu.Unlock()

	if failure != nil {
		for _, d := range displays {
			d.Fail(failure)
		}
		return true
	}
	if changed {
		for _, d := range displays {
			d.Render(percent)
		}
	}
	if dirty && fraction >= 1 {
		for _, d := range displays {
			d.Complete()
		}
		return true
	}
	return false
}
