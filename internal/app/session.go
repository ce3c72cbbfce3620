package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yourusername/bitswitch/internal/acquire"
	"github.com/yourusername/bitswitch/internal/domain"
	"github.com/yourusername/bitswitch/internal/handoff"
	"github.com/yourusername/bitswitch/internal/metrics"
	"github.com/yourusername/bitswitch/internal/progress"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by a load that was replaced by a newer one
var ErrSuperseded = errors.New("load superseded by a newer request")

// State represents the playback state of a session
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateArmed     State = "armed"
	StatePlaying   State = "playing"
	StateSuspended State = "suspended"
	StateFailed    State = "failed"
)

// Renderer is the real-time output a session drives
type Renderer interface {
	handoff.Renderer
	Start(ctx context.Context) error
}

// Acquirer fetches and decodes a variant set
type Acquirer interface {
	Acquire(ctx context.Context, variants []domain.Variant, tracker domain.ProgressTracker) (*acquire.Result, error)
}

// Notifier announces finished runs
type Notifier interface {
	NotifyRunArmed(folder string, variants int)
	NotifyRunFailed(folder string, err error)
}

// VariantStatus describes one loaded variant
type VariantStatus struct {
	Index   int    `json:"index"`
	Bitrate string `json:"bitrate"`
	Size    int64  `json:"size"`
}

// Status is a snapshot of the session
type Status struct {
	State    State           `json:"state"`
	Folder   string          `json:"folder,omitempty"`
	RunID    string          `json:"run_id,omitempty"`
	Active   int             `json:"active"`
	Last     int             `json:"last"`
	Variants []VariantStatus `json:"variants"`
	Progress progress.State  `json:"progress"`
	Percent  int             `json:"percent"`
	Error    string          `json:"error,omitempty"`
}

// Session owns one playback lifecycle: load a folder, arm the renderer,
// then switch between variants on request.
type Session struct {
	config   *domain.Config
	acquirer Acquirer
	renderer Renderer
	repo     domain.RunRepository
	notifier Notifier
	logger   *zap.Logger

	mu         sync.Mutex
	displays   []progress.Display
	state      State
	generation uint64
	cancel     context.CancelFunc
	run        *domain.Run
	aggregator *progress.Aggregator
	handoff    *handoff.Handoff
	variants   []VariantStatus
	active     int
	last       int
	lastErr    error
}

// NewSession creates a new session. repo and notifier may be nil.
func NewSession(
	config *domain.Config,
	acquirer Acquirer,
	renderer Renderer,
	repo domain.RunRepository,
	notifier Notifier,
	logger *zap.Logger,
) *Session {
	return &Session{
		config:   config,
		acquirer: acquirer,
		renderer: renderer,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
		active:   -1,
		last:     -1,
	}
}

// AttachDisplay adds a display that follows every future load
func (s *Session) AttachDisplay(d progress.Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays = append(s.displays, d)
}

// Load discards the current run and acquires every variant of folder.
// It returns once the renderer is armed or the run has failed.
func (s *Session) Load(ctx context.Context, folder string) error {
	lib := s.config.Library
	variants, err := domain.BuildVariants(lib.BaseURL, folder, lib.Container, lib.Bitrates)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.abandonLocked()
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.generation++
	gen := s.generation

	run := domain.NewRun(folder, len(variants))
	scheduler := progress.NewFrameScheduler(s.config.Player.ProgressInterval, s.displays...)
	aggregator := progress.NewAggregator(len(variants), scheduler)

	s.run = run
	s.aggregator = aggregator
	s.handoff = nil
	s.variants = nil
	s.state = StateLoading
	s.active, s.last = -1, -1
	s.lastErr = nil

	s.createRun(run)
	run.MarkAcquiring()
	s.saveRun(run)
	s.mu.Unlock()

	s.renderer.Suspend()
	go scheduler.Run(runCtx)

	s.logger.Info("Loading folder",
		zap.String("run_id", run.ID),
		zap.String("folder", folder),
		zap.Int("variants", len(variants)))

	h := handoff.New(s.renderer, s.logger)
	result, err := s.acquireAndStart(runCtx, variants, aggregator)
	if err == nil {
		err = h.Deliver(runCtx, result.Batch())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Info("Load superseded", zap.String("run_id", run.ID))
		return ErrSuperseded
	}

	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		run.MarkFailed(err)
		s.saveRun(run)
		scheduler.Fail(err)
		metrics.AcquisitionRuns.WithLabelValues(string(domain.RunFailed)).Inc()
		if s.notifier != nil {
			s.notifier.NotifyRunFailed(folder, err)
		}
		s.logger.Error("Load failed",
			zap.String("run_id", run.ID),
			zap.String("folder", folder),
			zap.Error(err))
		return fmt.Errorf("load %s: %w", folder, err)
	}

	s.handoff = h
	s.state = StateArmed
	s.variants = make([]VariantStatus, len(result.Entries))
	for i, e := range result.Entries {
		s.variants[i] = VariantStatus{Index: i, Bitrate: e.Variant.BitrateLabel, Size: e.FileSize}
	}
	run.MarkArmed(result.TotalBytes())
	s.saveRun(run)
	metrics.AcquisitionRuns.WithLabelValues(string(domain.RunArmed)).Inc()
	if s.notifier != nil {
		s.notifier.NotifyRunArmed(folder, len(result.Entries))
	}

	s.logger.Info("Playback armed",
		zap.String("run_id", run.ID),
		zap.String("folder", folder),
		zap.Int64("total_bytes", result.TotalBytes()),
		zap.Duration("duration", result.Duration))
	return nil
}

// acquireAndStart opens the renderer while the variants download
func (s *Session) acquireAndStart(ctx context.Context, variants []domain.Variant, tracker domain.ProgressTracker) (*acquire.Result, error) {
	var result *acquire.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.renderer.Start(gctx)
	})
	g.Go(func() error {
		r, err := s.acquirer.Acquire(gctx, variants, tracker)
		result = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// abandonLocked cancels the in-flight run, if any
func (s *Session) abandonLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.run != nil && !s.run.IsTerminal() {
		s.run.MarkAbandoned()
		s.saveRun(s.run)
		metrics.AcquisitionRuns.WithLabelValues(string(domain.RunAbandoned)).Inc()
		s.logger.Info("Run abandoned", zap.String("run_id", s.run.ID))
	}
}

// Play switches to variant index and resumes output
func (s *Session) Play(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handoff == nil {
		return domain.ErrNotArmed
	}
	if err := s.handoff.SwitchTo(index); err != nil {
		return err
	}
	s.handoff.Resume()
	s.state = StatePlaying
	s.active = index
	s.last = index

	s.logger.Debug("Playing variant",
		zap.Int("index", index),
		zap.String("bitrate", s.variants[index].Bitrate))
	return nil
}

// Pause suspends output and clears the selection
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handoff == nil {
		return domain.ErrNotArmed
	}
	s.handoff.Suspend()
	s.state = StateSuspended
	s.active = -1
	return nil
}

// Resume continues the last played variant
func (s *Session) Resume() error {
	s.mu.Lock()
	last := s.last
	armed := s.handoff != nil
	s.mu.Unlock()

	if !armed {
		return domain.ErrNotArmed
	}
	if last < 0 {
		return domain.ErrNoSelection
	}
	return s.Play(last)
}

// Status returns a snapshot of the session
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:    s.state,
		Active:   s.active,
		Last:     s.last,
		Variants: append([]VariantStatus{}, s.variants...),
	}
	if s.run != nil {
		st.Folder = s.run.Folder
		st.RunID = s.run.ID
	}
	if s.aggregator != nil {
		st.Progress = s.aggregator.Snapshot()
		st.Percent = progress.Percent(st.Progress.Fraction)
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

// Close cancels any in-flight run and suspends output
func (s *Session) Close() {
	s.mu.Lock()
	s.abandonLocked()
	s.generation++
	s.mu.Unlock()
	s.renderer.Suspend()
}

// createRun persists a new run; history failures never stop playback
func (s *Session) createRun(run *domain.Run) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(run); err != nil {
		s.logger.Warn("Failed to record run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *Session) saveRun(run *domain.Run) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Update(run); err != nil {
		s.logger.Warn("Failed to update run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
