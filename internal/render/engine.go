package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/bitswitch/internal/domain"
	"github.com/yourusername/bitswitch/internal/handoff"
	"github.com/yourusername/bitswitch/internal/metrics"
	"go.uber.org/zap"
)

// Config configures the real-time engine
type Config struct {
	SampleRate      int
	FramesPerBuffer int
	LoopStart       time.Duration
}

// Engine binds a Switcher to an output device and implements handoff.Renderer
type Engine struct {
	config   Config
	switcher *Switcher
	device   Device
	logger   *zap.Logger

	mu        sync.Mutex
	ready     chan struct{}
	started   bool
	readyOnce sync.Once
}

// NewEngine creates an engine for device
func NewEngine(device Device, config Config, logger *zap.Logger) *Engine {
	return &Engine{
		config:   config,
		switcher: NewSwitcher(config.SampleRate, config.LoopStart),
		device:   device,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Start opens the output device. The engine starts suspended.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := e.device.Open(e.config.SampleRate, e.config.FramesPerBuffer, e.switcher.Process); err != nil {
		return &domain.StartupError{Reason: "audio output unavailable", Err: err}
	}
	e.started = true
	e.readyOnce.Do(func() { close(e.ready) })

	e.logger.Info("Audio engine started",
		zap.Int("sample_rate", e.config.SampleRate),
		zap.Int("frames_per_buffer", e.config.FramesPerBuffer))
	return nil
}

// Close releases the output device
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}
	e.started = false
	return e.device.Close()
}

// Ready is closed once the device is open
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Load installs the delivered variants
func (e *Engine) Load(entries []handoff.Entry) error {
	tracks := make([]track, len(entries))
	for i, entry := range entries {
		if len(entry.Left) != len(entry.Right) {
			return fmt.Errorf("variant %s: channel length mismatch", entry.BitrateLabel)
		}
		tracks[i] = track{left: entry.Left, right: entry.Right}
	}
	e.switcher.Install(tracks)
	return nil
}

// ScheduleVariant queues a switch for the audio thread
func (e *Engine) ScheduleVariant(index int, at time.Duration) {
	e.switcher.Schedule(index, at)
	metrics.VariantSwitches.Inc()
}

// CurrentTime returns the renderer clock
func (e *Engine) CurrentTime() time.Duration {
	return e.switcher.CurrentTime()
}

// Resume starts producing audio
func (e *Engine) Resume() {
	e.switcher.Resume()
}

// Suspend silences output and freezes the clock
func (e *Engine) Suspend() {
	e.switcher.Suspend()
}

// SampleRate returns the output rate
func (e *Engine) SampleRate() int {
	return e.config.SampleRate
}

// Active returns the variant being rendered, or -1
func (e *Engine) Active() int {
	return e.switcher.Active()
}

var _ handoff.Renderer = (*Engine)(nil)
