package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bitswitch/internal/acquire"
	"github.com/yourusername/bitswitch/internal/domain"
	"github.com/yourusername/bitswitch/internal/render"
	"go.uber.org/zap"
)

const testRate = 1000

// fakeAcquirer fills variant i with the constant i+1
type fakeAcquirer struct {
	err  error
	slow string
}

func (f *fakeAcquirer) Acquire(ctx context.Context, variants []domain.Variant, tracker domain.ProgressTracker) (*acquire.Result, error) {
	if f.slow != "" && len(variants) > 0 && strings.Contains(variants[0].SourceLocator, "/"+f.slow+"/") {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}

	entries := make([]acquire.Entry, len(variants))
	for i, v := range variants {
		tracker.Register(100)
		tracker.Report(domain.ProgressDelta{Bytes: 100})

		samples := make([]float32, 16)
		for j := range samples {
			samples[j] = float32(i + 1)
		}
		audio, err := domain.NewDecodedAudio([][]float32{samples}, testRate)
		if err != nil {
			return nil, err
		}
		tracker.Report(domain.ProgressDelta{Decoded: 1})

		v.DeclaredByteSize = 100
		entries[i] = acquire.Entry{Variant: v, FileSize: 100, Audio: audio}
	}
	return &acquire.Result{Entries: entries}, nil
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[string]domain.Run
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[string]domain.Run)}
}

func (r *fakeRunRepo) Create(run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *fakeRunRepo) Update(run *domain.Run) error {
	return r.Create(run)
}

func (r *fakeRunRepo) FindByID(id string) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[id]; ok {
		return &run, nil
	}
	return nil, nil
}

func (r *fakeRunRepo) FindRecent(limit int) ([]*domain.Run, error) {
	return nil, nil
}

func (r *fakeRunRepo) GetStats() (*domain.RunStats, error) {
	return &domain.RunStats{}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	armed  []string
	failed []string
}

func (n *fakeNotifier) NotifyRunArmed(folder string, variants int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.armed = append(n.armed, folder)
}

func (n *fakeNotifier) NotifyRunFailed(folder string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, folder)
}

type recordingDisplay struct {
	mu       sync.Mutex
	percents []int
	complete int
	err      error
}

func (d *recordingDisplay) Render(percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.percents = append(d.percents, percent)
}

func (d *recordingDisplay) Complete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.complete++
}

func (d *recordingDisplay) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

type sessionFixture struct {
	session  *Session
	device   *render.ManualDevice
	engine   *render.Engine
	repo     *fakeRunRepo
	notifier *fakeNotifier
	display  *recordingDisplay
}

func newSessionFixture(t *testing.T, acquirer Acquirer, device *render.ManualDevice) *sessionFixture {
	t.Helper()

	config := domain.DefaultConfig()
	config.Library.BaseURL = "http://library.test/audio"
	config.Library.Bitrates = []string{"512", "64", "2"}
	config.Player.SampleRate = testRate
	config.Player.ProgressInterval = time.Millisecond

	engine := render.NewEngine(device, render.Config{SampleRate: testRate, FramesPerBuffer: 4}, zap.NewNop())
	t.Cleanup(func() { engine.Close() })

	f := &sessionFixture{
		device:   device,
		engine:   engine,
		repo:     newFakeRunRepo(),
		notifier: &fakeNotifier{},
		display:  &recordingDisplay{},
	}
	f.session = NewSession(config, acquirer, engine, f.repo, f.notifier, zap.NewNop())
	f.session.AttachDisplay(f.display)
	t.Cleanup(f.session.Close)
	return f
}

func TestSession_LoadArmsPlayback(t *testing.T) {
	f := newSessionFixture(t, &fakeAcquirer{}, &render.ManualDevice{})

	require.NoError(t, f.session.Load(context.Background(), "jazz"))

	status := f.session.Status()
	assert.Equal(t, StateArmed, status.State)
	assert.Equal(t, "jazz", status.Folder)
	assert.Equal(t, -1, status.Active)
	assert.Equal(t, 100, status.Percent)
	require.Len(t, status.Variants, 3)
	assert.Equal(t, VariantStatus{Index: 2, Bitrate: "2", Size: 100}, status.Variants[2])

	run, err := f.repo.FindByID(status.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunArmed, run.Status)
	assert.Equal(t, int64(300), run.TotalBytes)
	assert.Equal(t, []string{"jazz"}, f.notifier.armed)

	require.Eventually(t, func() bool {
		f.display.mu.Lock()
		defer f.display.mu.Unlock()
		return f.display.complete == 1
	}, time.Second, time.Millisecond)

	left, _, err := f.device.PumpBuffer()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, left, "armed output stays silent")
}

func TestSession_PlayPauseResume(t *testing.T) {
	f := newSessionFixture(t, &fakeAcquirer{}, &render.ManualDevice{})
	require.NoError(t, f.session.Load(context.Background(), "jazz"))

	require.NoError(t, f.session.Play(1))
	left, right, err := f.device.PumpBuffer()
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2, 2, 2}, left)
	assert.Equal(t, []float32{2, 2, 2, 2}, right)
	assert.Equal(t, StatePlaying, f.session.Status().State)
	assert.Equal(t, 1, f.session.Status().Active)

	require.NoError(t, f.session.Pause())
	left, _, err = f.device.PumpBuffer()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 0}, left)
	status := f.session.Status()
	assert.Equal(t, StateSuspended, status.State)
	assert.Equal(t, -1, status.Active)
	assert.Equal(t, 1, status.Last)

	require.NoError(t, f.session.Resume())
	left, _, err = f.device.PumpBuffer()
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2, 2, 2}, left)
	assert.Equal(t, 1, f.session.Status().Active)

	require.NoError(t, f.session.Play(2))
	left, _, err = f.device.PumpBuffer()
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3, 3, 3}, left)
}

func TestSession_PlaybackErrors(t *testing.T) {
	f := newSessionFixture(t, &fakeAcquirer{}, &render.ManualDevice{})

	assert.ErrorIs(t, f.session.Play(0), domain.ErrNotArmed)
	assert.ErrorIs(t, f.session.Pause(), domain.ErrNotArmed)
	assert.ErrorIs(t, f.session.Resume(), domain.ErrNotArmed)

	require.NoError(t, f.session.Load(context.Background(), "jazz"))

	assert.ErrorIs(t, f.session.Resume(), domain.ErrNoSelection)
	assert.ErrorIs(t, f.session.Play(3), domain.ErrVariantOutOfRange)
	assert.ErrorIs(t, f.session.Play(-1), domain.ErrVariantOutOfRange)
	assert.Equal(t, StateArmed, f.session.Status().State)
}

func TestSession_LoadFailure(t *testing.T) {
	cause := &domain.NetworkError{Variant: "64", StatusCode: 404, Err: errors.New("Not Found")}
	f := newSessionFixture(t, &fakeAcquirer{err: cause}, &render.ManualDevice{})

	err := f.session.Load(context.Background(), "jazz")

	require.Error(t, err)
	assert.True(t, domain.IsNetworkError(err))

	status := f.session.Status()
	assert.Equal(t, StateFailed, status.State)
	assert.Contains(t, status.Error, "status 404")

	run, _ := f.repo.FindByID(status.RunID)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Equal(t, []string{"jazz"}, f.notifier.failed)

	require.Eventually(t, func() bool {
		f.display.mu.Lock()
		defer f.display.mu.Unlock()
		return f.display.err != nil
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.session.Play(0), domain.ErrNotArmed)
}

func TestSession_AudioOutputUnavailable(t *testing.T) {
	device := &render.ManualDevice{OpenErr: errors.New("no default output device")}
	f := newSessionFixture(t, &fakeAcquirer{}, device)

	err := f.session.Load(context.Background(), "jazz")

	require.Error(t, err)
	assert.True(t, domain.IsStartupError(err))
	assert.Equal(t, StateFailed, f.session.Status().State)
}

// lateFailDevice fails to open only after a delay
type lateFailDevice struct {
	delay time.Duration
	err   error
}

func (d *lateFailDevice) Open(sampleRate, framesPerBuffer int, cb render.Callback) error {
	time.Sleep(d.delay)
	return d.err
}

func (d *lateFailDevice) Close() error { return nil }

func TestSession_OutputFailureAfterAcquisitionReachesDisplays(t *testing.T) {
	config := domain.DefaultConfig()
	config.Library.BaseURL = "http://library.test/audio"
	config.Library.Bitrates = []string{"512", "64"}
	config.Player.SampleRate = testRate
	config.Player.ProgressInterval = time.Millisecond

	device := &lateFailDevice{delay: 100 * time.Millisecond, err: errors.New("no output device")}
	engine := render.NewEngine(device, render.Config{SampleRate: testRate, FramesPerBuffer: 4}, zap.NewNop())
	t.Cleanup(func() { engine.Close() })

	display := &recordingDisplay{}
	session := NewSession(config, &fakeAcquirer{}, engine, nil, nil, zap.NewNop())
	session.AttachDisplay(display)
	t.Cleanup(session.Close)

	err := session.Load(context.Background(), "jazz")
	require.Error(t, err)
	assert.True(t, domain.IsStartupError(err))

	require.Eventually(t, func() bool {
		display.mu.Lock()
		defer display.mu.Unlock()
		return display.err != nil
	}, time.Second, time.Millisecond)

	display.mu.Lock()
	defer display.mu.Unlock()
	assert.Equal(t, 1, display.complete, "acquisition finished before the output failed")
	assert.Contains(t, display.err.Error(), "audio output unavailable")
}

func TestSession_NewLoadAbandonsPrevious(t *testing.T) {
	f := newSessionFixture(t, &fakeAcquirer{slow: "slow"}, &render.ManualDevice{})

	first := make(chan error, 1)
	go func() {
		first <- f.session.Load(context.Background(), "slow")
	}()
	require.Eventually(t, func() bool {
		return f.session.Status().State == StateLoading
	}, time.Second, time.Millisecond)
	abandonedID := f.session.Status().RunID

	require.NoError(t, f.session.Load(context.Background(), "jazz"))
	assert.ErrorIs(t, <-first, ErrSuperseded)

	status := f.session.Status()
	assert.Equal(t, StateArmed, status.State)
	assert.Equal(t, "jazz", status.Folder)

	abandoned, _ := f.repo.FindByID(abandonedID)
	require.NotNil(t, abandoned)
	assert.Equal(t, domain.RunAbandoned, abandoned.Status)
}

func TestSession_LoadRejectsEmptyFolder(t *testing.T) {
	f := newSessionFixture(t, &fakeAcquirer{}, &render.ManualDevice{})

	assert.Error(t, f.session.Load(context.Background(), ""))
	assert.Equal(t, StateIdle, f.session.Status().State)
}
