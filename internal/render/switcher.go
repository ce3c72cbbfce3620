package render

import (
	"sync/atomic"
	"time"
)

type commandKind int

const (
	cmdSchedule commandKind = iota
	cmdSuspend
	cmdResume
)

// command is a control message for the audio thread
type command struct {
	kind  commandKind
	index int
	at    int64 // renderer clock in frames
}

// commandBuffer bounds the number of queued control messages
const commandBuffer = 64

// track is one variant as seen by the audio thread
type track struct {
	left  []float32
	right []float32
}

// variantSet is installed once per batch and never mutated afterwards
type variantSet struct {
	tracks    []track
	length    int // frames of the shortest variant
	loopStart int
}

// Switcher is the real-time processor. Process runs on the audio thread
// and never allocates, locks, or blocks; every other method is safe to
// call from any goroutine.
type Switcher struct {
	sampleRate int
	loopStart  time.Duration

	set      atomic.Pointer[variantSet]
	commands chan command
	clock    atomic.Int64 // frames rendered while running
	dropped  atomic.Int64

	// audio thread state
	current    *variantSet
	position   int
	active     int
	running    bool
	hasPending bool
	pending    command
	activeSeen atomic.Int64 // mirror of active for observers
}

// NewSwitcher creates a processor for the given rate.
// loopStart is where playback wraps to after the shortest variant ends.
func NewSwitcher(sampleRate int, loopStart time.Duration) *Switcher {
	s := &Switcher{
		sampleRate: sampleRate,
		loopStart:  loopStart,
		commands:   make(chan command, commandBuffer),
		active:     -1,
	}
	s.activeSeen.Store(-1)
	return s
}

// SampleRate returns the processing rate
func (s *Switcher) SampleRate() int {
	return s.sampleRate
}

// Install swaps in a new variant set. Position and selection reset on the
// next block.
func (s *Switcher) Install(tracks []track) {
	length := -1
	for _, t := range tracks {
		if length < 0 || len(t.left) < length {
			length = len(t.left)
		}
	}
	if length < 0 {
		length = 0
	}

	loopStart := int(s.loopStart.Seconds() * float64(s.sampleRate))
	if loopStart >= length {
		loopStart = 0
	}

	s.set.Store(&variantSet{tracks: tracks, length: length, loopStart: loopStart})
}

// Schedule selects variant index from renderer time at on
func (s *Switcher) Schedule(index int, at time.Duration) {
	s.send(command{kind: cmdSchedule, index: index, at: s.toFrames(at)})
}

// Suspend silences output and stops the clock
func (s *Switcher) Suspend() {
	s.send(command{kind: cmdSuspend})
}

// Resume restarts the clock
func (s *Switcher) Resume() {
	s.send(command{kind: cmdResume})
}

// CurrentTime returns the renderer clock
func (s *Switcher) CurrentTime() time.Duration {
	return s.toDuration(s.clock.Load())
}

// Active returns the variant being rendered, or -1
func (s *Switcher) Active() int {
	return int(s.activeSeen.Load())
}

// Dropped returns how many commands were lost to a full queue
func (s *Switcher) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Switcher) send(c command) {
	select {
	case s.commands <- c:
	default:
		s.dropped.Add(1)
	}
}

func (s *Switcher) toFrames(d time.Duration) int64 {
	return int64(d) * int64(s.sampleRate) / int64(time.Second)
}

func (s *Switcher) toDuration(frames int64) time.Duration {
	if s.sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(s.sampleRate))
}

// Process fills one planar stereo block
func (s *Switcher) Process(out [][]float32) {
	if len(out) == 0 {
		return
	}
	if set := s.set.Load(); set != s.current {
		s.current = set
		s.position = 0
		s.active = -1
		s.hasPending = false
		s.activeSeen.Store(-1)
	}
	s.drain()

	frames := len(out[0])
	set := s.current
	if !s.running || set == nil || set.length == 0 {
		silence(out, 0, frames)
		return
	}

	clock := s.clock.Load()
	for i := 0; i < frames; i++ {
		if s.hasPending && clock >= s.pending.at {
			s.hasPending = false
			s.selectTrack(s.pending.index)
		}

		if s.active < 0 {
			writeFrame(out, i, 0, 0)
		} else {
			t := set.tracks[s.active]
			writeFrame(out, i, t.left[s.position], t.right[s.position])
		}

		s.position++
		if s.position >= set.length {
			s.position = set.loopStart
		}
		clock++
	}
	s.clock.Store(clock)
}

// drain applies every queued command without waiting.
// A switch whose time has already come applies at the first frame of the
// block; a later one waits in the pending slot.
func (s *Switcher) drain() {
	for {
		select {
		case c := <-s.commands:
			switch c.kind {
			case cmdSchedule:
				if c.at <= s.clock.Load() {
					s.hasPending = false
					s.selectTrack(c.index)
					continue
				}
				s.pending = c
				s.hasPending = true
			case cmdSuspend:
				s.running = false
			case cmdResume:
				s.running = true
			}
		default:
			return
		}
	}
}

// selectTrack ignores indexes the installed set does not have
func (s *Switcher) selectTrack(index int) {
	if s.current == nil || index < 0 || index >= len(s.current.tracks) {
		return
	}
	s.active = index
	s.activeSeen.Store(int64(index))
}

func writeFrame(out [][]float32, i int, l, r float32) {
	out[0][i] = l
	if len(out) > 1 {
		out[1][i] = r
	}
}

func silence(out [][]float32, from, to int) {
	for _, ch := range out {
		for i := from; i < to && i < len(ch); i++ {
			ch[i] = 0
		}
	}
}
