package domain

import "fmt"

// DecodedAudio holds the two playback channels of one variant.
// Sequences are never written after decode. For a mono source Right and Left
// are the same slice: two handles on one backing array.
type DecodedAudio struct {
	Left       []float32
	Right      []float32
	SampleRate int
	Channels   int // channel count of the source, before stereo mapping
}

// NewDecodedAudio builds a DecodedAudio from planar channel data.
// One channel yields aliased Left/Right; extra channels beyond two are ignored.
func NewDecodedAudio(channels [][]float32, sampleRate int) (*DecodedAudio, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("decoded audio has no channels")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	left := channels[0]
	right := left
	if len(channels) > 1 {
		right = channels[1]
		if len(right) != len(left) {
			return nil, fmt.Errorf("channel length mismatch: left=%d right=%d", len(left), len(right))
		}
	}

	return &DecodedAudio{
		Left:       left,
		Right:      right,
		SampleRate: sampleRate,
		Channels:   len(channels),
	}, nil
}

// Frames returns the number of sample frames per channel
func (a *DecodedAudio) Frames() int {
	if a == nil {
		return 0
	}
	return len(a.Left)
}

// IsMono reports whether Right is an alias of Left
func (a *DecodedAudio) IsMono() bool {
	return SameBacking(a.Left, a.Right)
}

// SameBacking reports whether two sample slices share one backing array start
func SameBacking(a, b []float32) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b) && cap(a) == cap(b)
	}
	return &a[0] == &b[0] && len(a) == len(b)
}
