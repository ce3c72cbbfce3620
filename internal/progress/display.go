package progress

import "math"

// Display renders progress for one audience
type Display interface {
	Render(percent int)
	Complete()
	Fail(err error)
}

// Percent converts a fraction to a whole floored percentage in [0, 100]
func Percent(fraction float64) int {
	p := int(math.Floor(fraction * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
