// Package pulse holds the timing side of IR signal handling: mark/space
// sequences, the tolerance window used to call two durations "the same", and
// the clustering passes that turn noisy receiver captures into canonical
// signals.
package pulse

import "math"

// DefaultTolerancePercent is the tolerance used when none is configured.
const DefaultTolerancePercent = 15

// Tolerance is a percentage window around a reference duration.
type Tolerance struct {
	percent float64
	min     float64
	max     float64
}

// NewTolerance returns a window of ±percent. Negative values are clamped to 0.
func NewTolerance(percent float64) Tolerance {
	if percent < 0 {
		percent = 0
	}
	return Tolerance{
		percent: percent,
		min:     (100 - percent) / 100,
		max:     (100 + percent) / 100,
	}
}

// Percent returns the configured window width.
func (t Tolerance) Percent() float64 { return t.percent }

// Min is the lower ratio bound, (100-P)/100.
func (t Tolerance) Min() float64 { return t.min }

// Max is the upper ratio bound, (100+P)/100.
func (t Tolerance) Max() float64 { return t.max }

// Same reports whether other lies in [ref*Min, ref*Max]. The test is anchored
// on ref, so Same(a, b) and Same(b, a) can differ near the edges.
func (t Tolerance) Same(ref, other float64) bool {
	return other >= ref*t.min && other <= ref*t.max
}

// inRatio reports whether a/b lies within [Min, Max]. Division by zero yields
// Inf or NaN, both of which fall outside.
func (t Tolerance) inRatio(a, b float64) bool {
	v := a / b
	if math.IsNaN(v) {
		return false
	}
	return v >= t.min && v <= t.max
}
