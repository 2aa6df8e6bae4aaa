package pulse

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when two recordings of the same key have a
// different number of pulses.
var ErrLengthMismatch = errors.New("pulse: recordings differ in length")

// MismatchError reports the first pulse whose ratio fell outside the window.
type MismatchError struct {
	Index int
	A, B  float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("pulse: recordings differ at index %d (%v vs %v)", e.Index, e.A, e.B)
}

// Comparator checks a confirmation capture against the first capture.
type Comparator struct {
	tol Tolerance
}

// NewComparator returns a Comparator using tol.
func NewComparator(tol Tolerance) *Comparator {
	return &Comparator{tol: tol}
}

// Confirm checks that every pulse of p1 is within tolerance of the matching
// pulse of p2 and, if so, returns the pulse-by-pulse average rounded to whole
// microseconds.
//
//	1: 9000 4500 600 560 600 560 600 1700 600 1700 600
//	2: 9020 4570 590 550 590 550 590 1640 590 1640 590
//	A: 9010 4535 595 555 595 555 595 1670 595 1670 595
//
// Neither input is modified.
func (c *Comparator) Confirm(p1, p2 Sequence) (Sequence, error) {
	if len(p1) != len(p2) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(p1), len(p2))
	}
	for i := range p1 {
		if !c.tol.inRatio(p1[i], p2[i]) {
			return nil, &MismatchError{Index: i, A: p1[i], B: p2[i]}
		}
	}

	out := make(Sequence, len(p1))
	for i := range p1 {
		out[i] = math.RoundToEven((p1[i] + p2[i]) / 2)
	}
	return out, nil
}

// IsNoMatch reports whether err means the two captures disagreed, as opposed
// to a failure of the capture itself.
func IsNoMatch(err error) bool {
	var me *MismatchError
	return errors.Is(err, ErrLengthMismatch) || errors.As(err, &me)
}
