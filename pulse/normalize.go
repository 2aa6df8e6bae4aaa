package pulse

import "math"

// Normalizer collapses the jitter inside a single recording. A code is usually
// made of two or three distinct marks and spaces; every duration that falls in
// the tolerance window of a seed is replaced by the average of its group.
// Marks and spaces are grouped separately.
//
//	  M    S   M   S   M   S   M    S   M    S   M
//	9000 4500 600 540 620 560 590 1660 620 1690 615
//
// becomes
//
//	9000 4500 609 550 609 550 609 1675 609 1675 609
type Normalizer struct {
	tol Tolerance
}

// NewNormalizer returns a Normalizer using tol.
func NewNormalizer(tol Tolerance) *Normalizer {
	return &Normalizer{tol: tol}
}

// Normalize returns a normalized copy of s.
func (n *Normalizer) Normalize(s Sequence) Sequence {
	out := s.Clone()
	done := make([]bool, len(out))

	for i := range out {
		if done[i] {
			continue
		}
		v := out[i]
		total := v
		similar := 1.0
		members := []int{i}

		for j := i + 2; j < len(out); j += 2 {
			if done[j] || !n.tol.Same(v, out[j]) {
				continue
			}
			total += out[j]
			similar++
			members = append(members, j)
		}

		mean := round2(total / similar)
		for _, j := range members {
			out[j] = mean
			done[j] = true
		}
	}
	return out
}

// round2 rounds to two decimal places, halves to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
