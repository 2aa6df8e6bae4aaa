package pulse

import (
	"math"
	"sort"
)

// Tidier unifies durations across a whole database so that the same physical
// pulse width carries the same value in every record.
type Tidier struct {
	tol Tolerance
}

// NewTidier returns a Tidier using tol.
func NewTidier(tol Tolerance) *Tidier {
	return &Tidier{tol: tol}
}

// Tidy returns a new database in which every mark and every space has been
// replaced by its cluster's canonical value. db is left untouched, so a
// caller that fails to persist the result still holds a consistent database.
func (t *Tidier) Tidy(db Database) Database {
	out := db.Clone()
	t.rewrite(out, 0) // marks
	t.rewrite(out, 1) // spaces
	return out
}

func (t *Tidier) rewrite(db Database, base int) {
	freq := make(map[float64]int)
	for _, s := range db {
		for i := base; i < len(s); i += 2 {
			freq[s[i]]++
		}
	}

	canon := t.Cluster(freq)
	for _, s := range db {
		for i := base; i < len(s); i += 2 {
			s[i] = canon[s[i]]
		}
	}
}

// Cluster walks the distinct durations of freq shortest first and collapses
// each run that stays under seed*Max into the weighted average of the run.
// With a 15% window
//
//	500x1 520x1 540x1  1000x1 1050x1
//
// becomes 520(x3) 1025(x2). A duration joins the open run when it
// is within range of the run's first member, not its mean, so the grouping
// depends on the order of the walk.
func (t *Tidier) Cluster(freq map[float64]int) map[float64]float64 {
	durations := make([]float64, 0, len(freq))
	for d := range freq {
		durations = append(durations, d)
	}
	sort.Float64s(durations)

	canon := make(map[float64]float64, len(durations))
	var (
		members []float64
		seed    float64
		total   float64
		count   int
	)
	flush := func() {
		v := math.RoundToEven(total / float64(count))
		for _, m := range members {
			canon[m] = v
		}
	}

	for _, d := range durations {
		n := freq[d]
		switch {
		case members == nil:
		case d < seed*t.tol.Max():
			members = append(members, d)
			total += d * float64(n)
			count += n
			continue
		default:
			flush()
		}
		members = []float64{d}
		seed = d
		total = d * float64(n)
		count = n
	}
	if members != nil {
		flush()
	}
	return canon
}
