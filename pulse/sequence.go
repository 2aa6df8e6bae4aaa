package pulse

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/zeebo/xxh3"
)

// Sequence is a recording of alternating mark (even index) and space (odd
// index) durations in microseconds, starting with a mark.
type Sequence []float64

// Clone returns a copy that shares no memory with s.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	c := make(Sequence, len(s))
	copy(c, s)
	return c
}

// Marks returns the carrier-on durations.
func (s Sequence) Marks() []float64 { return s.parity(0) }

// Spaces returns the carrier-off durations.
func (s Sequence) Spaces() []float64 { return s.parity(1) }

func (s Sequence) parity(base int) []float64 {
	out := make([]float64, 0, (len(s)+1-base)/2)
	for i := base; i < len(s); i += 2 {
		out = append(out, s[i])
	}
	return out
}

// Ints rounds every duration to whole microseconds, which is what a
// transmitter consumes.
func (s Sequence) Ints() []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(math.RoundToEven(v))
	}
	return out
}

// Fingerprint is a stable 64-bit hash of the durations.
func (s Sequence) Fingerprint() string {
	buf := make([]byte, 8*len(s))
	for i, v := range s {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return fmt.Sprintf("%016x", xxh3.Hash(buf))
}

// Validate rejects negative, NaN and infinite durations.
func (s Sequence) Validate() error {
	for i, v := range s {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("pulse: invalid duration %v at index %d", v, i)
		}
	}
	return nil
}

// FromInts converts integral microsecond durations.
func FromInts(v []int) Sequence {
	s := make(Sequence, len(v))
	for i, d := range v {
		s[i] = float64(d)
	}
	return s
}

// Database maps command identifiers to their canonical recordings.
type Database map[string]Sequence

// Clone deep-copies the database.
func (db Database) Clone() Database {
	c := make(Database, len(db))
	for id, s := range db {
		c[id] = s.Clone()
	}
	return c
}

// IDs returns the command identifiers in sorted order.
func (db Database) IDs() []string {
	ids := make([]string, 0, len(db))
	for id := range db {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
