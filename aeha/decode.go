package aeha

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/derktes/ir-signal-codec/pulse"
)

// Periods converts raw durations into whole unit counts and splits them into
// frames. A period longer than 8T closes the current frame and is itself
// dropped.
func Periods(raw pulse.Sequence, unit int) [][]int {
	t := float64(unit)
	frames := [][]int{}
	frame := []int{}
	for _, d := range raw {
		p := int(math.RoundToEven(d / t))
		if p > frameSeparator {
			frames = append(frames, frame)
			frame = []int{}
			continue
		}
		frame = append(frame, p)
	}
	return append(frames, frame)
}

// FrameBits decodes one frame of periods into a bit string. A trailing
// unpaired period, normally the frame's closing mark, is ignored. index is
// only used to label errors.
func FrameBits(frame []int, index int) (string, error) {
	var sb strings.Builder
	for i := 0; i+1 < len(frame); i += 2 {
		mark, space := frame[i], frame[i+1]
		switch {
		case mark == leaderMark && space == leaderSpace:
			continue
		case mark == bitMark && space == bit0Space:
			sb.WriteByte('0')
		case mark == bitMark && space == bit1Space:
			sb.WriteByte('1')
		default:
			return "", &DecodeError{Frame: index, Position: i, Values: [2]int{mark, space}}
		}
	}
	return sb.String(), nil
}

// BitsToHex groups bits by eight, least significant bit first. A short final
// group is read the same way.
func BitsToHex(bits string) Hex {
	h := make(Hex, 0, (len(bits)+7)/8)
	for len(bits) > 0 {
		n := min(8, len(bits))
		var b byte
		for i := 0; i < n; i++ {
			if bits[i] == '1' {
				b |= 1 << i
			}
		}
		h = append(h, b)
		bits = bits[n:]
	}
	return h
}

// Result is a decoded transmission.
type Result struct {
	Hex    Hex    `json:"hex"`
	Bits   string `json:"bits"`
	Frames int    `json:"frames"`
}

// Decode turns a captured waveform into the payload of its first data frame.
// The leading frame (the device frame of a Panasonic transmission, or
// whatever preceded the first long gap) is discarded. Every later frame must
// decode cleanly, but only the first one is returned; Frames counts them all.
func Decode(raw pulse.Sequence, unit int) (Result, error) {
	if unit <= 0 {
		return Result{}, fmt.Errorf("aeha: unit time must be positive, got %d", unit)
	}
	frames := Periods(raw, unit)
	if len(frames) < 2 {
		return Result{}, ErrNoDataFrame
	}

	blocks := make([]string, 0, len(frames)-1)
	for i, frame := range frames[1:] {
		bits, err := FrameBits(frame, i+1)
		if err != nil {
			return Result{}, err
		}
		blocks = append(blocks, bits)
	}

	return Result{
		Hex:    BitsToHex(blocks[0]),
		Bits:   blocks[0],
		Frames: len(blocks),
	}, nil
}

// BatchResult is the outcome for one command of a batch decode.
type BatchResult struct {
	ID     string
	Result Result
	Err    error
}

// String formats the result as "<id>: 02 20 ..." or
// "Error decoding <id>: <reason>".
func (r BatchResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("Error decoding %s: %v", r.ID, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.ID, r.Result.Hex.Spaced())
}

// DecodeAll decodes every recording of db. A failing command is reported in
// its own result and does not stop the others. Results are sorted by id.
func DecodeAll(db pulse.Database, unit int) []BatchResult {
	ids := make([]string, 0, len(db))
	for id := range db {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		res, err := Decode(db[id], unit)
		out = append(out, BatchResult{ID: id, Result: res, Err: err})
	}
	return out
}
