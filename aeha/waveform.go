package aeha

import (
	"fmt"
	"math"
	"strings"

	"github.com/derktes/ir-signal-codec/pulse"
)

// DefaultUnit is the AEHA unit time T in microseconds. The standard allows
// 350–500us; Panasonic units use 425us.
const DefaultUnit = 425

// MaxRepeat bounds how often Waveform repeats a transmission.
const MaxRepeat = 32

// AEHA timings as multiples of the unit time.
const (
	leaderMark     = 8
	leaderSpace    = 4
	bitMark        = 1
	bit0Space      = 1
	bit1Space      = 3
	aehaTrailer    = 30
	panasonicGap   = 8
	panasonicTrail = 20

	// Any period longer than this separates two frames.
	frameSeparator = 8
)

// Format selects the frame layout.
type Format int

const (
	FormatAEHA Format = iota
	FormatPanasonic
)

func (f Format) String() string {
	switch f {
	case FormatAEHA:
		return "AEHA"
	case FormatPanasonic:
		return "Panasonic"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat accepts "AEHA" or "Panasonic", case insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "aeha":
		return FormatAEHA, nil
	case "panasonic", "":
		return FormatPanasonic, nil
	default:
		return 0, &FieldError{Field: "format", Value: s}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Bits returns the transmission bit string for h: every byte least
// significant bit first.
func Bits(h Hex) string {
	var sb strings.Builder
	sb.Grow(len(h) * 8)
	for _, b := range h {
		for i := 0; i < 8; i++ {
			if b&(1<<i) == 0 {
				sb.WriteByte('0')
			} else {
				sb.WriteByte('1')
			}
		}
	}
	return sb.String()
}

// Frame returns the leader pair followed by one mark/space pair per bit. No
// trailer is appended.
func Frame(bits string, unit int) pulse.Sequence {
	t := float64(unit)
	s := make(pulse.Sequence, 0, 2+2*len(bits))
	s = append(s, leaderMark*t, leaderSpace*t)
	for _, b := range bits {
		if b == '0' {
			s = append(s, bitMark*t, bit0Space*t)
		} else {
			s = append(s, bitMark*t, bit1Space*t)
		}
	}
	return s
}

// Waveform produces the mark/space durations a transmitter has to emit for h.
// AEHA sends one frame and a 30T trailer; Panasonic prefixes the constant
// header frame and an 8T gap and ends with a 20T trailer. The whole unit is
// repeated repeat times.
func Waveform(format Format, h Hex, unit, repeat int) (pulse.Sequence, error) {
	if unit <= 0 {
		return nil, fmt.Errorf("aeha: unit time must be positive, got %d", unit)
	}
	if repeat < 1 || repeat > MaxRepeat {
		return nil, fmt.Errorf("aeha: repeat must be between 1 and %d, got %d", MaxRepeat, repeat)
	}
	t := float64(unit)

	var block pulse.Sequence
	switch format {
	case FormatAEHA:
		block = append(block, Frame(Bits(h), unit)...)
		block = append(block, bitMark*t, aehaTrailer*t)
	case FormatPanasonic:
		block = append(block, Frame(Bits(PanasonicHeader), unit)...)
		block = append(block, bitMark*t, panasonicGap*t)
		block = append(block, Frame(Bits(h), unit)...)
		block = append(block, bitMark*t, panasonicTrail*t)
	default:
		return nil, &FieldError{Field: "format", Value: format.String()}
	}

	if len(block) > math.MaxInt/repeat {
		return nil, fmt.Errorf("aeha: waveform of %d pulses repeated %d times is too long", len(block), repeat)
	}
	out := make(pulse.Sequence, 0, len(block)*repeat)
	for i := 0; i < repeat; i++ {
		out = append(out, block...)
	}
	return out, nil
}
