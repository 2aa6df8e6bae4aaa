// Package aeha encodes and decodes AEHA-format infrared frames, including the
// two-frame layout used by Panasonic air conditioners.
package aeha

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Switch is an on/off field.
type Switch string

const (
	On  Switch = "on"
	Off Switch = "off"
)

// Mode is the air conditioner operating mode.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeFan  Mode = "fan"
	ModeDry  Mode = "dry"
	ModeCool Mode = "cool"
	ModeHeat Mode = "heat"
)

// Strength is the fan speed setting.
type Strength string

const (
	Strength1     Strength = "1"
	Strength2     Strength = "2"
	Strength3     Strength = "3"
	Strength4     Strength = "4"
	StrengthAuto  Strength = "auto"
	StrengthQuiet Strength = "quiet"
)

// Direction is the vane position, 1 (horizontal) to 5 (vertical) or auto.
type Direction string

const (
	Direction1    Direction = "1"
	Direction2    Direction = "2"
	Direction3    Direction = "3"
	Direction4    Direction = "4"
	Direction5    Direction = "5"
	DirectionAuto Direction = "auto"
)

// Temperature limits accepted by the Panasonic unit, in °C.
const (
	MinTemperature = 16
	MaxTemperature = 30
)

// Message is one complete air conditioner state. Panasonic remotes always send
// the full state, never a single changed field.
type Message struct {
	Power       Switch    `json:"power"`
	Mode        Mode      `json:"mode"`
	Temperature int       `json:"temp"`
	Strength    Strength  `json:"strength"`
	Direction   Direction `json:"direction"`
	Powerful    Switch    `json:"powerful"`
}

// WithDefaults fills the optional fields the way the physical remote does:
// automatic fan and vane, powerful mode off.
func (m Message) WithDefaults() Message {
	if m.Strength == "" {
		m.Strength = StrengthAuto
	}
	if m.Direction == "" {
		m.Direction = DirectionAuto
	}
	if m.Powerful == "" {
		m.Powerful = Off
	}
	return m
}

// Hex is a protocol byte string.
type Hex []byte

// ParseHex accepts contiguous or whitespace separated hex pairs.
func ParseHex(s string) (Hex, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, fmt.Errorf("aeha: invalid hex %q: %w", s, err)
	}
	return Hex(b), nil
}

// String renders h as contiguous lowercase hex digits.
func (h Hex) String() string { return hex.EncodeToString(h) }

// Spaced renders h as space separated pairs, "02 20 e0 ...".
func (h Hex) Spaced() string {
	pairs := make([]string, len(h))
	for i, b := range h {
		pairs[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(pairs, " ")
}

// MarshalText implements encoding.TextMarshaler so Hex appears as a hex
// string in JSON.
func (h Hex) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hex) UnmarshalText(text []byte) error {
	v, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// Checksum is the sum of b modulo 256.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Valid reports whether the last byte of h is the checksum of the others.
func (h Hex) Valid() bool {
	if len(h) < 2 {
		return false
	}
	return Checksum(h[:len(h)-1]) == h[len(h)-1]
}
