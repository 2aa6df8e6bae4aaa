package server

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/derktes/ir-signal-codec/aeha"
	"github.com/derktes/ir-signal-codec/pulse"
)

// parseUnit reads the unit time query parameter. Empty means the server
// default.
func parseUnit(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	unit, err := strconv.Atoi(s)
	if err != nil || unit <= 0 {
		return 0, fmt.Errorf("unit time must be a positive integer, got '%s'", s)
	}
	return unit, nil
}

// decodeFrame decodes a capture and, when the payload is a Panasonic air
// conditioner frame, the state it carries.
func decodeFrame(raw pulse.Sequence, unit int) (decodeResponse, error) {
	res, err := aeha.Decode(raw, unit)
	if err != nil {
		return decodeResponse{}, err
	}
	out := decodeResponse{Result: res, Spaced: res.Hex.Spaced()}
	if len(res.Hex) == 19 && bytes.HasPrefix(res.Hex, aeha.PanasonicHeader[:5]) {
		if m, err := aeha.DecodePanasonic(res.Hex); err == nil {
			out.Message = &m
		}
	}
	return out, nil
}
