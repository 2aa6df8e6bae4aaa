package aeha

import (
	"errors"
	"fmt"
)

// ErrNoDataFrame is returned when a waveform holds no frame after the leading
// device frame.
var ErrNoDataFrame = errors.New("aeha: no data frame")

// RangeError reports a temperature the unit does not accept.
type RangeError struct {
	Temperature int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("aeha: temperature %d out of range, must be between %d and %d",
		e.Temperature, MinTemperature, MaxTemperature)
}

// FieldError reports an enumerated field holding an unknown value.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("aeha: invalid %s %q", e.Field, e.Value)
}

// DecodeError reports a mark/space pair that is neither a header nor a bit.
// Frame and Position index the normalized period buckets, Position being the
// offset of the pair's mark inside its frame.
type DecodeError struct {
	Frame    int
	Position int
	Values   [2]int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode at frame %d, position %d. Values: %d, %d",
		e.Frame, e.Position, e.Values[0], e.Values[1])
}
