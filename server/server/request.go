package server

import (
	"github.com/derktes/ir-signal-codec/aeha"
	"github.com/derktes/ir-signal-codec/pulse"
)

// encodeRequest describes the air conditioner state to turn into a waveform
type encodeRequest struct {
	aeha.Message
	Format *aeha.Format `json:"format,omitempty"`
	Unit   int          `json:"unit,omitempty"`
	Repeat int          `json:"repeat,omitempty"`
}

// decodeRequest carries a raw capture to decode
type decodeRequest struct {
	Pulses pulse.Sequence `json:"pulses"`
	Unit   int            `json:"unit,omitempty"`
}
