package server

import (
	"github.com/derktes/ir-signal-codec/aeha"
)

type signalSummary struct {
	ID          string `json:"id"`
	Length      int    `json:"length"`
	Fingerprint string `json:"fingerprint"`
}

type signalDetail struct {
	ID          string `json:"id"`
	Pulses      []int  `json:"pulses"`
	Fingerprint string `json:"fingerprint"`
}

type newSignalEvent struct {
	ID          string    `json:"id"`
	Pulses      []float64 `json:"pulses,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
}

type encodeResponse struct {
	Format   aeha.Format `json:"format"`
	Hex      aeha.Hex    `json:"hex"`
	Spaced   string      `json:"spaced"`
	Waveform []int       `json:"waveform"`
}

type decodeResponse struct {
	ID string `json:"id,omitempty"`
	aeha.Result
	Spaced  string        `json:"spaced"`
	Message *aeha.Message `json:"message,omitempty"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}
