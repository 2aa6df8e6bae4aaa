package collector

import "github.com/derktes/ir-signal-codec/pulse"

// signalPublishRequest carries one confirmed signal to the server
type signalPublishRequest struct {
	ID          string         `json:"id"`
	Pulses      pulse.Sequence `json:"pulses"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Collector   string         `json:"collector,omitempty"`
}
