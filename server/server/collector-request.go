package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/derktes/ir-signal-codec/pulse"
)

// reservedID is routed to the signal stream, so no signal may use it.
const reservedID = "stream"

// signalPublishRequest is what a collector posts for each confirmed signal
type signalPublishRequest struct {
	ID          string         `json:"id"`
	Pulses      pulse.Sequence `json:"pulses"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Collector   string         `json:"collector,omitempty"`
}

func (r *signalPublishRequest) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("signal id is empty")
	}
	if strings.ContainsAny(r.ID, "/ \t\n") {
		return fmt.Errorf("signal id '%s' contains a slash or whitespace", r.ID)
	}
	if r.ID == reservedID {
		return fmt.Errorf("signal id '%s' is reserved", r.ID)
	}
	if len(r.Pulses) == 0 {
		return errors.New("signal has no pulses")
	}
	if err := r.Pulses.Validate(); err != nil {
		return err
	}
	// the fingerprint guards against truncated or reformatted uploads
	if r.Fingerprint != "" && r.Fingerprint != r.Pulses.Fingerprint() {
		return fmt.Errorf("fingerprint %s does not match pulses", r.Fingerprint)
	}
	return nil
}
