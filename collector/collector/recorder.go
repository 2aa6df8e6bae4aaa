package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/derktes/ir-signal-codec/config"
	"github.com/derktes/ir-signal-codec/pulse"
)

// ErrAbandoned is returned when no confirmation capture matched.
var ErrAbandoned = errors.New("collector: giving up, confirmation never matched")

// Recorder drives the operator through capturing and confirming commands.
type Recorder struct {
	Source     Source
	Normalizer *pulse.Normalizer
	Comparator *pulse.Comparator

	// Confirm requires a second matching capture before a command is
	// accepted. Retries bounds how many further confirmation captures are
	// taken after the first one fails to match; it is capped at
	// config.MaxRetries.
	Confirm bool
	Retries int

	// Short rejects captures with this many pulses or fewer.
	Short int

	// AttemptTimeout bounds each capture. Zero waits forever.
	AttemptTimeout time.Duration

	Prompt io.Writer
	Log    *slog.Logger
}

// NewRecorder returns a recorder using tol for normalization and
// confirmation.
func NewRecorder(src Source, tol pulse.Tolerance, prompt io.Writer, log *slog.Logger) *Recorder {
	return &Recorder{
		Source:     src,
		Normalizer: pulse.NewNormalizer(tol),
		Comparator: pulse.NewComparator(tol),
		Confirm:    true,
		Retries:    config.MaxRetries,
		Short:      10,
		Prompt:     prompt,
		Log:        log,
	}
}

func (r *Recorder) say(format string, args ...any) {
	fmt.Fprintf(r.Prompt, format+"\n", args...)
}

// capture waits for one capture longer than Short and normalizes it.
func (r *Recorder) capture(ctx context.Context) (pulse.Sequence, error) {
	if r.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.AttemptTimeout)
		defer cancel()
	}
	for {
		raw, err := r.Source.Capture(ctx)
		if err != nil {
			return nil, err
		}
		if len(raw) <= r.Short {
			r.say("Short code, probably a repeat, try again")
			r.Log.Debug("Rejected short capture", "pulses", len(raw), "short", r.Short)
			continue
		}
		return r.Normalizer.Normalize(raw), nil
	}
}

// Record captures the command id. With confirmation the first capture is
// compared against up to 1+Retries further captures; a confirmation capture
// that times out counts as a failed match.
func (r *Recorder) Record(ctx context.Context, id string) (pulse.Sequence, error) {
	r.say("Press key for '%s'", id)
	first, err := r.capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("collector: capture %q: %w", id, err)
	}
	r.say("Okay")
	if !r.Confirm {
		return first, nil
	}

	retries := min(r.Retries, config.MaxRetries)
	for attempt := 1; attempt <= retries+1; attempt++ {
		r.say("Press key for '%s' to confirm (%s attempt)", id, humanize.Ordinal(attempt))
		second, err := r.capture(ctx)
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("collector: confirm %q: %w", id, ctx.Err())
		case errors.Is(err, context.DeadlineExceeded):
			r.Log.Info("Confirmation timed out", "id", id, "attempt", attempt)
			r.say("No match")
			continue
		case err != nil:
			return nil, fmt.Errorf("collector: confirm %q: %w", id, err)
		}

		confirmed, err := r.Comparator.Confirm(first, second)
		if err == nil {
			r.say("Okay")
			return confirmed, nil
		}
		r.Log.Info("Confirmation did not match", "id", id, "attempt", attempt, "err", err)
		r.say("No match")
	}

	r.say("Giving up on key '%s'", id)
	return nil, fmt.Errorf("%w: %q", ErrAbandoned, id)
}

// RecordAll records every id in order. Abandoned or timed-out commands are
// logged and skipped. Cancellation of ctx or the source running dry stops the
// run; whatever was recorded so far is returned along with the error.
func (r *Recorder) RecordAll(ctx context.Context, ids []string) (pulse.Database, error) {
	recorded := pulse.Database{}
	for _, id := range ids {
		seq, err := r.Record(ctx, id)
		switch {
		case err == nil:
			recorded[id] = seq
			r.Log.Info("Recorded command", "id", id, "pulses", len(seq), "fingerprint", seq.Fingerprint())
		case ctx.Err() != nil, errors.Is(err, io.EOF):
			return recorded, err
		default:
			r.Log.Warn("Skipping command", "id", id, "err", err)
		}
	}
	return recorded, nil
}
