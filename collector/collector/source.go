package collector

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/derktes/ir-signal-codec/pulse"
)

// Source delivers one raw capture per call.
type Source interface {
	Capture(ctx context.Context) (pulse.Sequence, error)
}

type lineResult struct {
	seq pulse.Sequence
	err error
}

// LineSource reads captures printed one per line by a receiver: comma or
// space separated durations in microseconds, starting with a mark. Blank
// lines and lines starting with '#' are ignored, as is any line that does
// not parse, since receivers tend to print banners and status text.
type LineSource struct {
	results chan lineResult
	done    chan struct{}
	log     *slog.Logger
}

// NewLineSource starts scanning r. Call Close to stop.
func NewLineSource(r io.Reader, log *slog.Logger) *LineSource {
	s := &LineSource{
		results: make(chan lineResult),
		done:    make(chan struct{}),
		log:     log,
	}
	go s.scan(r)
	return s
}

func (s *LineSource) scan(r io.Reader) {
	defer close(s.results)
	lineScanner := bufio.NewScanner(r)
	lineScanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineScanner.Scan() {
		line := strings.TrimSpace(lineScanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seq, err := ParseLine(line)
		if err != nil {
			s.log.Debug("Ignoring receiver output", "line", line, "err", err)
			continue
		}
		s.log.Debug("Received capture", "pulses", len(seq))
		select {
		case s.results <- lineResult{seq: seq}:
		case <-s.done:
			return
		}
	}
	err := lineScanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case s.results <- lineResult{err: err}:
	case <-s.done:
	}
}

// Capture waits for the next capture. It returns io.EOF once the input is
// exhausted.
func (s *LineSource) Capture(ctx context.Context) (pulse.Sequence, error) {
	select {
	case r, ok := <-s.results:
		if !ok {
			return nil, io.EOF
		}
		return r.seq, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, errors.New("collector: source closed")
	}
}

// Close stops the scanner goroutine once it next tries to deliver.
func (s *LineSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// ParseLine parses one capture line.
func ParseLine(line string) (pulse.Sequence, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil, errors.New("collector: empty capture")
	}
	seq := make(pulse.Sequence, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		seq[i] = v
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}
