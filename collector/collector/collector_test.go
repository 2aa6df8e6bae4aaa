package collector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/neilotoole/slogt"

	"github.com/derktes/ir-signal-codec/pulse"
	"github.com/derktes/ir-signal-codec/store"
)

var (
	captureA = pulse.Sequence{3400, 1700, 425, 425, 425, 1275, 425, 425, 425, 1275, 425, 12750}
	captureB = pulse.Sequence{3410, 1690, 425, 425, 425, 1275, 425, 425, 425, 1275, 425, 12750}
	captureC = pulse.Sequence{3400, 1700, 425, 425, 425, 2550, 425, 425, 425, 1275, 425, 12750}
	shortOne = pulse.Sequence{3400, 1700, 425}
	averaged = pulse.Sequence{3405, 1695, 425, 425, 425, 1275, 425, 425, 425, 1275, 425, 12750}
)

// sliceSource replays captures, then blocks until the context ends.
type sliceSource struct {
	captures []pulse.Sequence
}

func (s *sliceSource) Capture(ctx context.Context) (pulse.Sequence, error) {
	if len(s.captures) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	next := s.captures[0]
	s.captures = s.captures[1:]
	return next.Clone(), nil
}

func newTestRecorder(t *testing.T, captures ...pulse.Sequence) (*Recorder, *bytes.Buffer) {
	t.Helper()
	var prompt bytes.Buffer
	rec := NewRecorder(&sliceSource{captures: captures}, pulse.NewTolerance(15), &prompt, slogt.New(t))
	rec.AttemptTimeout = 50 * time.Millisecond
	return rec, &prompt
}

func TestRecordWithoutConfirm(t *testing.T) {
	rec, prompt := newTestRecorder(t, shortOne, captureA)
	rec.Confirm = false

	seq, err := rec.Record(context.Background(), "power")
	assert.NoError(t, err)
	assert.Equal(t, captureA, seq)
	assert.Contains(t, prompt.String(), "Press key for 'power'")
	assert.Contains(t, prompt.String(), "Short code, probably a repeat, try again")
}

func TestRecordConfirmAverages(t *testing.T) {
	rec, prompt := newTestRecorder(t, captureA, captureB)

	seq, err := rec.Record(context.Background(), "cool_26")
	assert.NoError(t, err)
	assert.Equal(t, averaged, seq)
	assert.Contains(t, prompt.String(), "Press key for 'cool_26' to confirm (1st attempt)")
}

func TestRecordRetriesUntilMatch(t *testing.T) {
	rec, prompt := newTestRecorder(t, captureA, captureC, shortOne, captureC, captureB)

	seq, err := rec.Record(context.Background(), "cool_26")
	assert.NoError(t, err)
	assert.Equal(t, averaged, seq)
	assert.Equal(t, 2, strings.Count(prompt.String(), "No match"))
	assert.Contains(t, prompt.String(), "(3rd attempt)")
}

func TestRecordGivesUp(t *testing.T) {
	rec, prompt := newTestRecorder(t, captureA, captureC, captureC, captureC, captureC, captureB)

	_, err := rec.Record(context.Background(), "cool_26")
	assert.IsError(t, err, ErrAbandoned)
	assert.Equal(t, 4, strings.Count(prompt.String(), "No match"))
	assert.Contains(t, prompt.String(), "Giving up on key 'cool_26'")
	assert.NotContains(t, prompt.String(), "(5th attempt)")
}

func TestRecordRetriesAreCapped(t *testing.T) {
	captures := []pulse.Sequence{captureA}
	for i := 0; i < 10; i++ {
		captures = append(captures, captureC)
	}
	rec, prompt := newTestRecorder(t, append(captures, captureB)...)
	rec.Retries = 10

	_, err := rec.Record(context.Background(), "cool_26")
	assert.IsError(t, err, ErrAbandoned)
	assert.Equal(t, 4, strings.Count(prompt.String(), "No match"))
	assert.NotContains(t, prompt.String(), "(5th attempt)")
}

func TestRecordConfirmTimeoutCountsAsFailure(t *testing.T) {
	rec, prompt := newTestRecorder(t, captureA, captureC)

	_, err := rec.Record(context.Background(), "cool_26")
	assert.IsError(t, err, ErrAbandoned)
	assert.Equal(t, 4, strings.Count(prompt.String(), "No match"))
}

func TestRecordFirstCaptureTimeout(t *testing.T) {
	rec, _ := newTestRecorder(t)

	_, err := rec.Record(context.Background(), "cool_26")
	assert.IsError(t, err, context.DeadlineExceeded)
}

func TestRecordAllSkipsFailures(t *testing.T) {
	rec, _ := newTestRecorder(t,
		captureA, captureB, // on
		captureA, captureC, captureC, captureC, captureC, // abandoned
		captureB, captureA, // off
	)

	recorded, err := rec.RecordAll(context.Background(), []string{"on", "broken", "off"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"off", "on"}, recorded.IDs())
	assert.Equal(t, averaged, recorded["on"])
}

func TestRecordAllStopsOnCancel(t *testing.T) {
	rec, _ := newTestRecorder(t, captureA, captureB)
	rec.AttemptTimeout = 0
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	recorded, err := rec.RecordAll(ctx, []string{"on", "off"})
	assert.IsError(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"on"}, recorded.IDs())
}

func TestParseLine(t *testing.T) {
	seq, err := ParseLine("3400, 1700,425 425\t1275")
	assert.NoError(t, err)
	assert.Equal(t, pulse.Sequence{3400, 1700, 425, 425, 1275}, seq)

	_, err = ParseLine("Decoded NEC Value:0x20DF")
	assert.Error(t, err)

	_, err = ParseLine("3400,-1")
	assert.Error(t, err)
}

func TestLineSource(t *testing.T) {
	input := strings.NewReader("# receiver ready\n\nIR receiver v1.2\n3400,1700,425\n  \n425 1275\n")
	src := NewLineSource(input, slogt.New(t))
	defer src.Close()
	ctx := context.Background()

	seq, err := src.Capture(ctx)
	assert.NoError(t, err)
	assert.Equal(t, pulse.Sequence{3400, 1700, 425}, seq)

	seq, err = src.Capture(ctx)
	assert.NoError(t, err)
	assert.Equal(t, pulse.Sequence{425, 1275}, seq)

	_, err = src.Capture(ctx)
	assert.IsError(t, err, io.EOF)
	_, err = src.Capture(ctx)
	assert.IsError(t, err, io.EOF)
}

func TestLineSourceCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	src := NewLineSource(r, slogt.New(t))
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Capture(ctx)
	assert.IsError(t, err, context.Canceled)
}

func TestStoreSinkMergesAndTidies(t *testing.T) {
	ctx := context.Background()
	log := slogt.New(t)
	st := store.NewJSONFile(filepath.Join(t.TempDir(), "codes.json"), log)
	assert.NoError(t, st.Save(ctx, pulse.Database{"y": captureA, "z": {1, 2}}))

	sink := &storeSink{store: st, tidier: pulse.NewTidier(pulse.NewTolerance(15)), log: log}
	assert.NoError(t, sink.Commit(ctx, pulse.Database{"x": averaged, "z": captureA}))

	db, err := st.Load(ctx)
	assert.NoError(t, err)
	tidied := pulse.Sequence{3402, 1698, 425, 425, 425, 1275, 425, 425, 425, 1275, 425, 12750}
	assert.Equal(t, pulse.Database{"x": tidied, "y": tidied, "z": tidied}, db)
}

func TestPublishClient(t *testing.T) {
	var got signalPublishRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/signal", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client, err := newPublishClient(srv.URL, "bench", slogt.New(t))
	assert.NoError(t, err)
	assert.NoError(t, client.Commit(context.Background(), pulse.Database{"cool_26": averaged}))
	assert.Equal(t, signalPublishRequest{
		ID:          "cool_26",
		Pulses:      averaged,
		Fingerprint: averaged.Fingerprint(),
		Collector:   "bench",
	}, got)

	_, err = newPublishClient("ftp://example.com", "", slogt.New(t))
	assert.Error(t, err)
}

func TestPublishClientRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid duration", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := newPublishClient(srv.URL, "", slogt.New(t))
	assert.NoError(t, err)
	err = client.Commit(context.Background(), pulse.Database{"x": captureA})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "400 Bad Request: invalid duration")
}

func TestStartFromFile(t *testing.T) {
	dir := t.TempDir()
	captures := filepath.Join(dir, "captures.txt")
	db := filepath.Join(dir, "codes.json")
	lines := []string{"# two presses per key", join(captureA), join(captureB), join(captureB), join(captureB)}
	assert.NoError(t, os.WriteFile(captures, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	var stdout, stderr bytes.Buffer
	err := Start(context.Background(), []string{"-in", captures, "-f", db, "on", "off"}, nil, &stdout, &stderr)
	assert.NoError(t, err, stderr.String())

	saved, err := store.NewJSONFile(db, slogt.New(t)).Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"off", "on"}, saved.IDs())
	assert.Equal(t, saved["on"], saved["off"])
}

func TestStartNeedsIDs(t *testing.T) {
	var stderr bytes.Buffer
	err := Start(context.Background(), []string{"-in", "-"}, nil, io.Discard, &stderr)
	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "Usage: collector")

	err = Start(context.Background(), []string{"-bogus"}, nil, io.Discard, &stderr)
	assert.True(t, err != nil && !errors.Is(err, io.EOF))
}

func join(s pulse.Sequence) string {
	parts := make([]string, len(s))
	for i, v := range s.Ints() {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
