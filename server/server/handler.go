package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/xxh3"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/derktes/ir-signal-codec/aeha"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// badRequestError marks input the client has to fix.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &badRequestError{fmt.Errorf(format, args...)}
}

func statusFor(err error) int {
	var (
		nf *notFoundError
		br *badRequestError
		re *aeha.RangeError
		fe *aeha.FieldError
		de *aeha.DecodeError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &br), errors.As(err, &re), errors.As(err, &fe), errors.As(err, &de),
		errors.Is(err, aeha.ErrNoDataFrame):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	output, err := json.Marshal(v)
	if err != nil {
		s.log.Error("Failed to encode response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	w.Write(output)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var nf *notFoundError
	if errors.As(err, &nf) {
		resp.Suggestion = nf.suggestion
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.log.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, resp)
}

func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("reading request body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("malformed request: %w", err)
	}
	return nil
}

func (s *Server) signalListHandler(w http.ResponseWriter, r *http.Request) {
	db := s.db.snapshot()
	list := make([]signalSummary, 0, len(db))
	for _, id := range db.IDs() {
		list = append(list, signalSummary{ID: id, Length: len(db[id]), Fingerprint: db[id].Fingerprint()})
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) signalPublishHandler(w http.ResponseWriter, r *http.Request) {
	var req signalPublishRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, &badRequestError{err})
		return
	}
	s.log.Debug("Publish request", "id", req.ID, "collector", req.Collector, "pulses", len(req.Pulses))

	canonical, err := s.db.insert(r.Context(), req.ID, req.Pulses)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, signalDetail{ID: req.ID, Pulses: canonical.Ints(), Fingerprint: canonical.Fingerprint()})
}

func (s *Server) signalQueryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	seq, err := s.db.getSignal(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, signalDetail{ID: id, Pulses: seq.Ints(), Fingerprint: seq.Fingerprint()})
}

func (s *Server) signalDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) signalDecodeHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	unit, err := parseUnit(r.URL.Query().Get("unit"), s.unit)
	if err != nil {
		s.writeError(w, r, &badRequestError{err})
		return
	}
	seq, err := s.db.getSignal(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := decodeFrame(seq, unit)
	s.metrics.codecResult("decode", err)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("decoding '%s': %w", id, err))
		return
	}
	resp.ID = id
	s.writeJSON(w, http.StatusOK, resp)
}

// batchDecodeHandler decodes every stored signal. One bad signal is reported
// in its own entry and does not fail the request.
func (s *Server) batchDecodeHandler(w http.ResponseWriter, r *http.Request) {
	unit, err := parseUnit(r.URL.Query().Get("unit"), s.unit)
	if err != nil {
		s.writeError(w, r, &badRequestError{err})
		return
	}
	type entry struct {
		ID    string   `json:"id"`
		Hex   aeha.Hex `json:"hex,omitempty"`
		Line  string   `json:"line"`
		Error string   `json:"error,omitempty"`
	}
	results := aeha.DecodeAll(s.db.snapshot(), unit)
	out := make([]entry, 0, len(results))
	for _, res := range results {
		s.metrics.codecResult("decode", res.Err)
		e := entry{ID: res.ID, Line: res.String()}
		if res.Err != nil {
			e.Error = res.Err.Error()
		} else {
			e.Hex = res.Result.Hex
		}
		out = append(out, e)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Pulses.Validate(); err != nil {
		s.writeError(w, r, &badRequestError{err})
		return
	}
	unit := req.Unit
	if unit == 0 {
		unit = s.unit
	}
	if unit < 0 {
		s.writeError(w, r, badRequest("unit time must be positive, got %d", unit))
		return
	}
	resp, err := decodeFrame(req.Pulses, unit)
	s.metrics.codecResult("decode", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) encodeHandler(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	format := aeha.FormatPanasonic
	if req.Format != nil {
		format = *req.Format
	}
	unit := req.Unit
	if unit == 0 {
		unit = s.unit
	}
	repeat := req.Repeat
	if repeat == 0 {
		repeat = 1
	}
	if unit < 0 || repeat < 0 || repeat > aeha.MaxRepeat {
		s.writeError(w, r, badRequest("unit must be positive and repeat between 1 and %d", aeha.MaxRepeat))
		return
	}

	h, err := aeha.EncodePanasonic(req.Message)
	if err != nil {
		s.metrics.codecResult("encode", err)
		s.writeError(w, r, err)
		return
	}
	wave, err := aeha.Waveform(format, h, unit, repeat)
	s.metrics.codecResult("encode", err)
	if err != nil {
		s.writeError(w, r, &badRequestError{err})
		return
	}
	s.writeJSON(w, http.StatusOK, encodeResponse{Format: format, Hex: h, Spaced: h.Spaced(), Waveform: wave.Ints()})
}

func (s *Server) signalStreamHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.log.Warn("Websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.log.Info("Accepted websocket request", "remote", r.RemoteAddr)
	defer s.log.Info("Closing websocket connection", "remote", r.RemoteAddr)
	defer c.Close(websocket.StatusNormalClosure, "Handler exits")

	subscriber := getSubscriberID(r.RemoteAddr)
	onNewSignal, err := s.db.notify(subscriber)
	if err != nil {
		s.log.Debug("Subscription refused", "subscriber", subscriber, "err", err)
		c.Close(websocket.StatusPolicyViolation, "Already subscribed")
		return
	}
	defer func() {
		if err := s.db.unNotify(subscriber); err != nil {
			s.log.Debug("Unsubscribe failed", "subscriber", subscriber, "err", err)
		}
	}()

	ctx := c.CloseRead(r.Context())
	for {
		select {
		case ev := <-onNewSignal:
			if err := writeEvent(ctx, c, ev); err != nil {
				s.log.Warn("Websocket write failed", "remote", r.RemoteAddr, "err", err)
				return
			}
		case <-ctx.Done():
			return
		case <-s.done:
			c.Close(websocket.StatusGoingAway, "Server shutting down")
			return
		}
	}
}

func getSubscriberID(data string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(data))
}

func writeEvent(ctx context.Context, c *websocket.Conn, ev newSignalEvent) error {
	ctx, cancelFunc := context.WithTimeout(ctx, 1*time.Second)
	defer cancelFunc()

	return wsjson.Write(ctx, c, ev)
}
