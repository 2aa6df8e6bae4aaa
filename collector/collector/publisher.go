package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/derktes/ir-signal-codec/pulse"
	"github.com/derktes/ir-signal-codec/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sink receives the commands confirmed in one recording session.
type Sink interface {
	Commit(ctx context.Context, recorded pulse.Database) error
}

type publishClient struct {
	serverURL   string
	collectorID string
	client      *http.Client
	log         *slog.Logger
}

func newPublishClient(serverURL, collectorID string, log *slog.Logger) (*publishClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("collector: server URL %q must be http or https", serverURL)
	}
	return &publishClient{
		serverURL:   u.JoinPath("signal").String(),
		collectorID: collectorID,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}, nil
}

// Commit publishes every recorded command. The server merges, tidies and
// persists them.
func (pc *publishClient) Commit(ctx context.Context, recorded pulse.Database) error {
	for _, id := range recorded.IDs() {
		if err := pc.publishSignal(ctx, id, recorded[id]); err != nil {
			return err
		}
	}
	return nil
}

func (pc *publishClient) publishSignal(ctx context.Context, id string, seq pulse.Sequence) error {
	body, err := json.Marshal(signalPublishRequest{
		ID:          id,
		Pulses:      seq,
		Fingerprint: seq.Fingerprint(),
		Collector:   pc.collectorID,
	})
	if err != nil {
		return fmt.Errorf("collector: encode %q: %w", id, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.serverURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := pc.client.Do(req)
	if err != nil {
		return fmt.Errorf("collector: publish %q: %w", id, err)
	}
	defer response.Body.Close()
	if response.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("collector: publish %q: server returned %s: %s", id, response.Status, bytes.TrimSpace(msg))
	}
	pc.log.Info("Published signal", "id", id, "status", response.StatusCode)
	return nil
}

// storeSink merges a session into the local database.
type storeSink struct {
	store  store.Store
	tidier *pulse.Tidier
	log    *slog.Logger
}

// Commit loads the database, overwrites the recorded commands, tidies the
// result and saves it. Nothing is saved if any step fails.
func (s *storeSink) Commit(ctx context.Context, recorded pulse.Database) error {
	db, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	for id, seq := range recorded {
		if _, ok := db[id]; ok {
			s.log.Info("Replacing existing command", "id", id)
		}
		db[id] = seq
	}
	return s.store.Save(ctx, s.tidier.Tidy(db))
}
