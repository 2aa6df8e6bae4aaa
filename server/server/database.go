package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/derktes/ir-signal-codec/pulse"
	"github.com/derktes/ir-signal-codec/store"
)

// errAlreadySubscribed is returned by notify for a subscriber id in use.
var errAlreadySubscribed = errors.New("already subscribed")

// notFoundError names an unknown signal and the closest known id, if any.
type notFoundError struct {
	id         string
	suggestion string
}

func (e *notFoundError) Error() string {
	if e.suggestion == "" {
		return fmt.Sprintf("signal '%s' cannot be found", e.id)
	}
	return fmt.Sprintf("signal '%s' cannot be found, did you mean '%s'?", e.id, e.suggestion)
}

type signalListener struct {
	subscriber   string
	newEventChan chan newSignalEvent
}

// signalDatabase is the single writer of the canonical database. Every write
// tidies a copy of the database and persists it before the copy becomes
// visible, so readers never see an untidied or unsaved state.
type signalDatabase struct {
	mu        sync.RWMutex
	signals   pulse.Database
	store     store.Store
	tidier    *pulse.Tidier
	listeners map[string]signalListener
	metrics   *metrics
	log       *slog.Logger
}

type signalCRUD interface {
	insert(ctx context.Context, id string, seq pulse.Sequence) (pulse.Sequence, error)
	remove(ctx context.Context, id string) error
	getIDList() []string
	getSignal(id string) (pulse.Sequence, error)
	snapshot() pulse.Database
}

type signalNotifier interface {
	notify(subscriber string) (<-chan newSignalEvent, error)
	unNotify(subscriber string) error
}

func newDatabase(st store.Store, tidier *pulse.Tidier, m *metrics, log *slog.Logger) *signalDatabase {
	return &signalDatabase{
		signals:   pulse.Database{},
		store:     st,
		tidier:    tidier,
		listeners: make(map[string]signalListener),
		metrics:   m,
		log:       log,
	}
}

func (db *signalDatabase) notify(subscriber string) (<-chan newSignalEvent, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.listeners[subscriber]; ok {
		return nil, errAlreadySubscribed
	}
	l := signalListener{subscriber, make(chan newSignalEvent, 16)}
	db.listeners[subscriber] = l
	db.metrics.subscribers.Set(float64(len(db.listeners)))
	return l.newEventChan, nil
}

func (db *signalDatabase) unNotify(subscriber string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.listeners[subscriber]; !ok {
		return fmt.Errorf("subscriber '%s' not found", subscriber)
	}
	delete(db.listeners, subscriber)
	db.metrics.subscribers.Set(float64(len(db.listeners)))
	return nil
}

// broadcast must be called with mu held. A listener that is not keeping up
// misses the event rather than stalling the writer.
func (db *signalDatabase) broadcast(ev newSignalEvent) {
	for _, l := range db.listeners {
		select {
		case l.newEventChan <- ev:
		default:
			db.log.Warn("Dropping event for slow subscriber", "subscriber", l.subscriber, "id", ev.ID)
		}
	}
}

// insert stores seq under id, replacing any previous recording, and returns
// the canonical value after tidying.
func (db *signalDatabase) insert(ctx context.Context, id string, seq pulse.Sequence) (pulse.Sequence, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	next := db.signals.Clone()
	_, replaced := next[id]
	next[id] = seq.Clone()
	next = db.tidier.Tidy(next)

	if err := db.persist(ctx, next); err != nil {
		return nil, err
	}
	db.signals = next
	db.metrics.signals.Set(float64(len(next)))

	canonical := next[id]
	if replaced {
		db.log.Info("Replaced signal", "id", id, "pulses", len(canonical))
	} else {
		db.log.Info("Inserted signal", "id", id, "pulses", len(canonical))
	}
	db.broadcast(newSignalEvent{ID: id, Pulses: canonical.Clone(), Fingerprint: canonical.Fingerprint()})
	return canonical, nil
}

func (db *signalDatabase) remove(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.signals[id]; !ok {
		return db.notFound(id)
	}
	next := db.signals.Clone()
	delete(next, id)
	if err := db.persist(ctx, next); err != nil {
		return err
	}
	db.signals = next
	db.metrics.signals.Set(float64(len(next)))
	db.log.Info("Deleted signal", "id", id)
	db.broadcast(newSignalEvent{ID: id, Deleted: true})
	return nil
}

func (db *signalDatabase) getIDList() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.signals.IDs()
}

func (db *signalDatabase) getSignal(id string) (pulse.Sequence, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	seq, ok := db.signals[id]
	if !ok {
		return nil, db.notFound(id)
	}
	return seq.Clone(), nil
}

func (db *signalDatabase) snapshot() pulse.Database {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.signals.Clone()
}

// notFound must be called with mu held.
func (db *signalDatabase) notFound(id string) error {
	return &notFoundError{id: id, suggestion: closestID(id, db.signals.IDs())}
}

// closestID returns the known id nearest to id by edit distance, when it is
// close enough to be a plausible typo.
func closestID(id string, known []string) string {
	best, bestDist := "", max(2, len(id)/3)+1
	for _, k := range known {
		if d := levenshtein.ComputeDistance(id, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
