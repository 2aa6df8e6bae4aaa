package server

import (
	"context"
	"fmt"

	"github.com/derktes/ir-signal-codec/pulse"
)

// load replaces the in-memory database with the stored one. The stored
// database is tidied on the way in, since it may have been edited by hand.
func (db *signalDatabase) load(ctx context.Context) error {
	loaded, err := db.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading signal database: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.signals = db.tidier.Tidy(loaded)
	db.metrics.signals.Set(float64(len(db.signals)))
	db.log.Info("Signal database loaded", "signals", len(db.signals))
	return nil
}

// persist must be called with mu held. On failure the previous stored
// database is left in place by the store.
func (db *signalDatabase) persist(ctx context.Context, next pulse.Database) error {
	if err := db.store.Save(ctx, next); err != nil {
		db.metrics.persistErrors.Inc()
		db.log.Error("Failed to persist signal database", "err", err)
		return fmt.Errorf("persisting signal database: %w", err)
	}
	return nil
}
