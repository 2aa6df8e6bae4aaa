// Package store persists the signal database.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/derktes/ir-signal-codec/config"
	"github.com/derktes/ir-signal-codec/pulse"
)

// Store loads and saves a whole signal database. Save replaces the previous
// contents atomically: a failed Save leaves the stored database as it was.
type Store interface {
	Load(ctx context.Context) (pulse.Database, error)
	Save(ctx context.Context, db pulse.Database) error
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg config.StoreConfig, log *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewJSONFile(cfg.Path, log), nil
	case config.BackendBadger:
		return NewBadger(cfg.Path, log)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
