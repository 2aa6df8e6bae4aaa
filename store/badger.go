package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/dustin/go-humanize"

	"github.com/derktes/ir-signal-codec/pulse"
)

var signalPrefix = []byte("signal/")

// Badger keeps one key per command in an embedded BadgerDB.
type Badger struct {
	DB  *badger.DB
	log *slog.Logger
}

// NewBadger opens (or creates) the database directory at path.
func NewBadger(path string, log *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log.With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		log.Error("Badger store failed to open database", "path", path, "err", err)
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	log.Info("Badger store opened", "path", path)
	return &Badger{DB: db, log: log}, nil
}

// Load reads every command.
func (b *Badger) Load(ctx context.Context) (pulse.Database, error) {
	db := pulse.Database{}
	err := b.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = signalPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), string(signalPrefix))
			err := item.Value(func(val []byte) error {
				s, err := decodeSequence(val)
				if err != nil {
					return fmt.Errorf("command %q: %w", id, err)
				}
				db[id] = s
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	return db, nil
}

// Save replaces the stored database with db in a single transaction.
func (b *Badger) Save(ctx context.Context, db pulse.Database) error {
	err := b.DB.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = signalPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, id := range db.IDs() {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := encodeSequence(db[id])
			if err != nil {
				return fmt.Errorf("command %q: %w", id, err)
			}
			if err := txn.Set(append(bytes.Clone(signalPrefix), id...), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.log.Error("Badger store failed to save", "err", err)
		return fmt.Errorf("store: save: %w", err)
	}

	lsm, vlog := b.DB.Size()
	b.log.Info("Database saved", "commands", len(db),
		"lsm", humanize.Bytes(uint64(lsm)), "vlog", humanize.Bytes(uint64(vlog)))
	return nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	if err := b.DB.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	b.log.Info("Badger store closed")
	return nil
}

func encodeSequence(s pulse.Sequence) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode([]float64(s)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSequence(data []byte) (pulse.Sequence, error) {
	var v []float64
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return pulse.Sequence(v), nil
}

// badgerLogger routes badger's printf logging into slog.
type badgerLogger struct{ log *slog.Logger }

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l badgerLogger) Infof(f string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (l badgerLogger) Debugf(f string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(f, v...)))
}
