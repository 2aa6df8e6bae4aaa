package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"github.com/derktes/ir-signal-codec/pulse"
)

// map keys are sorted, so files diff cleanly between recordings
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// backupSuffixes lists the rotation order, newest first.
var backupSuffixes = []string{".bak", ".bak1", ".bak2"}

// JSONFile keeps the database as one JSON object, one command per line.
type JSONFile struct {
	path string
	log  *slog.Logger
}

// NewJSONFile returns a store backed by path. The file need not exist yet.
func NewJSONFile(path string, log *slog.Logger) *JSONFile {
	return &JSONFile{path: path, log: log}
}

// Path returns the database file name.
func (f *JSONFile) Path() string { return f.path }

// Load reads the database. A missing file is an empty database.
func (f *JSONFile) Load(ctx context.Context) (pulse.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.log.Info("Database file not found, starting empty", "path", f.path)
		return pulse.Database{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}

	db, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, f.path)
	}
	for id, s := range db {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("store: command %q: %w", id, err)
		}
	}
	f.log.Debug("Database loaded", "path", f.path, "commands", len(db), "size", humanize.Bytes(uint64(len(data))))
	return db, nil
}

// Save rotates the backups, then writes db to a temporary file and renames
// it over the database.
func (f *JSONFile) Save(ctx context.Context, db pulse.Database) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(db)
	if err != nil {
		return err
	}

	if err := f.rotate(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("store: replace %s: %w", f.path, err)
	}

	f.log.Info("Database saved", "path", f.path, "commands", len(db), "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// rotate shifts f.bak1 to f.bak2, f.bak to f.bak1 and copies f to f.bak. The
// live file stays in place until the new one is renamed over it.
func (f *JSONFile) rotate() error {
	for i := len(backupSuffixes) - 1; i > 0; i-- {
		from, to := f.path+backupSuffixes[i-1], f.path+backupSuffixes[i]
		if err := os.Rename(from, to); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("store: rotate %s: %w", from, err)
		}
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: backup %s: %w", f.path, err)
	}
	if err := os.WriteFile(f.path+backupSuffixes[0], data, 0o644); err != nil {
		return fmt.Errorf("store: backup %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op.
func (f *JSONFile) Close() error { return nil }

// Marshal renders db with sorted keys, one command per line.
func Marshal(db pulse.Database) ([]byte, error) {
	if db == nil {
		db = pulse.Database{}
	}
	data, err := json.Marshal(db)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	data = bytes.ReplaceAll(data, []byte("],"), []byte("],\n"))
	return append(data, '\n'), nil
}

// Unmarshal parses a database file, such as one written by Marshal.
func Unmarshal(data []byte) (pulse.Database, error) {
	db := pulse.Database{}
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("store: decode: %w", err)
	}
	return db, nil
}
