// Package config loads the YAML configuration shared by the collector, the
// server and the codec command.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/derktes/ir-signal-codec/pulse"
)

// Config represents the complete configuration
type Config struct {
	Tolerance float64       `yaml:"tolerance"`
	UnitTime  int           `yaml:"unit_time"`
	Record    RecordConfig  `yaml:"record"`
	Serial    SerialConfig  `yaml:"serial"`
	Server    ServerConfig  `yaml:"server"`
	Store     StoreConfig   `yaml:"store"`
	Logging   LoggingConfig `yaml:"logging"`
}

// RecordConfig controls the capture and confirmation loop.
type RecordConfig struct {
	Confirm        bool          `yaml:"confirm"`
	Retries        int           `yaml:"retries"`
	Short          int           `yaml:"short"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

// SerialConfig names the receiver's serial port
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address    string   `yaml:"address"`
	Origins    []string `yaml:"origins"`
	PublishURL string   `yaml:"publish_url"`
}

// Store backends.
// MaxRetries caps record.retries.
const MaxRetries = 3

const (
	BackendJSON   = "json"
	BackendBadger = "badger"
)

// StoreConfig selects where the signal database lives.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Tolerance: pulse.DefaultTolerancePercent,
		UnitTime:  425,
		Record: RecordConfig{
			Confirm:        true,
			Retries:        MaxRetries,
			Short:          10,
			AttemptTimeout: 30 * time.Second,
		},
		Serial: SerialConfig{
			Port: "/dev/ttyACM0",
			Baud: 115200,
		},
		Server: ServerConfig{
			Address: ":8080",
			Origins: []string{"localhost:*"},
		},
		Store: StoreConfig{
			Backend: BackendJSON,
			Path:    "codes.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads filename over the defaults and validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Tolerance < 0 || c.Tolerance >= 100 {
		errs = append(errs, fmt.Errorf("tolerance must be in [0, 100), got %v", c.Tolerance))
	}
	if c.UnitTime <= 0 {
		errs = append(errs, fmt.Errorf("unit_time must be positive, got %d", c.UnitTime))
	}
	if c.Record.Retries < 1 || c.Record.Retries > MaxRetries {
		errs = append(errs, fmt.Errorf("record.retries must be between 1 and %d, got %d", MaxRetries, c.Record.Retries))
	}
	if c.Record.Short < 0 {
		errs = append(errs, fmt.Errorf("record.short must not be negative, got %d", c.Record.Short))
	}
	if c.Record.AttemptTimeout < 0 {
		errs = append(errs, fmt.Errorf("record.attempt_timeout must not be negative, got %s", c.Record.AttemptTimeout))
	}
	switch c.Store.Backend {
	case BackendJSON, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", BackendJSON, BackendBadger, c.Store.Backend))
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is empty"))
	}
	if _, err := c.Logging.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// ToleranceWindow returns the configured matching window.
func (c *Config) ToleranceWindow() pulse.Tolerance {
	return pulse.NewTolerance(c.Tolerance)
}

func (l LoggingConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w in the configured format. An invalid
// level falls back to info.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
