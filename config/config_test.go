package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 15.0, cfg.Tolerance)
	assert.Equal(t, 425, cfg.UnitTime)
	assert.Equal(t, 3, cfg.Record.Retries)
	assert.Equal(t, 1.15, cfg.ToleranceWindow().Max())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
tolerance: 20
unit_time: 400
record:
  confirm: false
  attempt_timeout: 5s
store:
  backend: badger
  path: /var/lib/ir/codes
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 20.0, cfg.Tolerance)
	assert.Equal(t, 400, cfg.UnitTime)
	assert.False(t, cfg.Record.Confirm)
	assert.Equal(t, 5*time.Second, cfg.Record.AttemptTimeout)
	assert.Equal(t, 3, cfg.Record.Retries)
	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, []string{"localhost:*"}, cfg.Server.Origins)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "tolerance: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "unit_time: 0\nstore:\n  backend: sqlite\n"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unit_time must be positive")
	assert.Contains(t, err.Error(), `store.backend must be "json" or "badger", got "sqlite"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tolerance", func(c *Config) { c.Tolerance = 100 }, "tolerance must be in [0, 100)"},
		{"retries", func(c *Config) { c.Record.Retries = 0 }, "record.retries must be between 1 and 3, got 0"},
		{"too many retries", func(c *Config) { c.Record.Retries = 50 }, "record.retries must be between 1 and 3, got 50"},
		{"short", func(c *Config) { c.Record.Short = -1 }, "record.short must not be negative"},
		{"path", func(c *Config) { c.Store.Path = " " }, "store.path is empty"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format must be text or json"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), test.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "id", "cool_26")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"id":"cool_26"`)
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	log = LoggingConfig{Level: "nonsense"}.NewLogger(&buf)
	log.Debug("hidden")
	log.Info("text line")
	assert.Contains(t, buf.String(), `msg="text line"`)
	assert.NotContains(t, buf.String(), "hidden")
}
