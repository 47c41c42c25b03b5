// Package config loads duraqctl's on-disk configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ostrichlabs/duraq/internal/logging"
	"github.com/ostrichlabs/duraq/internal/segment"
)

// Config is the top-level shape of a duraq configuration file.
type Config struct {
	Dir          string        `yaml:"dir"`
	LogLevel     string        `yaml:"logLevel"`
	SyncPolicy   string        `yaml:"syncPolicy"`
	SyncInterval time.Duration `yaml:"syncInterval"`
	BufferSize   int           `yaml:"bufferSize"`
}

// Default returns a Config with the same defaults segment.DefaultWriterOptions
// and logging.LevelInfo carry.
func Default() Config {
	def := segment.DefaultWriterOptions()
	return Config{
		Dir:          ".",
		LogLevel:     "info",
		SyncPolicy:   "interval",
		SyncInterval: def.SyncInterval,
		BufferSize:   def.BufferSize,
	}
}

// Load reads and parses a YAML configuration file at path, filling in
// defaults for any field the file leaves unset.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied CLI configuration
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LogLevelValue translates the configured log level string into a
// logging.Level, defaulting to LevelInfo for an unrecognized value.
func (c Config) LogLevelValue() logging.Level {
	switch c.LogLevel {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// WriterOptions translates the configured sync policy into
// segment.WriterOptions.
func (c Config) WriterOptions() segment.WriterOptions {
	policy := segment.SyncInterval
	if c.SyncPolicy == "immediate" {
		policy = segment.SyncImmediate
	}
	return segment.WriterOptions{
		SyncPolicy:   policy,
		SyncInterval: c.SyncInterval,
		BufferSize:   c.BufferSize,
	}
}
