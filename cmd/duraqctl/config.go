package main

import (
	"fmt"

	"github.com/ostrichlabs/duraq/internal/config"
	"github.com/ostrichlabs/duraq/internal/logging"
	"github.com/ostrichlabs/duraq/pkg/duraq"
)

// configPath is bound to the --config persistent flag in main.go.
var configPath string

// loadOptions returns the duraq.Options a --config flag describes, or nil
// if none was given, in which case callers fall back to duraq's defaults.
func loadOptions() (*duraq.Options, error) {
	if configPath == "" {
		return nil, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", configPath, err)
	}

	opts := duraq.DefaultOptions()
	opts.SyncInterval = cfg.SyncInterval
	opts.BufferSize = cfg.BufferSize
	if cfg.SyncPolicy == "immediate" {
		opts.SyncPolicy = duraq.SyncImmediatePolicy
	}
	opts.Logger = &cliLogger{inner: logging.NewDefaultLogger(cfg.LogLevelValue())}
	return opts, nil
}

// cliLogger adapts internal/logging's Logger to duraq's public Logger
// interface so duraqctl can honor a config file's logLevel.
type cliLogger struct {
	inner *logging.DefaultLogger
}

func (l *cliLogger) Debug(msg string, fields ...duraq.Field) { l.inner.Debug(msg, toLoggingFields(fields)...) }
func (l *cliLogger) Info(msg string, fields ...duraq.Field)  { l.inner.Info(msg, toLoggingFields(fields)...) }
func (l *cliLogger) Warn(msg string, fields ...duraq.Field)  { l.inner.Warn(msg, toLoggingFields(fields)...) }
func (l *cliLogger) Error(msg string, fields ...duraq.Field) { l.inner.Error(msg, toLoggingFields(fields)...) }

func toLoggingFields(fields []duraq.Field) []logging.Field {
	out := make([]logging.Field, len(fields))
	for i, f := range fields {
		out[i] = logging.F(f.Key, f.Value)
	}
	return out
}
