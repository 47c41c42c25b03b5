package duraq

import (
	"time"

	"github.com/ostrichlabs/duraq/internal/segment"
	"github.com/prometheus/client_golang/prometheus"
)

// SyncPolicy controls when a Journal's writes reach stable storage.
type SyncPolicy int

const (
	// SyncIntervalPolicy groups writes and syncs no later than
	// Options.SyncInterval after the first unsynced append.
	SyncIntervalPolicy SyncPolicy = iota
	// SyncImmediatePolicy fsyncs after every Put.
	SyncImmediatePolicy
)

func syncPolicyToInternal(p SyncPolicy) segment.SyncPolicy {
	if p == SyncImmediatePolicy {
		return segment.SyncImmediate
	}
	return segment.SyncInterval
}

// Options configures a Journal opened with Open.
type Options struct {
	// SyncPolicy selects when appends become durable. Default:
	// SyncIntervalPolicy.
	SyncPolicy SyncPolicy

	// SyncInterval bounds how long an unsynced append may sit before a
	// background sync picks it up, when SyncPolicy is
	// SyncIntervalPolicy. Default: 1 second.
	SyncInterval time.Duration

	// BufferSize is the writer's buffered-write size in bytes. Default:
	// 64KiB.
	BufferSize int

	// Logger receives structured log events (files skipped or replaced
	// because they could not be read). Default: no logging.
	Logger Logger

	// Registerer, if non-nil, receives this Journal's Prometheus
	// metrics under the "duraq" namespace. Default: no metrics.
	Registerer prometheus.Registerer
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	def := segment.DefaultWriterOptions()
	return &Options{
		SyncPolicy:   SyncIntervalPolicy,
		SyncInterval: def.SyncInterval,
		BufferSize:   def.BufferSize,
	}
}

// Logger is the pluggable structured-logging interface a caller
// implements to receive Journal diagnostics.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// F constructs a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
