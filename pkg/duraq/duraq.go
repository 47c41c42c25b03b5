// Package duraq is the public entry point for a durable, file-backed
// append-only journal. It wraps internal/journal's façade with the
// pieces spec.md §6.2 leaves to an external collaborator — a monotonic
// id generator and the initialHead a caller supplies for a first-ever
// reader — so the package is usable standalone, the way the teacher's
// pkg/ledgerq wraps internal/queue.
//
// Example usage:
//
//	j, err := duraq.Open("/var/lib/duraq", "orders", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer j.Close()
//
//	id, err := j.Put([]byte("order-42"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r, err := j.Reader("billing", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := r.StartReadBehind(1); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.EndReadBehind()
//	item, err := r.NextReadBehind()
package duraq

import (
	"sync/atomic"
	"time"

	"github.com/ostrichlabs/duraq/internal/journal"
	"github.com/ostrichlabs/duraq/internal/logging"
	"github.com/ostrichlabs/duraq/internal/metrics"
	"github.com/ostrichlabs/duraq/internal/segment"
	"github.com/ostrichlabs/duraq/internal/wire"
)

// Version identifies the wire format this package reads and writes.
const Version = "1.0.0"

// Journal is a durable, file-backed append-only log for one queue name.
// Ids are assigned by an in-process monotonic counter seeded from the
// existing archive at Open, so multiple Journal instances must never be
// opened against the same directory concurrently from different
// processes.
type Journal struct {
	inner  *journal.Journal
	nextID atomic.Uint64
}

// Open opens or creates the named queue's journal under dir. If opts is
// nil, DefaultOptions() is used.
func Open(dir, queueName string, opts *Options) (*Journal, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	inner, err := journal.Open(dir, queueName, opts.toInternal())
	if err != nil {
		return nil, err
	}

	seed, err := inner.SeedNextID()
	if err != nil {
		_ = inner.Close()
		return nil, err
	}

	j := &Journal{inner: inner}
	j.nextID.Store(seed)
	return j, nil
}

// Put assigns the next id, appends an item carrying data, and returns
// the assigned id. AddTime is recorded as time.Now().UnixMilli().
func (j *Journal) Put(data []byte) (uint64, error) {
	return j.PutWithExpiry(data, 0)
}

// PutWithExpiry is Put with an absolute expiry time (Unix milliseconds,
// 0 for none). The journal itself never drops expired items; it is the
// consumer's responsibility to check Item.Expired before acting on one.
func (j *Journal) PutWithExpiry(data []byte, expireTime int64) (uint64, error) {
	id := j.nextID.Add(1) - 1
	p := &wire.Put{ID: id, AddTime: time.Now().UnixMilli(), ExpireTime: expireTime, Data: data}
	if err := j.inner.Append(p); err != nil {
		return 0, err
	}
	return id, nil
}

// Reader returns the named reader, creating it fresh at initialHead if
// this is the first time it has been opened. initialHead is typically
// the id most recently returned by Put, so a brand-new reader starts at
// the tail (spec.md §6.2).
func (j *Journal) Reader(name string, initialHead uint64) (*Reader, error) {
	st, err := j.inner.Reader(name, initialHead)
	if err != nil {
		return nil, err
	}
	return &Reader{journal: j.inner, name: name, state: st}, nil
}

// FileForID returns the path of the segment that would contain id.
func (j *Journal) FileForID(id uint64) (string, bool) {
	return j.inner.FileForID(id)
}

// ArchiveSize returns the current total on-disk size of the queue's
// segments, in bytes.
func (j *Journal) ArchiveSize() (int64, error) {
	return j.inner.ArchiveSize()
}

// Checkpoint durably persists every reader's current progress.
func (j *Journal) Checkpoint() error {
	return j.inner.Checkpoint()
}

// Close flushes and closes the active writer segment. Callers that want
// reader progress preserved across a restart should call Checkpoint
// first.
func (j *Journal) Close() error {
	return j.inner.Close()
}

// Rotate closes the active segment and opens a new, empty one, returning
// its path. Callers decide when to rotate, typically by watching
// ArchiveSize (spec.md §6.2, §9).
func (j *Journal) Rotate() (string, error) {
	return j.inner.Rotate()
}

// Truncate removes the segment at path if it is safe to do so: no live
// reader may still need an id it contains. Returns ErrSegmentInUse
// otherwise.
func (j *Journal) Truncate(path string) error {
	return j.inner.Truncate(path)
}

// QueueNamesFromDir returns the set of queue names with segments present
// under dir.
func QueueNamesFromDir(dir string) (map[string]struct{}, error) {
	return journal.QueueNamesFromDir(dir)
}

// Stats returns a point-in-time summary of the journal's archive.
func (j *Journal) Stats() (*Stats, error) {
	size, err := j.inner.ArchiveSize()
	if err != nil {
		return nil, err
	}
	return &Stats{
		NextID:      j.nextID.Load(),
		ArchiveSize: size,
	}, nil
}

func (o *Options) toInternal() journal.Options {
	opts := journal.DefaultOptions()
	opts.WriterOptions = segment.WriterOptions{
		SyncPolicy:   syncPolicyToInternal(o.SyncPolicy),
		SyncInterval: o.SyncInterval,
		BufferSize:   o.BufferSize,
	}
	opts.Logger = convertLogger(o.Logger)
	if o.Registerer != nil {
		opts.Metrics = metrics.NewCollector(o.Registerer)
	}
	return opts
}

func convertLogger(l Logger) logging.Logger {
	if l == nil {
		return logging.NoopLogger{}
	}
	return &loggerAdapter{l: l}
}

type loggerAdapter struct{ l Logger }

func (a *loggerAdapter) Debug(msg string, fields ...logging.Field) {
	a.l.Debug(msg, convertFields(fields)...)
}
func (a *loggerAdapter) Info(msg string, fields ...logging.Field) {
	a.l.Info(msg, convertFields(fields)...)
}
func (a *loggerAdapter) Warn(msg string, fields ...logging.Field) {
	a.l.Warn(msg, convertFields(fields)...)
}
func (a *loggerAdapter) Error(msg string, fields ...logging.Field) {
	a.l.Error(msg, convertFields(fields)...)
}

func convertFields(fields []logging.Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Key: f.Key, Value: f.Value}
	}
	return out
}
