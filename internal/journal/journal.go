// Package journal is the durable journal's composition root: it owns
// one queue's writer segments, its cross-segment id index, and the set
// of readers checkpointed against it, generalizing the teacher's
// segment.Manager (rotation-aware writer owner) and queue.Queue
// (top-level composition root) to spec.md §4.5's contract.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ostrichlabs/duraq/internal/index"
	"github.com/ostrichlabs/duraq/internal/logging"
	"github.com/ostrichlabs/duraq/internal/metrics"
	"github.com/ostrichlabs/duraq/internal/reader"
	"github.com/ostrichlabs/duraq/internal/segment"
	"github.com/ostrichlabs/duraq/internal/wire"
)

// Options configures a Journal.
type Options struct {
	WriterOptions segment.WriterOptions
	Logger        logging.Logger
	Metrics       *metrics.Collector
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		WriterOptions: segment.DefaultWriterOptions(),
		Logger:        logging.NoopLogger{},
	}
}

// Journal is one queue's durable append-only log plus its readers
// (spec.md §4.5).
type Journal struct {
	dir       string
	queueName string
	opts      Options

	mu     sync.Mutex // guards writer and activeFirstID
	writer *segment.Writer

	activeFirstID   uint64
	haveActiveFirst bool

	idx atomic.Pointer[index.Snapshot]

	readersMu sync.Mutex // serializes the create-then-insert decision in Reader
	readers   atomic.Pointer[readerSet]

	// itemCache is shared by every reader's read-behind cursor, so
	// readers independently scanning the same cold range of a segment
	// don't each pay a fresh decode (spec.md §5, SPEC_FULL.md DOMAIN
	// STACK).
	itemCache *reader.ItemCache

	closed bool
}

// readerSet is an immutable, copy-on-write snapshot of a journal's
// readers, mirroring internal/index.Snapshot's discipline: reads of the
// current pointer are lock-free, and any insertion replaces the whole
// map rather than mutating it in place (spec.md §5).
type readerSet struct {
	byName map[string]*reader.State
}

func newReaderSet(byName map[string]*reader.State) *readerSet {
	return &readerSet{byName: byName}
}

func (r *readerSet) get(name string) (*reader.State, bool) {
	if r == nil {
		return nil, false
	}
	st, ok := r.byName[name]
	return st, ok
}

func (r *readerSet) withInserted(name string, st *reader.State) *readerSet {
	out := make(map[string]*reader.State, len(r.byName)+1)
	for k, v := range r.byName {
		out[k] = v
	}
	out[name] = st
	return newReaderSet(out)
}

// Open discovers queueName's existing segments and reader state files
// under dir, builds the id index, replays every reader, and prepares an
// active writer segment to append to — creating one if none exists. A
// corrupt writer or reader file is logged and skipped rather than
// failing the open (spec.md §4.5, §7).
func Open(dir, queueName string, opts Options) (*Journal, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NoopLogger{}
	}

	snap, err := index.Build(dir, queueName, opts.Logger)
	if err != nil {
		return nil, err
	}

	infos, err := segment.Discover(dir, queueName)
	if err != nil {
		return nil, err
	}

	var activePath string
	var activeFirstID uint64
	haveActiveFirst := false
	if len(infos) > 0 {
		last := infos[len(infos)-1]
		activePath = last.Path
		if fid, ok := lastSegmentFirstID(snap, last.Path); ok {
			activeFirstID, haveActiveFirst = fid, true
		}
	} else {
		activePath = filepath.Join(dir, segment.FormatName(queueName, time.Now().UnixMilli()))
	}

	w, err := segment.OpenForAppend(activePath, opts.WriterOptions)
	if err != nil {
		return nil, err
	}

	readerNames, err := segment.DiscoverReaders(dir, queueName)
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	readers := make(map[string]*reader.State, len(readerNames))
	for _, name := range readerNames {
		path := segment.ReaderStatePath(dir, queueName, name)
		st, err := reader.LoadState(name, path)
		if err != nil {
			opts.Logger.Warn("journal: skipping unreadable reader state",
				logging.F("reader", name), logging.F("err", err))
			continue
		}
		readers[name] = st
	}

	itemCache, err := reader.NewItemCache()
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	j := &Journal{
		dir:             dir,
		queueName:       queueName,
		opts:            opts,
		writer:          w,
		activeFirstID:   activeFirstID,
		haveActiveFirst: haveActiveFirst,
		itemCache:       itemCache,
	}
	j.idx.Store(snap)
	j.readers.Store(newReaderSet(readers))
	return j, nil
}

func lastSegmentFirstID(snap *index.Snapshot, path string) (uint64, bool) {
	for _, e := range snap.Entries() {
		if e.Path == path {
			return e.FirstID, true
		}
	}
	return 0, false
}

// Append writes p to the active segment. The caller is responsible for
// assigning p.ID (spec.md §6.2 leaves monotonic id generation to the
// external collaborator). If this is the first item written to a fresh
// segment, the id index gains an entry for it under copy-on-write.
func (j *Journal) Append(p *wire.Put) error {
	start := time.Now()
	err := j.appendLocked(p)
	if err != nil {
		j.opts.Metrics.RecordAppendError(j.queueName)
		return err
	}
	j.opts.Metrics.RecordAppend(j.queueName, len(p.Data), time.Since(start))
	return nil
}

func (j *Journal) appendLocked(p *wire.Put) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}

	isFirst := !j.haveActiveFirst
	if err := j.writer.AppendPut(p); err != nil {
		return err
	}

	if isFirst {
		j.activeFirstID = p.ID
		j.haveActiveFirst = true
		for {
			old := j.idx.Load()
			next := old.WithInserted(index.Entry{FirstID: p.ID, Path: j.writer.Path()})
			if j.idx.CompareAndSwap(old, next) {
				break
			}
		}
	}
	return nil
}

// Reader returns the named reader's state, loading it from disk or
// creating it fresh at initialHead if this is the first time it has
// been opened (spec.md §4.5, §9). A state file that cannot be read is
// logged and replaced by a fresh state at initialHead. Reads of the current reader set are
// lock-free; readersMu only serializes the create-then-insert decision
// so concurrent first-opens of the same name still race safely to a
// single State, which is then published via a copy-on-write swap of the
// whole set (spec.md §5).
func (j *Journal) Reader(name string, initialHead uint64) (*reader.State, error) {
	if st, ok := j.readers.Load().get(name); ok {
		return st, nil
	}

	j.readersMu.Lock()
	defer j.readersMu.Unlock()

	if st, ok := j.readers.Load().get(name); ok {
		return st, nil
	}

	path := segment.ReaderStatePath(j.dir, j.queueName, name)
	var st *reader.State
	if _, err := os.Stat(path); os.IsNotExist(err) {
		st = reader.NewState(name, path, initialHead)
	} else {
		loaded, err := reader.LoadState(name, path)
		if err != nil {
			j.opts.Logger.Warn("journal: replacing unreadable reader state",
				logging.F("reader", name), logging.F("err", err))
			loaded = reader.NewState(name, path, initialHead)
		}
		st = loaded
	}

	j.readers.Store(j.readers.Load().withInserted(name, st))
	return st, nil
}

// FileForID returns the path of the segment that would contain id, per
// the current id index snapshot (spec.md §4.3).
func (j *Journal) FileForID(id uint64) (string, bool) {
	return j.idx.Load().FileForID(id)
}

// ArchiveSize returns the current total on-disk size of queueName's
// segments (spec.md §4.5).
func (j *Journal) ArchiveSize() (int64, error) {
	infos, err := segment.Discover(j.dir, j.queueName)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, info := range infos {
		total += info.Size
	}
	j.opts.Metrics.UpdateArchiveSize(j.queueName, total)
	return total, nil
}

// Checkpoint durably persists every reader's current state.
func (j *Journal) Checkpoint() error {
	for name, st := range j.readers.Load().byName {
		start := time.Now()
		if err := st.Checkpoint(); err != nil {
			j.opts.Metrics.RecordCheckpointError(j.queueName)
			return fmt.Errorf("journal: checkpointing reader %s: %w", name, err)
		}
		j.opts.Metrics.RecordCheckpoint(j.queueName, time.Since(start))
		j.opts.Metrics.UpdateReaderState(j.queueName, name, st.Head(), len(st.DoneSet()))
	}
	return nil
}

// Close flushes and closes the active writer segment. It does not
// checkpoint readers; callers that want a durable snapshot of reader
// progress on shutdown should call Checkpoint first.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.writer.Close()
}

// QueueNamesFromDir returns the set of queue names with segments
// present in dir (spec.md §4.5).
func QueueNamesFromDir(dir string) (map[string]struct{}, error) {
	return segment.QueueNamesFromDir(dir)
}

// Rotate closes the active segment and opens a new one, timestamped at
// the moment of rotation. The external hot-queue collaborator decides
// when to call this (spec.md §9's open question); the journal itself
// never rotates on its own.
func (j *Journal) Rotate() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return "", ErrClosed
	}

	if err := j.writer.Close(); err != nil {
		return "", err
	}

	newPath := filepath.Join(j.dir, segment.FormatName(j.queueName, time.Now().UnixMilli()))
	w, err := segment.OpenForAppend(newPath, j.opts.WriterOptions)
	if err != nil {
		return "", err
	}

	j.writer = w
	j.haveActiveFirst = false
	j.activeFirstID = 0
	j.opts.Metrics.RecordRotation(j.queueName)
	return newPath, nil
}

// Truncate removes the segment at path, provided no live reader's head
// is still below the last id it holds (one less than the first id of the
// segment that follows it) — removing it earlier would strand that
// reader mid-segment (spec.md §3). The
// caller (the external hot-queue collaborator) decides when truncation
// is appropriate; the journal only enforces the safety precondition.
func (j *Journal) Truncate(path string) error {
	snap := j.idx.Load()
	entries := snap.Entries()

	var target, nextEntry *index.Entry
	for i := range entries {
		if entries[i].Path == path {
			target = &entries[i]
			if i+1 < len(entries) {
				nextEntry = &entries[i+1]
			}
			break
		}
	}
	if target == nil {
		return fmt.Errorf("journal: no known segment at %s", path)
	}

	j.mu.Lock()
	isActive := j.writer.Path() == path
	j.mu.Unlock()
	if isActive {
		return fmt.Errorf("journal: %w: cannot truncate the active writer segment", ErrSegmentInUse)
	}

	if nextEntry != nil {
		minHead := nextEntry.FirstID - 1
		for _, st := range j.readers.Load().byName {
			if st.Head() < minHead {
				return ErrSegmentInUse
			}
		}
	}

	size, statErr := fileSize(path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("journal: removing segment %s: %w", path, err)
	}

	for {
		old := j.idx.Load()
		next := old.WithRemoved(path)
		if j.idx.CompareAndSwap(old, next) {
			break
		}
	}

	if statErr == nil {
		j.opts.Metrics.RecordTruncation(j.queueName, 1, size)
	}
	return nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// StartReadBehind opens name's read-behind cursor at fromID against the
// journal's current id index, without disturbing the reader's live head
// or doneSet (spec.md §4.4).
func (j *Journal) StartReadBehind(name string, fromID uint64) error {
	st, err := j.readerOrErr(name)
	if err != nil {
		return err
	}
	return st.StartReadBehind(j.idx.Load(), j.itemCache, fromID)
}

// NextReadBehind returns name's next read-behind item.
func (j *Journal) NextReadBehind(name string) (*wire.Put, error) {
	st, err := j.readerOrErr(name)
	if err != nil {
		return nil, err
	}
	return st.NextReadBehind()
}

// EndReadBehind closes name's read-behind cursor.
func (j *Journal) EndReadBehind(name string) error {
	st, err := j.readerOrErr(name)
	if err != nil {
		return err
	}
	return st.EndReadBehind()
}

func (j *Journal) readerOrErr(name string) (*reader.State, error) {
	st, ok := j.readers.Load().get(name)
	if !ok {
		return nil, fmt.Errorf("journal: unknown reader %q", name)
	}
	return st, nil
}

// SeedNextID scans the active segment for its highest Put id and returns
// one past it, or 1 if the segment is empty. Ids are assigned by a single
// external producer and are monotonic across rotations, so the active
// segment (the most recently created one) always holds the current
// maximum — this only needs to run once, at startup, to seed an
// in-process counter (spec.md §6.2 leaves id generation to the caller).
func (j *Journal) SeedNextID() (uint64, error) {
	j.mu.Lock()
	path := j.writer.Path()
	j.mu.Unlock()

	r, err := segment.OpenForRead(path)
	if err != nil {
		return 0, fmt.Errorf("journal: seeding next id from %s: %w", path, err)
	}
	defer r.Close()

	var last uint64
	for {
		rec, err := r.Next()
		if err != nil {
			break // io.EOF or a truncated tail: stop at the last clean record
		}
		if rec.Put != nil {
			last = rec.Put.ID
		}
	}
	return last + 1, nil
}
