package segment

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ostrichlabs/duraq/internal/wire"
)

// SyncPolicy controls when a Writer's buffered writes reach stable
// storage, mirroring the teacher's segment.SyncPolicy enum.
type SyncPolicy int

const (
	// SyncImmediate fsyncs after every append.
	SyncImmediate SyncPolicy = iota
	// SyncInterval groups writes and syncs no later than SyncInterval
	// after the first unsynced append (spec.md §4.2).
	SyncInterval
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	SyncPolicy   SyncPolicy
	SyncInterval time.Duration
	BufferSize   int
}

// DefaultWriterOptions returns sensible defaults.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		SyncPolicy:   SyncInterval,
		SyncInterval: time.Second,
		BufferSize:   64 * 1024,
	}
}

// Writer appends Put records to one writer segment file. It creates the
// file and writes the header if absent, or seeks to the end of an
// existing segment to resume appending (spec.md §4.2).
type Writer struct {
	path string

	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	opts   WriterOptions
	closed bool

	bytesWritten int64
	needsSync    bool

	timer       *time.Timer
	timerActive bool
}

// OpenForAppend opens path for appending, creating it (and writing the
// segment header) if it does not already exist.
func OpenForAppend(path string, opts WriterOptions) (*Writer, error) {
	existing := true
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("segment: stat %s: %w", path, err)
		}
		existing = false
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644) //nolint:gosec // queue directory is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("segment: opening %s: %w", path, err)
	}

	var bytesWritten int64
	if !existing {
		hdr := &wire.Header{Magic: wire.SegmentMagic, Version: wire.CurrentVersion}
		if _, err := f.Write(hdr.Marshal()); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return nil, fmt.Errorf("segment: writing header of %s: %w", path, err)
		}
		bytesWritten = wire.HeaderSize
	} else {
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("segment: stat %s: %w", path, err)
		}
		bytesWritten = info.Size()
	}

	if _, err := f.Seek(0, os.SEEK_END); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("segment: seeking to end of %s: %w", path, err)
	}

	w := &Writer{
		path:         path,
		file:         f,
		buf:          bufio.NewWriterSize(f, opts.BufferSize),
		opts:         opts,
		bytesWritten: bytesWritten,
	}
	if opts.SyncPolicy == SyncInterval && opts.SyncInterval > 0 {
		w.startTimer()
	}
	return w, nil
}

// Append writes an encoded record's bytes and returns once they are in
// the OS page cache. Durability is promised only after the next sync
// tick or an explicit Flush/Sync (spec.md §4.2).
func (w *Writer) Append(record []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("segment: writer for %s is closed", w.path)
	}

	n, err := w.buf.Write(record)
	if err != nil {
		return fmt.Errorf("segment: appending to %s: %w", w.path, err)
	}
	w.bytesWritten += int64(n)
	w.needsSync = true
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("segment: flushing %s: %w", w.path, err)
	}

	if w.opts.SyncPolicy == SyncImmediate {
		return w.syncLocked()
	}
	return nil
}

// AppendPut is a convenience wrapper that encodes and appends p.
func (w *Writer) AppendPut(p *wire.Put) error {
	enc, err := p.Encode()
	if err != nil {
		return err
	}
	return w.Append(enc)
}

// Flush pushes buffered bytes to the OS without fsyncing.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Sync flushes buffered bytes and fsyncs the file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("segment: flushing %s: %w", w.path, err)
	}
	if err := durableSync(w.file); err != nil {
		return fmt.Errorf("segment: syncing %s: %w", w.path, err)
	}
	w.needsSync = false
	return nil
}

// Len returns the segment's current byte size, including the header.
func (w *Writer) Len() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytesWritten
}

// Path returns the segment's file path.
func (w *Writer) Path() string { return w.path }

// Close stops the sync timer, flushes and fsyncs any pending writes, and
// closes the underlying file. Every opened writer segment must be closed
// on all exit paths, including error propagation (spec.md §5).
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if w.timerActive {
		w.timer.Stop()
		w.timerActive = false
	}

	var syncErr error
	if w.needsSync {
		syncErr = w.syncLocked()
	}
	closeErr := w.file.Close()
	w.closed = true

	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

func (w *Writer) startTimer() {
	w.timer = time.AfterFunc(w.opts.SyncInterval, func() {
		w.mu.Lock()
		if !w.closed && w.needsSync {
			_ = w.syncLocked() // background sync errors surface on the next explicit call
		}
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.mu.Lock()
			if !w.closed {
				w.timer.Reset(w.opts.SyncInterval)
			}
			w.mu.Unlock()
		}
	})
	w.timerActive = true
}
