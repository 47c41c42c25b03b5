package segment

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ostrichlabs/duraq/internal/wire"
)

// Reader sequentially decodes records from one writer segment file,
// tracking the byte offset of each record for corruption reporting and
// resumable reads (spec.md §4.2, §7).
type Reader struct {
	path   string
	file   *os.File
	buf    *bufio.Reader
	offset int64
}

// OpenForRead opens path for sequential reading and validates its
// header. Callers get back a Reader positioned at the first record.
func OpenForRead(path string) (*Reader, error) {
	f, err := os.Open(path) //nolint:gosec // queue directory is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("segment: opening %s: %w", path, err)
	}

	buf := bufio.NewReader(f)
	if _, err := wire.ReadHeader(buf, path, wire.SegmentMagic); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Reader{path: path, file: f, buf: buf, offset: wire.HeaderSize}, nil
}

// Next decodes the next record in the segment. It returns io.EOF once
// the file ends cleanly on a record boundary, and io.ErrUnexpectedEOF if
// it ends mid-record — the tail of an in-progress or crashed append,
// which callers must treat as "nothing more to read yet", not
// corruption (spec.md §7).
func (r *Reader) Next() (*wire.Record, error) {
	rec, n, err := wire.ReadRecord(r.buf, r.path, r.offset)
	if err != nil {
		return nil, err
	}
	r.offset += int64(n)
	return rec, nil
}

// Offset returns the byte offset of the next record to be decoded.
func (r *Reader) Offset() int64 { return r.offset }

// Seek repositions the reader to an absolute byte offset, which must
// fall on a record boundary (typically one previously returned by
// Offset). It discards any buffered lookahead.
func (r *Reader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("segment: seeking %s to %d: %w", r.path, offset, err)
	}
	r.buf.Reset(r.file)
	r.offset = offset
	return nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}
