// Package index maintains the journal's cross-segment id index: an
// ordered mapping from a writer segment's first item id to its file
// path, letting the journal locate the segment containing any given id
// without scanning every segment on disk (spec.md §4.3).
package index

import (
	"io"
	"sort"

	"github.com/ostrichlabs/duraq/internal/logging"
	"github.com/ostrichlabs/duraq/internal/segment"
)

// Entry maps one writer segment's first item id to its path.
type Entry struct {
	FirstID uint64
	Path    string
}

// Snapshot is an immutable, ordered view of the journal's segments,
// sorted ascending by FirstID. A new Snapshot is built whenever the set
// of segments changes (a rotation or a truncation); readers of an old
// Snapshot are unaffected, per the copy-on-write discipline spec.md §5
// and §9 call for.
type Snapshot struct {
	entries []Entry
}

// Build scans every writer segment for queueName in dir and reads each
// one's first record to learn its FirstID. A segment whose first record
// is corrupt or isn't a Put, or that fails to open at all, is skipped
// with a Warn log; an empty segment, or one whose first record is a
// truncated tail, is skipped without a log. Neither fails the whole
// build — a single damaged segment must not make the journal unopenable
// (spec.md §4.3, §7).
func Build(dir, queueName string, log logging.Logger) (*Snapshot, error) {
	infos, err := segment.Discover(dir, queueName)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		firstID, ok := firstItemID(info.Path, log)
		if !ok {
			continue
		}
		entries = append(entries, Entry{FirstID: firstID, Path: info.Path})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].FirstID < entries[j].FirstID })
	return &Snapshot{entries: entries}, nil
}

func firstItemID(path string, log logging.Logger) (uint64, bool) {
	r, err := segment.OpenForRead(path)
	if err != nil {
		log.Warn("index: skipping unreadable segment", logging.F("path", path), logging.F("err", err))
		return 0, false
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			log.Warn("index: skipping segment with corrupt first record", logging.F("path", path), logging.F("err", err))
		}
		return 0, false
	}
	if rec.Put == nil {
		log.Warn("index: skipping segment whose first record is not a Put", logging.F("path", path))
		return 0, false
	}
	return rec.Put.ID, true
}

// FileForID returns the path of the segment holding the largest FirstID
// that is still ≤ x — the segment that would contain item id x, if it
// exists at all (spec.md §4.3, §8 test 4). Returns false if x precedes
// every known segment.
func (s *Snapshot) FileForID(x uint64) (string, bool) {
	if len(s.entries) == 0 {
		return "", false
	}
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].FirstID > x })
	if i == 0 {
		return "", false
	}
	return s.entries[i-1].Path, true
}

// Entries returns the snapshot's segments in ascending FirstID order.
// Callers must not mutate the returned slice.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

// Empty reports whether the snapshot has no segments.
func (s *Snapshot) Empty() bool {
	return len(s.entries) == 0
}

// WithInserted returns a new Snapshot with entry inserted in FirstID
// order, leaving s untouched — the copy step of the journal's
// copy-on-write update when a new segment is rotated in.
func (s *Snapshot) WithInserted(entry Entry) *Snapshot {
	out := make([]Entry, 0, len(s.entries)+1)
	out = append(out, s.entries...)
	out = append(out, entry)
	sort.Slice(out, func(i, j int) bool { return out[i].FirstID < out[j].FirstID })
	return &Snapshot{entries: out}
}

// WithRemoved returns a new Snapshot with the entry for path removed,
// leaving s untouched — used when a segment is truncated away.
func (s *Snapshot) WithRemoved(path string) *Snapshot {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Path != path {
			out = append(out, e)
		}
	}
	return &Snapshot{entries: out}
}
