// Package reader implements a single reader's cursor over a journal: its
// monotonic head, the out-of-order set of acknowledged ids ahead of that
// head, and an optional read-behind cursor for scanning history without
// disturbing either (spec.md §3, §4.4).
package reader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/ostrichlabs/duraq/internal/wire"
)

// State is one reader's durable cursor. head is the highest id such
// that every id ≤ head has been acknowledged; doneSet holds ids beyond
// head+1 that were acknowledged out of order and haven't yet coalesced
// into head (spec.md §3).
type State struct {
	mu sync.Mutex

	name string
	path string

	head    uint64
	doneSet []uint64 // kept sorted ascending, no duplicates

	readBehind *readBehindCursor
}

// NewState constructs an empty reader positioned at initialHead, as
// spec.md §4.5 requires when a reader is opened for the first time.
func NewState(name, path string, initialHead uint64) *State {
	return &State{name: name, path: path, head: initialHead}
}

// Name returns the reader's name.
func (s *State) Name() string { return s.name }

// Head returns the reader's current monotonic watermark.
func (s *State) Head() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// DoneSet returns a copy of the ids acknowledged ahead of head.
func (s *State) DoneSet() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.doneSet))
	copy(out, s.doneSet)
	return out
}

// SetHead forcibly resets the reader's head, discarding any recorded
// out-of-order acknowledgements at or below the new head and then
// coalescing forward exactly as Commit does, so head+1 is never left
// sitting in doneSet (spec.md §3, §8 "done-set disjointness"). Used when
// a caller wants to rewind or fast-forward a reader explicitly rather
// than through Commit (spec.md §4.4).
func (s *State) SetHead(head uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = head
	kept := s.doneSet[:0]
	for _, id := range s.doneSet {
		if id > head {
			kept = append(kept, id)
		}
	}
	s.doneSet = kept
	for len(s.doneSet) > 0 && s.doneSet[0] == s.head+1 {
		s.head++
		s.doneSet = s.doneSet[1:]
	}
}

// Commit acknowledges id. If id is exactly head+1, head advances past
// it and then absorbs any ids already in doneSet that continue the
// contiguous run — so acknowledgements arriving out of order (e.g. 3,
// 5, 4, 2, 1) still converge head to the highest contiguous id once the
// gap closes (spec.md §4.4, §8 "commit coalescing" property). Committing
// an id at or below head, or one already recorded in doneSet, is a
// protocol misuse: acknowledgements must be unique.
func (s *State) Commit(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id <= s.head {
		return fmt.Errorf("%w: id %d, head already at %d", ErrProtocolMisuse, id, s.head)
	}

	if id == s.head+1 {
		s.head = id
		for len(s.doneSet) > 0 && s.doneSet[0] == s.head+1 {
			s.head++
			s.doneSet = s.doneSet[1:]
		}
		return nil
	}

	idx := sort.Search(len(s.doneSet), func(i int) bool { return s.doneSet[i] >= id })
	if idx < len(s.doneSet) && s.doneSet[idx] == id {
		return fmt.Errorf("%w: id %d already acknowledged", ErrProtocolMisuse, id)
	}
	s.doneSet = append(s.doneSet, 0)
	copy(s.doneSet[idx+1:], s.doneSet[idx:])
	s.doneSet[idx] = id
	return nil
}

// snapshot copies head and doneSet under lock, for Checkpoint to encode
// without holding the lock during file I/O (spec.md §5).
func (s *State) snapshot() (uint64, []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doneSet := make([]uint64, len(s.doneSet))
	copy(doneSet, s.doneSet)
	return s.head, doneSet
}

// Checkpoint durably persists the reader's current state: it writes a
// header, a ReadHead record, and a ReadDone record to a "~~"-suffixed
// sibling of the reader's state file, fsyncs and closes it, then
// atomically renames it over the real path — so a crash mid-write never
// leaves a partially-written state file in place (spec.md §4.4).
func (s *State) Checkpoint() error {
	head, doneSet := s.snapshot()

	tmpPath := s.path + TransientSuffix
	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // queue directory is caller-controlled
	if err != nil {
		return fmt.Errorf("reader: opening checkpoint temp file %s: %w", tmpPath, err)
	}

	if err := writeCheckpointBody(f, head, doneSet); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("reader: syncing checkpoint temp file %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("reader: closing checkpoint temp file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("reader: renaming checkpoint into place at %s: %w", s.path, err)
	}
	return nil
}

func writeCheckpointBody(f *os.File, head uint64, doneSet []uint64) error {
	hdr := &wire.Header{Magic: wire.ReaderMagic, Version: wire.CurrentVersion}
	if _, err := f.Write(hdr.Marshal()); err != nil {
		return fmt.Errorf("reader: writing header: %w", err)
	}
	if _, err := f.Write((&wire.ReadHead{ID: head}).Encode()); err != nil {
		return fmt.Errorf("reader: writing ReadHead: %w", err)
	}
	doneRec, err := (&wire.ReadDone{IDs: doneSet}).Encode()
	if err != nil {
		return fmt.Errorf("reader: encoding ReadDone: %w", err)
	}
	if _, err := f.Write(doneRec); err != nil {
		return fmt.Errorf("reader: writing ReadDone: %w", err)
	}
	return nil
}

// TransientSuffix marks a checkpoint write in progress, matching the
// journal-wide convention for atomic rewrites (spec.md §2, §6.1).
const TransientSuffix = "~~"

// LoadState replays a reader state file from disk. ReadHead records are
// last-wins (each one overwrites the running head); ReadDone records
// are merged by union into the running doneSet, since nothing in the
// format precludes a state file accumulating more than one of either
// before being fully rewritten by Checkpoint (spec.md §4.4). A missing
// file yields a fresh reader at head 0 with an empty doneSet — the
// caller is expected to have already decided the reader's initialHead
// for a first-ever open (spec.md §4.5). Only a clean or truncated-tail
// end of stream ends the replay loop; a *wire.IOError from a genuine
// read fault is returned as a fatal error rather than accepted as
// wherever the loop happened to reach (spec.md §7's Io(cause) kind).
func LoadState(name, path string) (*State, error) {
	f, err := os.Open(path) //nolint:gosec // queue directory is caller-controlled
	if os.IsNotExist(err) {
		return NewState(name, path, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reader: opening state file %s: %w", path, err)
	}
	defer f.Close()

	buf := bufio.NewReader(f)
	if _, err := wire.ReadHeader(buf, path, wire.ReaderMagic); err != nil {
		return nil, err
	}

	s := NewState(name, path, 0)
	doneSeen := make(map[uint64]struct{})

	offset := int64(wire.HeaderSize)
	for {
		rec, n, err := wire.ReadRecord(buf, path, offset)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
		offset += int64(n)

		switch rec.Tag {
		case wire.TagReadHead:
			s.head = rec.ReadHead.ID
		case wire.TagReadDone:
			for _, id := range rec.ReadDone.IDs {
				doneSeen[id] = struct{}{}
			}
		}
	}

	doneSet := make([]uint64, 0, len(doneSeen))
	for id := range doneSeen {
		if id > s.head {
			doneSet = append(doneSet, id)
		}
	}
	sort.Slice(doneSet, func(i, j int) bool { return doneSet[i] < doneSet[j] })
	s.doneSet = doneSet
	for len(s.doneSet) > 0 && s.doneSet[0] == s.head+1 {
		s.head++
		s.doneSet = s.doneSet[1:]
	}
	return s, nil
}
