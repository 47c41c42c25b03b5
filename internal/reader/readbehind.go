package reader

import (
	"fmt"
	"io"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/ostrichlabs/duraq/internal/index"
	"github.com/ostrichlabs/duraq/internal/segment"
	"github.com/ostrichlabs/duraq/internal/wire"
)

// ItemCache is shared by every reader's read-behind cursor within one
// journal, keyed by item id, so that several readers independently
// scanning the same cold range of a segment don't each pay a fresh
// decode (SPEC_FULL.md DOMAIN STACK). A cache entry also records the
// byte range the record occupied in its segment, so a hit lets the
// cursor Seek past the raw bytes instead of decoding them again. A miss
// simply falls through to the segment reader — the cache is an
// optimization, never a source of truth. The journal owns one ItemCache
// and hands it to every reader.State.StartReadBehind call so the cache
// is actually shared, not rebuilt per cursor.
type ItemCache struct {
	cache *ristretto.Cache[uint64, cachedItem]
}

// cachedItem is a decoded Put plus the byte range it occupied in the
// segment it was read from. startOffset must match the cursor's exact
// current position before a hit is used, since ids are only unique
// within one queue but the same id could in principle be revisited from
// a different segment layout after a Truncate.
type cachedItem struct {
	put         *wire.Put
	path        string
	startOffset int64
	nextOffset  int64
}

// NewItemCache builds a modestly sized decode cache. Costs are counted
// in decoded payload bytes, not record count, matching ristretto's
// weighted-cost eviction model.
func NewItemCache() (*ItemCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, cachedItem]{
		NumCounters: 1e6,
		MaxCost:     64 << 20,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("reader: building read-behind cache: %w", err)
	}
	return &ItemCache{cache: c}, nil
}

func (c *ItemCache) get(id uint64) (cachedItem, bool) {
	if c == nil || c.cache == nil {
		return cachedItem{}, false
	}
	return c.cache.Get(id)
}

func (c *ItemCache) put(id uint64, entry cachedItem) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Set(id, entry, int64(len(entry.put.Data)))
}

// Wait blocks until every pending Set issued so far has been applied to
// the cache, so a subsequent Get is guaranteed to observe it. Ristretto
// applies writes asynchronously through a ring buffer; production
// callers don't need this, but tests asserting on cache hits do.
func (c *ItemCache) Wait() {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Wait()
}

// Hits reports how many Get calls this cache has satisfied, for tests
// and diagnostics.
func (c *ItemCache) Hits() uint64 {
	if c == nil || c.cache == nil || c.cache.Metrics == nil {
		return 0
	}
	return c.cache.Metrics.Hits()
}

// readBehindCursor scans a journal's history independently of the
// reader's live head, per spec.md §4.4's LIVE/READ_BEHIND state
// machine: starting it does not disturb head or doneSet, and ending it
// discards the cursor without side effects on either. It advances
// across segment boundaries transparently using the snapshot it was
// started with.
type readBehindCursor struct {
	snap    *index.Snapshot
	entries []index.Entry
	segIdx  int

	segReader *segment.Reader
	cache     *ItemCache
	pending   *wire.Put
	lastID    uint64
}

// StartReadBehind opens a cursor positioned at fromID, using snap to
// locate the segment that would contain it. cache is the journal-wide
// decode cache shared across every reader's read-behind cursor; passing
// nil disables caching without otherwise changing behavior. Returns
// ErrReadBehindActive if a cursor is already open, and ErrUnknownID if
// fromID precedes every known segment or if no record at or after
// fromID exists yet in any known segment.
func (s *State) StartReadBehind(snap *index.Snapshot, cache *ItemCache, fromID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readBehind != nil {
		return ErrReadBehindActive
	}

	entries := snap.Entries()
	segIdx := -1
	for i, e := range entries {
		if e.FirstID <= fromID {
			segIdx = i
		}
	}
	if segIdx < 0 {
		return fmt.Errorf("%w: id %d precedes every known segment", ErrUnknownID, fromID)
	}

	r, err := segment.OpenForRead(entries[segIdx].Path)
	if err != nil {
		return err
	}

	cursor := &readBehindCursor{snap: snap, entries: entries, segIdx: segIdx, segReader: r, cache: cache, lastID: fromID - 1}
	if err := cursor.advanceTo(fromID); err != nil {
		_ = r.Close()
		return err
	}
	s.readBehind = cursor
	return nil
}

// advanceTo discards records strictly before fromID, leaving the first
// record at or after it pending for the next NextReadBehind call. Used
// only during StartReadBehind.
func (c *readBehindCursor) advanceTo(fromID uint64) error {
	for {
		p, err := c.readOne()
		if err != nil {
			return err
		}
		if p.ID >= fromID {
			c.pending = p
			return nil
		}
	}
}

// readOne pulls the next Put record from the current segment, opening
// the next segment in the snapshot once the current one is exhausted.
// Returns ErrUnknownID, wrapping lastID+1, once every known segment has
// been drained — the "caught up" signal spec.md §4.4/§8 test 3 asks
// nextReadBehind to distinguish from a mid-segment io.EOF. A segment
// ending in a truncated tail (io.ErrUnexpectedEOF) counts as exhausted,
// like a clean io.EOF. Any other error, including a *wire.IOError surfaced through segReader.Next()
// for a genuine read fault, is fatal and propagated to the caller
// rather than treated as end-of-stream (spec.md §7's Io(cause) kind).
func (c *readBehindCursor) readOne() (*wire.Put, error) {
	if c.pending != nil {
		p := c.pending
		c.pending = nil
		c.lastID = p.ID
		return p, nil
	}
	for {
		path := c.entries[c.segIdx].Path
		offset := c.segReader.Offset()
		if entry, ok := c.cache.get(c.lastID + 1); ok && entry.path == path && entry.startOffset == offset {
			if err := c.segReader.Seek(entry.nextOffset); err != nil {
				return nil, err
			}
			c.lastID = entry.put.ID
			return entry.put, nil
		}

		rec, err := c.segReader.Next()
		if err == nil {
			if rec.Put == nil {
				continue
			}
			c.cache.put(rec.Put.ID, cachedItem{put: rec.Put, path: path, startOffset: offset, nextOffset: c.segReader.Offset()})
			c.lastID = rec.Put.ID
			return rec.Put, nil
		}
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, err
		}

		if c.segIdx+1 >= len(c.entries) {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownID, c.lastID+1)
		}
		_ = c.segReader.Close()
		c.segIdx++
		next, openErr := segment.OpenForRead(c.entries[c.segIdx].Path)
		if openErr != nil {
			return nil, openErr
		}
		c.segReader = next
	}
}

// NextReadBehind returns the next item at or after the cursor's
// position, decoding through the shared cache when possible. Returns
// ErrUnknownID once the cursor reaches the end of the last known
// segment — the caller's signal that the read-behind pass has caught up
// and should call EndReadBehind. Returns ErrReadBehindInactive if no
// cursor is open.
func (s *State) NextReadBehind() (*wire.Put, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readBehind == nil {
		return nil, ErrReadBehindInactive
	}
	return s.readBehind.readOne()
}

// EndReadBehind closes the cursor's underlying file and discards it,
// leaving head and doneSet exactly as they were. Returns
// ErrReadBehindInactive if no cursor is open.
func (s *State) EndReadBehind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readBehind == nil {
		return ErrReadBehindInactive
	}
	err := s.readBehind.segReader.Close()
	s.readBehind = nil
	return err
}
