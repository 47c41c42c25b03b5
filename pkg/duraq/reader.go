package duraq

import (
	"github.com/ostrichlabs/duraq/internal/journal"
	"github.com/ostrichlabs/duraq/internal/reader"
)

// Reader is one consumer's durable cursor over a Journal: a monotonic
// head plus an out-of-order set of acknowledged ids ahead of it, and an
// optional read-behind cursor for scanning history independently of
// either (spec.md §4.4).
type Reader struct {
	journal *journal.Journal
	name    string
	state   *reader.State
}

// Name returns the reader's name.
func (r *Reader) Name() string { return r.name }

// Head returns the reader's current monotonic watermark: every id up to
// and including Head has been acknowledged.
func (r *Reader) Head() uint64 { return r.state.Head() }

// DoneSet returns a copy of the ids acknowledged out of order, ahead of
// Head, that have not yet coalesced into it.
func (r *Reader) DoneSet() []uint64 { return r.state.DoneSet() }

// SetHead forcibly resets the reader's head, discarding any recorded
// out-of-order acknowledgements at or below the new head.
func (r *Reader) SetHead(head uint64) { r.state.SetHead(head) }

// Commit acknowledges id. Ids must be acknowledged exactly once and
// strictly above the current head; ErrProtocolMisuse otherwise.
// Out-of-order commits coalesce into Head once the gap closes.
func (r *Reader) Commit(id uint64) error { return r.state.Commit(id) }

// Checkpoint durably persists the reader's current progress.
func (r *Reader) Checkpoint() error { return r.state.Checkpoint() }

// StartReadBehind opens a history cursor at fromID, independent of Head
// and DoneSet. Returns ErrUnknownID if fromID precedes every segment
// still on disk, or if no record at or after fromID exists yet.
func (r *Reader) StartReadBehind(fromID uint64) error {
	return r.journal.StartReadBehind(r.name, fromID)
}

// NextReadBehind returns the next item at or after the read-behind
// cursor's position. Returns ErrUnknownID once the cursor reaches the
// end of the last known segment — the signal that the read-behind pass
// has caught up and EndReadBehind should be called — and
// ErrReadBehindInactive if StartReadBehind was not called.
func (r *Reader) NextReadBehind() (*Item, error) {
	p, err := r.journal.NextReadBehind(r.name)
	if err != nil {
		return nil, err
	}
	return &Item{ID: p.ID, AddTime: p.AddTime, ExpireTime: p.ExpireTime, Data: p.Data}, nil
}

// EndReadBehind closes the read-behind cursor, leaving Head and DoneSet
// untouched.
func (r *Reader) EndReadBehind() error {
	return r.journal.EndReadBehind(r.name)
}
