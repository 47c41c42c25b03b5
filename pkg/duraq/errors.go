package duraq

import (
	"github.com/ostrichlabs/duraq/internal/journal"
	"github.com/ostrichlabs/duraq/internal/reader"
)

// ErrSegmentInUse is returned by Truncate when a live reader still needs
// a segment scheduled for removal.
var ErrSegmentInUse = journal.ErrSegmentInUse

// ErrClosed is returned by operations attempted after Close.
var ErrClosed = journal.ErrClosed

// ErrProtocolMisuse is returned by Reader.Commit for an id already
// covered by Head or DoneSet.
var ErrProtocolMisuse = reader.ErrProtocolMisuse

// ErrUnknownID is returned by Reader.StartReadBehind for an id that
// precedes every segment still on disk, or that has no record yet at
// or after it, and by Reader.NextReadBehind once the read-behind
// cursor has drained every known segment (wrapping the missing id).
var ErrUnknownID = reader.ErrUnknownID

// ErrReadBehindActive is returned by Reader.StartReadBehind when a
// cursor is already open.
var ErrReadBehindActive = reader.ErrReadBehindActive

// ErrReadBehindInactive is returned by Reader.NextReadBehind or
// Reader.EndReadBehind when no cursor is open.
var ErrReadBehindInactive = reader.ErrReadBehindInactive
