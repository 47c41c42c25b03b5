package reader

import "errors"

// ErrProtocolMisuse is returned when a caller commits an id the reader
// has already accounted for — at or below head, or already present in
// the out-of-order done set (spec.md §7).
var ErrProtocolMisuse = errors.New("reader: id already committed")

// ErrUnknownID is returned when an operation references an id the
// journal has no record of, such as read-behind seeking past the last
// known segment (spec.md §7).
var ErrUnknownID = errors.New("reader: unknown id")

// ErrReadBehindActive is returned by StartReadBehind when a read-behind
// pass is already in progress for this reader.
var ErrReadBehindActive = errors.New("reader: read-behind already active")

// ErrReadBehindInactive is returned by NextReadBehind/EndReadBehind when
// no read-behind pass has been started.
var ErrReadBehindInactive = errors.New("reader: read-behind not active")
