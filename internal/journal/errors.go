package journal

import "errors"

// ErrSegmentInUse is returned by Truncate when a live reader's head is
// still below the last id of the segment requested for removal (one less
// than the first id of the segment following it), or when that segment
// is the active one — deleting it would strand that reader (spec.md §3).
var ErrSegmentInUse = errors.New("journal: segment still in use by a reader")

// ErrClosed is returned by operations attempted after Close.
var ErrClosed = errors.New("journal: journal is closed")
