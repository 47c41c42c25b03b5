package duraq

// Stats is a point-in-time summary of a Journal's archive.
type Stats struct {
	// NextID is the id that will be assigned to the next Put.
	NextID uint64

	// ArchiveSize is the current total on-disk size of the queue's
	// segments, in bytes.
	ArchiveSize int64
}
