package duraq

// Item is a durable record retrieved from a Journal through a Reader's
// read-behind history scan (Reader.NextReadBehind).
type Item struct {
	// ID is the item's assigned, monotonically increasing identifier.
	ID uint64

	// AddTime is when the item was appended, Unix milliseconds.
	AddTime int64

	// ExpireTime is the item's absolute expiry, Unix milliseconds, or 0
	// if it never expires.
	ExpireTime int64

	// Data is the item's payload.
	Data []byte
}

// Expired reports whether the item had expired as of nowMillis. Items
// with ExpireTime == 0 never expire. The journal does not skip expired
// items on its own; a consumer streaming items out decides whether to
// act on this.
func (i *Item) Expired(nowMillis int64) bool {
	return i.ExpireTime != 0 && i.ExpireTime <= nowMillis
}
