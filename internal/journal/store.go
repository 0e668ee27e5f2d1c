package journal

import "time"

// Store is the pluggable persistence contract the engine depends on,
// letting a session's journal be backed by the real memory-mapped segment
// files (see backend/mmapstore) or an in-memory stand-in for tests and
// persistence.store-type = none (see backend/memstore).
type Store interface {
	Append(direction Direction, msgType byte, payload []byte, timestampNs int64) (int64, error)
	NewReader() (StoreReader, error)
	NextSeq(direction Direction) int64

	// Replay invokes cb, in ascending sequence order, for every entry
	// with SeqNum in [fromSeq, toSeq]. dir restricts the scan to one
	// direction's sequence space; a nil dir replays both, merged by
	// timestamp.
	Replay(dir *Direction, fromSeq, toSeq int64, cb func(Entry) error) error
	// ReplayByTime is Replay's time-windowed counterpart, ordered by
	// TimestampNs instead of SeqNum.
	ReplayByTime(dir *Direction, fromNs, toNs int64, cb func(Entry) error) error
	// GetLatest returns the most recently appended entry in direction's
	// sequence space in O(1), or ok=false if none exists yet.
	GetLatest(direction Direction) (Entry, bool)

	Sync() error
	Close() error
}

// StoreReader is the read-side contract a Store's reader satisfies.
type StoreReader interface {
	TryPoll() (Entry, bool)
	Poll(timeout time.Duration) (Entry, bool)
	Drain() []Entry
	HasNext() bool
	Close() error
}

var (
	_ Store       = (*Writer)(nil)
	_ StoreReader = (*Reader)(nil)
)

// NewReader implements Store.NewReader for *Writer. It shadows the
// package-level NewReader(w) constructor from the method set's point of
// view only; callers outside this package should prefer this method.
func (w *Writer) NewReader() (StoreReader, error) {
	return NewReader(w)
}
