// Package memstore is an in-memory journal.Store used for
// persistence.store-type = none and for tests that need a Store without
// touching disk. It keeps every appended entry in a slice guarded by a
// single mutex — adequate for tests and for sessions that have
// deliberately opted out of durability, not for production throughput.
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/fathomtrade/xsession/internal/journal"
)

// Store is an in-memory journal.Store.
type Store struct {
	mu      sync.Mutex
	entries []journal.Entry
	nextSeq [2]int64
	index   [2][]int // index[dir][seq-1] = position in entries
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{nextSeq: [2]int64{1, 1}}
}

// Append records one entry and returns its assigned sequence number,
// drawn from direction's own counter.
func (s *Store) Append(direction journal.Direction, msgType byte, payload []byte, timestampNs int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq[direction]
	cp := append([]byte(nil), payload...)
	e := journal.Entry{SeqNum: seq, TimestampNs: timestampNs, Direction: direction, MsgType: msgType, Payload: cp}
	s.entries = append(s.entries, e)
	for int64(len(s.index[direction])) < seq {
		s.index[direction] = append(s.index[direction], -1)
	}
	s.index[direction][seq-1] = len(s.entries) - 1
	s.nextSeq[direction] = seq + 1
	return seq, nil
}

// NextSeq returns the sequence number the next Append will assign for
// direction.
func (s *Store) NextSeq(direction journal.Direction) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq[direction]
}

// GetLatest returns the most recently appended entry for direction.
func (s *Store) GetLatest(direction journal.Direction) (journal.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locs := s.index[direction]
	if len(locs) == 0 {
		return journal.Entry{}, false
	}
	return s.entries[locs[len(locs)-1]], true
}

// Replay invokes cb for every entry with SeqNum in [fromSeq, toSeq],
// restricted to dir when dir is non-nil, in ascending sequence order. A
// nil dir replays both directions merged by timestamp.
func (s *Store) Replay(dir *journal.Direction, fromSeq, toSeq int64, cb func(journal.Entry) error) error {
	s.mu.Lock()
	dirs := []journal.Direction{journal.DirectionInbound, journal.DirectionOutbound}
	if dir != nil {
		dirs = []journal.Direction{*dir}
	}
	var out []journal.Entry
	for _, d := range dirs {
		locs := s.index[d]
		lo := fromSeq
		if lo < 1 {
			lo = 1
		}
		hi := toSeq
		if hi > int64(len(locs)) {
			hi = int64(len(locs))
		}
		for seq := lo; seq <= hi; seq++ {
			out = append(out, s.entries[locs[seq-1]])
		}
	}
	if dir == nil {
		sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampNs < out[j].TimestampNs })
	}
	s.mu.Unlock()

	for _, e := range out {
		if err := cb(e); err != nil {
			return err
		}
	}
	return nil
}

// ReplayByTime invokes cb for every entry with TimestampNs in [fromNs,
// toNs], restricted to dir when dir is non-nil, in ascending timestamp
// order.
func (s *Store) ReplayByTime(dir *journal.Direction, fromNs, toNs int64, cb func(journal.Entry) error) error {
	s.mu.Lock()
	dirs := []journal.Direction{journal.DirectionInbound, journal.DirectionOutbound}
	if dir != nil {
		dirs = []journal.Direction{*dir}
	}
	var out []journal.Entry
	for _, d := range dirs {
		for _, pos := range s.index[d] {
			e := s.entries[pos]
			if e.TimestampNs < fromNs || e.TimestampNs > toNs {
				continue
			}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampNs < out[j].TimestampNs })
	s.mu.Unlock()

	for _, e := range out {
		if err := cb(e); err != nil {
			return err
		}
	}
	return nil
}

// Sync is a no-op: there is nothing to flush for an in-memory store.
func (s *Store) Sync() error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// NewReader returns a tailing reader over this store's entries.
func (s *Store) NewReader() (journal.StoreReader, error) {
	return &reader{store: s}, nil
}

type reader struct {
	store *Store
	pos   int
}

func (r *reader) TryPoll() (journal.Entry, bool) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.pos >= len(r.store.entries) {
		return journal.Entry{}, false
	}
	e := r.store.entries[r.pos]
	r.pos++
	return e, true
}

func (r *reader) Poll(timeout time.Duration) (journal.Entry, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if e, ok := r.TryPoll(); ok {
			return e, true
		}
		if time.Now().After(deadline) {
			return journal.Entry{}, false
		}
		time.Sleep(time.Millisecond)
	}
}

func (r *reader) Drain() []journal.Entry {
	var out []journal.Entry
	for {
		e, ok := r.TryPoll()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func (r *reader) HasNext() bool {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.pos < len(r.store.entries)
}

func (r *reader) Close() error { return nil }

var (
	_ journal.Store       = (*Store)(nil)
	_ journal.StoreReader = (*reader)(nil)
)
