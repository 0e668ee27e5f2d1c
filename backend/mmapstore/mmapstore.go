// Package mmapstore adapts internal/journal's memory-mapped segment
// writer behind the journal.Store interface for
// persistence.store-type ∈ {memory-mapped, chronicle}. Both configured
// values resolve to this same implementation: no Go port of Chronicle
// Queue appears anywhere in this codebase's reference material, so rather
// than leave "chronicle" unimplemented, it is treated as a synonym for
// our own mmap-backed append log.
package mmapstore

import (
	"github.com/fathomtrade/xsession/internal/journal"
)

// Store wraps an *journal.Writer to satisfy journal.Store.
type Store struct {
	w *journal.Writer
}

// Open opens (or creates) a memory-mapped journal rooted at dir.
func Open(dir string, segmentSize int) (*Store, error) {
	w, err := journal.Open(dir, segmentSize)
	if err != nil {
		return nil, err
	}
	return &Store{w: w}, nil
}

func (s *Store) Append(direction journal.Direction, msgType byte, payload []byte, timestampNs int64) (int64, error) {
	return s.w.Append(direction, msgType, payload, timestampNs)
}

func (s *Store) NextSeq(direction journal.Direction) int64 { return s.w.NextSeq(direction) }

func (s *Store) GetLatest(direction journal.Direction) (journal.Entry, bool) {
	return s.w.GetLatest(direction)
}

func (s *Store) Replay(dir *journal.Direction, fromSeq, toSeq int64, cb func(journal.Entry) error) error {
	return s.w.Replay(dir, fromSeq, toSeq, cb)
}

func (s *Store) ReplayByTime(dir *journal.Direction, fromNs, toNs int64, cb func(journal.Entry) error) error {
	return s.w.ReplayByTime(dir, fromNs, toNs, cb)
}

func (s *Store) Sync() error  { return s.w.Sync() }
func (s *Store) Close() error { return s.w.Close() }

func (s *Store) NewReader() (journal.StoreReader, error) {
	return s.w.NewReader()
}

var _ journal.Store = (*Store)(nil)
