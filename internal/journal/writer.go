package journal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// segmentFileName formats the 9-digit zero-padded segment file name used
// by both fresh creation and directory scans on open.
func segmentFileName(index int) string {
	return fmt.Sprintf("%09d.log", index)
}

// entryLoc pinpoints one entry's position within the segment sequence, so
// GetLatest and Replay can seek straight to it instead of rescanning.
type entryLoc struct {
	segIndex int
	offset   int
}

// Writer owns the active segment for one session's journal and rotates to
// a new segment once the active one fills. Its methods serialize on an
// internal mutex, so the event loop's inbound appends and the writer
// thread's outbound appends may run concurrently.
type Writer struct {
	mu sync.Mutex

	dir         string
	segmentSize int
	active      *segment
	activeIndex int
	scratch     []byte

	nextSeq [2]int64
	index   [2][]entryLoc // index[dir][seq-1] = location of that entry
}

// Open opens or creates the journal directory dir, replaying every
// existing segment to rebuild the per-direction sequence counters and
// seek index, and recovering from a torn write by truncating a corrupt
// tail record in the most recent segment, per the journal's documented
// crash-recovery policy.
func Open(dir string, segmentSize int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir %s: %w", dir, err)
	}
	indices, err := existingSegmentIndices(dir)
	if err != nil {
		return nil, err
	}

	w := &Writer{dir: dir, segmentSize: segmentSize}
	w.nextSeq[DirectionInbound] = 1
	w.nextSeq[DirectionOutbound] = 1

	if len(indices) == 0 {
		seg, err := createSegment(filepath.Join(dir, segmentFileName(0)), segmentSize)
		if err != nil {
			return nil, err
		}
		w.active = seg
		w.activeIndex = 0
		return w, nil
	}

	for _, idx := range indices[:len(indices)-1] {
		seg, err := openSegment(filepath.Join(dir, segmentFileName(idx)))
		if err != nil {
			return nil, err
		}
		w.scanSegment(seg.mapping, idx)
		if err := seg.close(); err != nil {
			return nil, err
		}
	}

	lastIdx := indices[len(indices)-1]
	seg, err := openSegment(filepath.Join(dir, segmentFileName(lastIdx)))
	if err != nil {
		return nil, err
	}
	usedLen := w.scanSegment(seg.mapping, lastIdx)
	seg.writeOffset.Store(int64(usedLen))
	w.active = seg
	w.activeIndex = lastIdx
	return w, nil
}

func existingSegmentIndices(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("journal: read dir %s: %w", dir, err)
	}
	var indices []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".log") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".log"))
		if err != nil {
			continue
		}
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return indices, nil
}

// scanSegment decodes mapping from the start, recording each valid
// entry's location in the seek index and advancing the per-direction
// sequence counters, stopping at the first record that fails its
// checksum or runs past the mapped region — a torn write from a crash
// mid-append. Everything before that point is valid and kept; everything
// from that point on is treated as not having happened, per the
// journal's truncate-on-corrupt-tail recovery policy. It returns the
// number of bytes consumed.
func (w *Writer) scanSegment(mapping []byte, segIndex int) int {
	off := 0
	for {
		if off >= len(mapping) {
			break
		}
		e, consumed, ok := Decode(mapping[off:])
		if consumed == 0 {
			break // zero bytes (never written) or too short to be a header
		}
		if !ok {
			break // checksum mismatch: torn tail write, stop here
		}
		w.recordIndex(e, segIndex, off)
		off += consumed
	}
	return off
}

// recordIndex places e's location in the per-direction seek index and
// advances that direction's sequence counter past e.SeqNum.
func (w *Writer) recordIndex(e Entry, segIndex, offset int) {
	d := e.Direction
	for int64(len(w.index[d])) < e.SeqNum {
		w.index[d] = append(w.index[d], entryLoc{})
	}
	w.index[d][e.SeqNum-1] = entryLoc{segIndex: segIndex, offset: offset}
	if e.SeqNum >= w.nextSeq[d] {
		w.nextSeq[d] = e.SeqNum + 1
	}
}

// Append journals one message, assigning it the next sequence number in
// direction's own counter, and returns that sequence number. It rotates
// to a new segment transparently if the active one is full.
func (w *Writer) Append(direction Direction, msgType byte, payload []byte, timestampNs int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.nextSeq[direction]
	entry := Entry{SeqNum: seq, TimestampNs: timestampNs, Direction: direction, MsgType: msgType, Payload: payload}
	w.scratch = w.scratch[:0]
	w.scratch = Encode(w.scratch, entry)

	offset, ok := w.active.append(w.scratch)
	segIdx := w.activeIndex
	if !ok {
		if err := w.rotate(); err != nil {
			return 0, err
		}
		segIdx = w.activeIndex
		offset, ok = w.active.append(w.scratch)
		if !ok {
			return 0, fmt.Errorf("journal: entry of %d bytes exceeds segment size %d", len(w.scratch), w.segmentSize)
		}
	}
	w.recordIndex(entry, segIdx, int(offset))
	return seq, nil
}

// rotate creates the next segment file, then seals the active segment
// (truncating its unused tail) and switches to the new one.
func (w *Writer) rotate() error {
	next := w.activeIndex + 1
	seg, err := createSegment(filepath.Join(w.dir, segmentFileName(next)), w.segmentSize)
	if err != nil {
		return err
	}
	if err := w.active.seal(); err != nil {
		seg.close()
		return err
	}
	if err := w.active.close(); err != nil {
		seg.close()
		return err
	}
	w.active = seg
	w.activeIndex = next
	return nil
}

// Sync flushes the active segment's mapping to disk.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active.sync()
}

// NextSeq returns the sequence number that will be assigned to the next
// Append call for direction, without consuming it.
func (w *Writer) NextSeq(direction Direction) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nextSeq[direction]
}

// readAt decodes the entry at loc, opening its segment file read-only
// unless it is the currently active (and already mapped) one.
func (w *Writer) readAt(loc entryLoc) (Entry, error) {
	if loc.segIndex == w.activeIndex {
		e, _, ok := Decode(w.active.mapping[loc.offset:])
		if !ok {
			return Entry{}, fmt.Errorf("journal: corrupt entry at segment %d offset %d", loc.segIndex, loc.offset)
		}
		return e, nil
	}
	f, err := os.Open(filepath.Join(w.dir, segmentFileName(loc.segIndex)))
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()
	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, int64(loc.offset)); err != nil {
		return Entry{}, err
	}
	total := int(binary.BigEndian.Uint32(buf))
	full := make([]byte, total)
	if _, err := f.ReadAt(full, int64(loc.offset)); err != nil {
		return Entry{}, err
	}
	e, _, ok := Decode(full)
	if !ok {
		return Entry{}, fmt.Errorf("journal: corrupt entry at segment %d offset %d", loc.segIndex, loc.offset)
	}
	return e, nil
}

// GetLatest returns the most recently appended entry in direction's own
// sequence space, or ok=false if nothing has been appended for it yet.
// The lookup is O(1): it reads straight off the seek index built at Open
// and maintained on every Append.
func (w *Writer) GetLatest(direction Direction) (Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	locs := w.index[direction]
	if len(locs) == 0 {
		return Entry{}, false
	}
	e, err := w.readAt(locs[len(locs)-1])
	if err != nil {
		return Entry{}, false
	}
	return e, true
}

// Replay invokes cb for every entry whose sequence number falls in
// [fromSeq, toSeq], restricted to dir when dir is non-nil, in ascending
// sequence order. When dir is nil both directions are replayed, merged
// in timestamp order. It stops and returns cb's error the first time cb
// returns one.
func (w *Writer) Replay(dir *Direction, fromSeq, toSeq int64, cb func(Entry) error) error {
	w.mu.Lock()
	entries, err := w.collectRange(dir, fromSeq, toSeq)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := cb(e); err != nil {
			return err
		}
	}
	return nil
}

// ReplayByTime invokes cb for every entry whose TimestampNs falls in
// [fromNs, toNs], restricted to dir when dir is non-nil, in ascending
// timestamp order.
func (w *Writer) ReplayByTime(dir *Direction, fromNs, toNs int64, cb func(Entry) error) error {
	w.mu.Lock()
	entries, err := w.collectAll(dir)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.TimestampNs < fromNs || e.TimestampNs > toNs {
			continue
		}
		if err := cb(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) collectRange(dir *Direction, fromSeq, toSeq int64) ([]Entry, error) {
	dirs := []Direction{DirectionInbound, DirectionOutbound}
	if dir != nil {
		dirs = []Direction{*dir}
	}
	var out []Entry
	for _, d := range dirs {
		locs := w.index[d]
		lo := fromSeq
		if lo < 1 {
			lo = 1
		}
		hi := toSeq
		if hi > int64(len(locs)) {
			hi = int64(len(locs))
		}
		for seq := lo; seq <= hi; seq++ {
			e, err := w.readAt(locs[seq-1])
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	if dir == nil {
		sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampNs < out[j].TimestampNs })
	}
	return out, nil
}

func (w *Writer) collectAll(dir *Direction) ([]Entry, error) {
	dirs := []Direction{DirectionInbound, DirectionOutbound}
	if dir != nil {
		dirs = []Direction{*dir}
	}
	var out []Entry
	for _, d := range dirs {
		for _, loc := range w.index[d] {
			e, err := w.readAt(loc)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampNs < out[j].TimestampNs })
	return out, nil
}

// Close seals and unmaps the active segment.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.active.seal(); err != nil {
		return err
	}
	return w.active.close()
}
