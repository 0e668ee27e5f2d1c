package journal

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// segment is one memory-mapped journal file. Segments are fixed-capacity:
// once writeOffset would exceed len(mapping), the writer rotates to a new
// segment rather than growing this one, so the mapping never needs to be
// remapped mid-flight.
type segment struct {
	path    string
	file    *os.File
	mapping []byte

	writeOffset atomic.Int64 // next free byte, also this segment's "committed length" for readers
}

// createSegment allocates a new segment file of exactly capacity bytes
// and maps it. The file is pre-truncated to its full capacity (not grown
// incrementally) so the mmap region is stable for the segment's lifetime,
// mirroring the fixed-size-then-mmap-once discipline used for the
// descriptor/I/O-buffer mappings elsewhere in this codebase's ancestry.
func createSegment(path string, capacity int) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: create segment %s: %w", path, err)
	}
	if err := f.Truncate(int64(capacity)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("journal: truncate segment %s: %w", path, err)
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("journal: mmap segment %s: %w", path, err)
	}
	return &segment{path: path, file: f, mapping: mapping}, nil
}

// openSegment maps an existing segment file for replay/recovery. The
// caller is responsible for scanning its contents to rebuild writeOffset
// (see Open and Writer.scanSegment).
func openSegment(path string) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open segment %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: mmap segment %s: %w", path, err)
	}
	return &segment{path: path, file: f, mapping: mapping}, nil
}

// append writes a pre-encoded entry's bytes at the current write offset.
// Returns false if the segment lacks room; the caller must rotate.
func (s *segment) append(encoded []byte) (offset int64, ok bool) {
	off := s.writeOffset.Load()
	if int(off)+len(encoded) > len(s.mapping) {
		return 0, false
	}
	copy(s.mapping[off:], encoded)
	s.writeOffset.Store(off + int64(len(encoded)))
	return off, true
}

// sync flushes the mapping to disk. Called by Writer.Sync, not on every
// append, matching the journal's documented fsync-on-demand contract.
func (s *segment) sync() error {
	return unix.Msync(s.mapping, unix.MS_SYNC)
}

// seal truncates the backing file down to the actually-used length so a
// partially-filled segment does not leave a multi-hundred-megabyte block
// of zero bytes behind it once rotated away from.
func (s *segment) seal() error {
	used := s.writeOffset.Load()
	if err := s.file.Truncate(used); err != nil {
		return err
	}
	return nil
}

func (s *segment) close() error {
	if err := unix.Munmap(s.mapping); err != nil {
		return err
	}
	return s.file.Close()
}
