package ring

import "sync"

// Size-bucketed pools for payloads too large for a slot's inline buffer.
// Bucketing by size class (rather than one pool of variable-size slices)
// keeps sync.Pool's per-P cache effective instead of thrashing on
// mismatched-size reuse.
var (
	pool4k  = sync.Pool{New: func() any { b := make([]byte, 4*1024); return &b }}
	pool16k = sync.Pool{New: func() any { b := make([]byte, 16*1024); return &b }}
	pool64k = sync.Pool{New: func() any { b := make([]byte, 64*1024); return &b }}
)

// GetOverflow returns a buffer of at least size bytes, borrowed from the
// smallest bucket that fits. Buffers returned via PutOverflow must have
// come from GetOverflow with a matching size class.
func GetOverflow(size int) []byte {
	switch {
	case size <= 4*1024:
		p := pool4k.Get().(*[]byte)
		return (*p)[:size]
	case size <= 16*1024:
		p := pool16k.Get().(*[]byte)
		return (*p)[:size]
	default:
		p := pool64k.Get().(*[]byte)
		if cap(*p) < size {
			b := make([]byte, size)
			return b
		}
		return (*p)[:size]
	}
}

// PutOverflow returns buf to its size-class pool. buf must have been
// obtained from GetOverflow (or be a plain slice, which is simply
// dropped for GC rather than pooled, since it didn't come from a bucket).
func PutOverflow(buf []byte) {
	c := cap(buf)
	full := buf[:c]
	switch c {
	case 4 * 1024:
		pool4k.Put(&full)
	case 16 * 1024:
		pool16k.Put(&full)
	case 64 * 1024:
		pool64k.Put(&full)
	default:
		// not a pooled size class; let GC reclaim it.
	}
}
