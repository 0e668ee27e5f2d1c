package ring

import (
	"errors"
)

// ErrFull is returned by TryClaim when the consumer has not kept pace and
// no slot is free. Callers implement the ring's back-pressure policy
// (spin, block with timeout, or drop) on top of this signal rather than
// the ring blocking internally.
var ErrFull = errors.New("ring: full")

// Ring is a fixed-capacity single-producer single-consumer ring buffer.
// Capacity must be a power of two so the index wrap is a mask instead of
// a modulo.
type Ring struct {
	slots    []Slot
	mask     uint64
	capacity uint64

	head uint64 // next slot index the producer will try to claim
	tail uint64 // next slot index the consumer will try to read
}

// New constructs a Ring with the given capacity (rounded up to the next
// power of two) and per-slot inline payload size.
func New(capacity int, slotCapacity int) *Ring {
	cap64 := nextPowerOfTwo(uint64(capacity))
	r := &Ring{
		slots:    make([]Slot, cap64),
		mask:     cap64 - 1,
		capacity: cap64,
	}
	for i := range r.slots {
		r.slots[i].Payload = make([]byte, slotCapacity)
	}
	return r
}

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Capacity returns the ring's slot count.
func (r *Ring) Capacity() int { return int(r.capacity) }

// TryClaim reserves the next slot for the producer, returning ErrFull if
// the consumer has not yet freed it. Only one goroutine may call TryClaim
// at a time (single producer).
func (r *Ring) TryClaim() (*Slot, error) {
	idx := r.head & r.mask
	slot := &r.slots[idx]
	if !slot.tryClaim() {
		return nil, ErrFull
	}
	r.head++
	return slot, nil
}

// Commit publishes a claimed slot for the consumer to read. The caller
// must have finished writing Slot.Payload/PayloadLen/SeqNum/MsgType
// before calling Commit.
func (r *Ring) Commit(s *Slot) {
	s.commit()
}

// TryConsume returns the next committed slot if one is available, or
// ok=false if the producer has not committed anything new. Only one
// goroutine may call TryConsume at a time (single consumer). The caller
// must call Release when done with the slot's contents.
func (r *Ring) TryConsume() (slot *Slot, ok bool) {
	idx := r.tail & r.mask
	s := &r.slots[idx]
	if !s.isCommitted() {
		return nil, false
	}
	r.tail++
	return s, true
}

// Release returns a consumed slot to the pool of free slots.
func (r *Ring) Release(s *Slot) {
	s.release()
}

// Len estimates the number of committed-but-unconsumed entries. This is a
// snapshot, not a synchronized count: it is intended for metrics/logging,
// not for correctness decisions.
func (r *Ring) Len() int {
	h := r.head
	t := r.tail
	if h >= t {
		return int(h - t)
	}
	return 0
}
