// Package ring implements a single-producer single-consumer ring buffer
// used to hand outbound messages from the caller's goroutine to a
// session's writer thread without per-message heap allocation.
package ring

import "sync/atomic"

// SlotState tracks one slot's position in its claim/fill/commit/consume
// lifecycle, the same three-phase shape used for in-flight I/O tags
// elsewhere in this codebase's ancestry, renamed to the ring's own
// vocabulary.
type SlotState int32

const (
	// SlotFree means the consumer has drained this slot and the producer
	// may claim it.
	SlotFree SlotState = iota
	// SlotClaimed means the producer owns the slot and is writing into
	// its payload; the consumer must not read it yet.
	SlotClaimed
	// SlotCommitted means the producer has finished writing and the
	// consumer may read and then free the slot.
	SlotCommitted
)

// Slot is one ring buffer entry. Payload is preallocated at ring
// construction time to constants.DefaultSlotCapacity; a message that does
// not fit borrows from the overflow pool (see pool.go) and Slot.Overflow
// points at the borrowed buffer instead.
type Slot struct {
	state atomic.Int32

	SeqNum     int64
	MsgType    string
	Payload    []byte // fixed-capacity inline buffer
	Overflow   []byte // non-nil if this message borrowed from the pool
	PayloadLen int

	// SeqPatchOffset is the offset within the committed payload (Payload
	// or Overflow, whichever is in use) of a fixed-width sequence-number
	// placeholder the producer reserved but did not fill in, or -1 if
	// this message carries no such placeholder. The consumer patches the
	// real outbound sequence number in at this offset at commit time, per
	// the ring's assign-sequence-on-the-consumer-side contract.
	SeqPatchOffset int
}

// tryClaim attempts Free -> Claimed, returning whether it succeeded. Only
// the single producer calls this, but it is still a CAS rather than a
// plain load+store so the consumer's concurrent release-store of Free
// (from Release) can never race a torn read.
func (s *Slot) tryClaim() bool {
	if !s.state.CompareAndSwap(int32(SlotFree), int32(SlotClaimed)) {
		return false
	}
	s.SeqPatchOffset = -1
	return true
}

// commit publishes a claimed slot for the consumer: Claimed -> Committed.
// This is the release half of the ring's release/acquire pair — every
// write to Payload/SeqNum/MsgType above must happen-before this store.
func (s *Slot) commit() {
	s.state.Store(int32(SlotCommitted))
}

// release returns a committed slot to Free after the consumer has read it:
// Committed -> Free. This is the acquire half's counterpart on the way
// back around the ring.
func (s *Slot) release() {
	s.Overflow = nil
	s.state.Store(int32(SlotFree))
}

func (s *Slot) isCommitted() bool {
	return SlotState(s.state.Load()) == SlotCommitted
}
