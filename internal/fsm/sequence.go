// Package fsm implements the FIX and OUCH session state machines and the
// sequence-number bookkeeping they share.
package fsm

import "sync/atomic"

// SequenceEngine tracks the outgoing sequence number this side assigns and
// the incoming sequence number expected from the counterparty. Both
// protocols need exactly this pair; FIX additionally needs gap-fill and
// resend bookkeeping layered on top (see FixSession).
type SequenceEngine struct {
	outgoing atomic.Int64
	expected atomic.Int64
}

// NewSequenceEngine starts outgoing at 1 and expects 1 from the peer,
// matching both FIX's and SoupBinTCP's 1-based sequence numbering.
func NewSequenceEngine() *SequenceEngine {
	se := &SequenceEngine{}
	se.outgoing.Store(1)
	se.expected.Store(1)
	return se
}

// NextOutgoing atomically reserves and returns the next outgoing sequence
// number, incrementing for the following call.
func (s *SequenceEngine) NextOutgoing() int64 {
	return s.outgoing.Add(1) - 1
}

// PeekOutgoing returns the next sequence number that will be assigned
// without consuming it.
func (s *SequenceEngine) PeekOutgoing() int64 {
	return s.outgoing.Load()
}

// Expected returns the sequence number expected from the peer next.
func (s *SequenceEngine) Expected() int64 {
	return s.expected.Load()
}

// Advance records that a message with the given sequence number was
// accepted, moving the expectation to seq+1.
func (s *SequenceEngine) Advance(seq int64) {
	s.expected.Store(seq + 1)
}

// Reset reinitializes both counters to 1, used when a FIX Logon carries
// ResetSeqNumFlag=Y and by the end-of-day cycle.
func (s *SequenceEngine) Reset() {
	s.outgoing.Store(1)
	s.expected.Store(1)
}

// SetOutgoing forces the next outgoing sequence number, used when resuming
// from a journal-derived high-water mark.
func (s *SequenceEngine) SetOutgoing(n int64) {
	s.outgoing.Store(n)
}

// SetExpected forces the expected incoming sequence number, used when a
// login/logon specifies a non-zero requested sequence number.
func (s *SequenceEngine) SetExpected(n int64) {
	s.expected.Store(n)
}
