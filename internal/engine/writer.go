package engine

import (
	"fmt"
	"net"
	"time"

	"github.com/fathomtrade/xsession/internal/interfaces"
	"github.com/fathomtrade/xsession/internal/journal"
	"github.com/fathomtrade/xsession/internal/ring"
)

// NextSeqFunc reserves and returns the next outbound protocol sequence
// number for a session. PatchSeqFunc writes seq into frame at offset
// (reserved earlier by the producer) and repairs whatever trailer
// checksum depends on those bytes.
type NextSeqFunc func() int64
type PatchSeqFunc func(frame []byte, offset int, seq int64)

// Writer is the per-session writer thread: it drains a session's outbound
// ring buffer, assigns each message's real outbound sequence number,
// journals it, and writes the accumulated batch to the socket in one
// call, matching the batch-then-flush discipline used for completion-queue
// submission elsewhere in this codebase's ancestry (many small operations
// coalesced into one syscall instead of one syscall per message).
type Writer struct {
	id       string
	conn     net.Conn
	ring     *ring.Ring
	store    journal.Store
	logger   interfaces.Logger
	clock    interfaces.Clock
	nextSeq  NextSeqFunc
	patchSeq PatchSeqFunc

	stop chan struct{}
	done chan struct{}
}

// NewWriter constructs a Writer for one session. clock may be nil to use
// interfaces.SystemClock. nextSeq/patchSeq may both be nil for a protocol
// that never reserves a sequence placeholder (e.g. OUCH, whose wire
// sequencing is transport-level, not a per-message field); when a slot
// does carry a reserved placeholder (Slot.SeqPatchOffset >= 0) both must
// be supplied so the real sequence number can be assigned at commit time,
// per the ring pipeline's assign-on-consume contract.
func NewWriter(id string, conn net.Conn, r *ring.Ring, store journal.Store, logger interfaces.Logger, clock interfaces.Clock, nextSeq NextSeqFunc, patchSeq PatchSeqFunc) *Writer {
	if clock == nil {
		clock = interfaces.SystemClock
	}
	return &Writer{
		id:       id,
		conn:     conn,
		ring:     r,
		store:    store,
		logger:   logger,
		clock:    clock,
		nextSeq:  nextSeq,
		patchSeq: patchSeq,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drains the ring until Stop is called or a write fails fatally. It
// is meant to be launched with `go writer.Run()` once per session.
func (w *Writer) Run() {
	defer close(w.done)
	batch := make([]byte, 0, 64*1024)
	for {
		select {
		case <-w.stop:
			w.drainAndFlush(batch[:0])
			return
		default:
		}

		slot, ok := w.ring.TryConsume()
		if !ok {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		batch = batch[:0]
		batch = w.appendSlot(batch, slot)
		w.ring.Release(slot)

		// Opportunistically coalesce any further already-committed
		// slots into the same write before flushing.
		for {
			next, ok := w.ring.TryConsume()
			if !ok {
				break
			}
			batch = w.appendSlot(batch, next)
			w.ring.Release(next)
		}

		if err := w.flush(batch); err != nil {
			w.logger.Error("writer flush failed", "session", w.id, "error", err)
			return
		}
	}
}

func (w *Writer) appendSlot(batch []byte, slot *ring.Slot) []byte {
	payload := slot.Payload[:slot.PayloadLen]
	if slot.Overflow != nil {
		payload = slot.Overflow[:slot.PayloadLen]
	}
	if slot.SeqPatchOffset >= 0 && w.nextSeq != nil && w.patchSeq != nil {
		seq := w.nextSeq()
		w.patchSeq(payload, slot.SeqPatchOffset, seq)
		slot.SeqNum = seq
	}
	if _, err := w.store.Append(journal.DirectionOutbound, byte(slot.MsgType[0]), payload, w.clock.Now().UnixNano()); err != nil {
		w.logger.Error("journal append failed", "session", w.id, "error", err)
	}
	if slot.Overflow != nil {
		ring.PutOverflow(slot.Overflow)
	}
	return append(batch, payload...)
}

func (w *Writer) drainAndFlush(batch []byte) {
	for {
		slot, ok := w.ring.TryConsume()
		if !ok {
			break
		}
		batch = w.appendSlot(batch, slot)
		w.ring.Release(slot)
	}
	if len(batch) > 0 {
		w.flush(batch)
	}
}

func (w *Writer) flush(batch []byte) error {
	if len(batch) == 0 {
		return nil
	}
	n, err := w.conn.Write(batch)
	if err != nil {
		return fmt.Errorf("engine: write session %s: %w", w.id, err)
	}
	if n != len(batch) {
		return fmt.Errorf("engine: short write session %s: wrote %d of %d", w.id, n, len(batch))
	}
	return nil
}

// Stop signals Run to drain remaining slots and return, then blocks until
// it has.
func (w *Writer) Stop() {
	close(w.stop)
	<-w.done
}
