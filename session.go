package xsession

import (
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/fathomtrade/xsession/internal/constants"
	"github.com/fathomtrade/xsession/internal/engine"
	"github.com/fathomtrade/xsession/internal/fsm"
	"github.com/fathomtrade/xsession/internal/journal"
	"github.com/fathomtrade/xsession/internal/ring"

	"github.com/fathomtrade/xsession/backend/memstore"
	"github.com/fathomtrade/xsession/backend/mmapstore"
)

// session bundles everything the engine owns for one configured
// SessionConfig: the protocol FSM, its outbound ring, its journal, its
// writer thread, and the live connection once one exists.
type session struct {
	cfg     SessionConfig
	managed *ManagedSession
	ring    *ring.Ring
	store   journal.Store
	metrics *Metrics
	writer  *engine.Writer
	conn    net.Conn

	// lastInboundAt and testRequestSentAt are unix-nano timestamps read
	// by the scheduler goroutine and written by the event-loop goroutine,
	// hence atomics rather than plain fields.
	lastInboundAt      atomic.Int64
	testRequestSentAt  atomic.Int64

	// reconnectBackoff is this session's current reconnect delay,
	// doubling on each failed bring-up attempt and reset to
	// constants.DefaultReconnectInitialBackoff on a successful one.
	reconnectBackoff time.Duration
}

func newSession(cfg SessionConfig) (*session, error) {
	var managed *ManagedSession
	switch cfg.Protocol {
	case "fix":
		version := cfg.FixVersion
		if version == "" {
			version = "FIX.4.2"
		}
		fixSess := fsm.NewFixSession(cfg.SenderCompID, cfg.TargetCompID, version)
		managed = fsm.NewManagedFixSession(cfg.ID, addr(cfg), fixSess)
	case "ouch":
		ouchSess := fsm.NewOuchSession(cfg.SoupUsername)
		managed = fsm.NewManagedOuchSession(cfg.ID, addr(cfg), ouchSess)
	default:
		return nil, NewSessionError("newSession", cfg.ID, CodeConfigError,
			fmt.Sprintf("unsupported protocol %q", cfg.Protocol), nil)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, NewSessionError("newSession", cfg.ID, CodeIoError, "open journal store", err)
	}

	return &session{
		cfg:              cfg,
		managed:          managed,
		ring:             ring.New(constants.DefaultRingCapacity, constants.DefaultSlotCapacity),
		store:            store,
		metrics:          NewMetrics(),
		reconnectBackoff: constants.DefaultReconnectInitialBackoff,
	}, nil
}

func addr(cfg SessionConfig) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

func openStore(cfg SessionConfig) (journal.Store, error) {
	switch cfg.Persistence.StoreType {
	case StoreMemoryMapped, StoreChronicle:
		size := int(cfg.Persistence.SegmentSize)
		if size <= 0 {
			size = constants.DefaultJournalSegmentSize
		}
		dir := cfg.Persistence.Directory
		if dir == "" {
			dir = "." + string(os.PathSeparator) + "journal-" + cfg.ID
		}
		return mmapstore.Open(dir, size)
	default:
		return memstore.New(), nil
	}
}

// enqueue claims a slot, copies payload in (borrowing from the overflow
// pool when it exceeds the inline slot capacity), and commits it for the
// writer thread to drain. It is the only way application code hands a
// session bytes to send. seqPatchOffset is the offset of a
// SetSeqPlaceholder reservation within payload, or -1 if payload carries
// no such reservation; the writer thread assigns and patches in the real
// outbound sequence number at commit time, not here, so that wire order
// matches journal order exactly.
func (s *session) enqueue(msgType string, payload []byte, seqPatchOffset int) error {
	slot, err := s.ring.TryClaim()
	if err != nil {
		return NewSessionError("enqueue", s.cfg.ID, CodeBufferFull, "ring full", err)
	}
	slot.MsgType = msgType
	slot.SeqPatchOffset = seqPatchOffset
	if len(payload) <= len(slot.Payload) {
		slot.PayloadLen = copy(slot.Payload, payload)
		slot.Overflow = nil
	} else {
		slot.Overflow = ring.GetOverflow(len(payload))
		slot.PayloadLen = copy(slot.Overflow, payload)
	}
	s.ring.Commit(slot)
	s.metrics.MessagesOut.Add(1)
	s.metrics.BytesOut.Add(uint64(len(payload)))
	return nil
}
