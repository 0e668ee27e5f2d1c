package fsm

import "fmt"

// FixState enumerates the states of a FIX session per the initiator/
// acceptor handshake and recovery flow.
type FixState int

const (
	FixCreated FixState = iota
	FixDisconnected
	FixConnecting
	FixConnected
	FixLogonSent
	FixLoggedOn
	FixResending
	FixLogoutSent
	FixStopped
)

func (s FixState) String() string {
	switch s {
	case FixCreated:
		return "created"
	case FixDisconnected:
		return "disconnected"
	case FixConnecting:
		return "connecting"
	case FixConnected:
		return "connected"
	case FixLogonSent:
		return "logon_sent"
	case FixLoggedOn:
		return "logged_on"
	case FixResending:
		return "resending"
	case FixLogoutSent:
		return "logout_sent"
	case FixStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FixSession holds the mutable state of one FIX session. It is driven
// exclusively from the engine's event-loop goroutine for a given session,
// so the state field itself needs no locking; the embedded SequenceEngine
// uses atomics because metrics/monitoring code may read it from another
// goroutine.
type FixSession struct {
	SenderCompID string
	TargetCompID string
	FixVersion   string

	state FixState
	Seq   *SequenceEngine

	// ResendRequested is set when a SequenceGap triggered a
	// ResendRequest and cleared once the gap-fill/replay completes.
	ResendRequested bool
	ResendFrom      int64
	ResendTo        int64
}

// NewFixSession constructs a FixSession in FixCreated with a fresh
// sequence engine.
func NewFixSession(senderCompID, targetCompID, fixVersion string) *FixSession {
	return &FixSession{
		SenderCompID: senderCompID,
		TargetCompID: targetCompID,
		FixVersion:   fixVersion,
		state:        FixCreated,
		Seq:          NewSequenceEngine(),
	}
}

func (f *FixSession) State() FixState { return f.state }

// fixTransitions enumerates every legal (from, to) pair. An attempt to
// transition outside this table is a programming error, not a protocol
// condition, and returns an error so the caller can decide how to react
// rather than panicking mid-event-loop.
var fixTransitions = map[FixState][]FixState{
	FixCreated:      {FixDisconnected, FixConnecting},
	FixDisconnected: {FixConnecting, FixStopped},
	FixConnecting:   {FixConnected, FixDisconnected, FixStopped},
	FixConnected:    {FixLogonSent, FixDisconnected, FixStopped},
	FixLogonSent:    {FixLoggedOn, FixDisconnected, FixStopped},
	FixLoggedOn:     {FixResending, FixLogoutSent, FixDisconnected, FixStopped},
	FixResending:    {FixLoggedOn, FixDisconnected, FixStopped},
	FixLogoutSent:   {FixDisconnected, FixStopped},
	FixStopped:      {},
}

// Transition moves the session to `to` if legal from the current state.
func (f *FixSession) Transition(to FixState) error {
	allowed := fixTransitions[f.state]
	for _, a := range allowed {
		if a == to {
			f.state = to
			return nil
		}
	}
	return fmt.Errorf("fix session %s: illegal transition %s -> %s", f.SenderCompID, f.state, to)
}

// OnLogon applies the reset-on-logon policy and moves to LoggedOn.
func (f *FixSession) OnLogon(resetSeqNumFlag bool) error {
	if resetSeqNumFlag {
		f.Seq.Reset()
	}
	return f.Transition(FixLoggedOn)
}

// OnSequenceGap begins a resend request and moves to Resending.
func (f *FixSession) OnSequenceGap(expected, received int64) error {
	f.ResendRequested = true
	f.ResendFrom = expected
	f.ResendTo = received - 1
	return f.Transition(FixResending)
}

// OnResendComplete clears resend bookkeeping and returns to LoggedOn.
func (f *FixSession) OnResendComplete() error {
	f.ResendRequested = false
	f.ResendFrom = 0
	f.ResendTo = 0
	return f.Transition(FixLoggedOn)
}
