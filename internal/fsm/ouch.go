package fsm

import "fmt"

// OuchState enumerates the states of a SoupBinTCP-transported OUCH
// session. OUCH has no analogue of FIX's resend request; a gap at login is
// resolved by the requested sequence number, and the server replays
// unacknowledged messages starting there rather than the client asking
// mid-session.
type OuchState int

const (
	OuchCreated OuchState = iota
	OuchDisconnected
	OuchConnecting
	OuchConnected
	OuchLoginSent
	OuchLoggedIn
	OuchLogoutSent
	OuchStopped
)

func (s OuchState) String() string {
	switch s {
	case OuchCreated:
		return "created"
	case OuchDisconnected:
		return "disconnected"
	case OuchConnecting:
		return "connecting"
	case OuchConnected:
		return "connected"
	case OuchLoginSent:
		return "login_sent"
	case OuchLoggedIn:
		return "logged_in"
	case OuchLogoutSent:
		return "logout_sent"
	case OuchStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// OuchSession holds the mutable state of one OUCH/SoupBinTCP session.
type OuchSession struct {
	SoupUsername string
	Seq          *SequenceEngine

	state OuchState
}

// NewOuchSession constructs an OuchSession in OuchCreated.
func NewOuchSession(soupUsername string) *OuchSession {
	return &OuchSession{
		SoupUsername: soupUsername,
		state:        OuchCreated,
		Seq:          NewSequenceEngine(),
	}
}

func (o *OuchSession) State() OuchState { return o.state }

// OutgoingSeq and IncomingSeq are both exposed, deliberately symmetric:
// SoupBinTCP tracks a sequence number in each direction and nothing in
// this session's design favors hiding one side over the other.
func (o *OuchSession) OutgoingSeq() int64 { return o.Seq.PeekOutgoing() }
func (o *OuchSession) IncomingSeq() int64 { return o.Seq.Expected() }

var ouchTransitions = map[OuchState][]OuchState{
	OuchCreated:      {OuchDisconnected, OuchConnecting},
	OuchDisconnected: {OuchConnecting, OuchStopped},
	OuchConnecting:   {OuchConnected, OuchDisconnected, OuchStopped},
	OuchConnected:    {OuchLoginSent, OuchDisconnected, OuchStopped},
	OuchLoginSent:    {OuchLoggedIn, OuchDisconnected, OuchStopped},
	OuchLoggedIn:     {OuchLogoutSent, OuchDisconnected, OuchStopped},
	OuchLogoutSent:   {OuchDisconnected, OuchStopped},
	OuchStopped:      {},
}

// Transition moves the session to `to` if legal from the current state.
func (o *OuchSession) Transition(to OuchState) error {
	allowed := ouchTransitions[o.state]
	for _, a := range allowed {
		if a == to {
			o.state = to
			return nil
		}
	}
	return fmt.Errorf("ouch session %s: illegal transition %s -> %s", o.SoupUsername, o.state, to)
}

// OnLogin applies the requested-sequence-number policy (0 means "start
// from the beginning", matching SoupBinTCP's sequenced-data session
// semantics) and moves to LoggedIn.
func (o *OuchSession) OnLogin(requestedSeq int64) error {
	if requestedSeq > 0 {
		o.Seq.SetExpected(requestedSeq)
	}
	return o.Transition(OuchLoggedIn)
}
