package xsession

import "github.com/fathomtrade/xsession/internal/fsm"

// MessageListener is invoked on the event-loop goroutine for every
// inbound message a session accepts, session-level (admin) messages
// included. Implementations must not block:
// the event loop cannot service other sessions while a listener runs. This
// is a plain function type rather than an interface so the hot path never
// pays for dynamic dispatch through a vtable of unknown implementations.
type MessageListener func(session *ManagedSession, msgType string, body []byte)

// SessionStateListener is invoked when a session completes bring-up, is
// disconnected, or is stopped, on whichever goroutine drove that step
// (Start, the event loop, the scheduler, or Stop's caller). It must not
// block either.
type SessionStateListener func(session *ManagedSession, from, to string)

// ManagedSession is the public name for the protocol-agnostic session
// handle every listener callback receives. It is a type alias rather than
// a wrapper so callers can pass it straight into internal/handshake and
// internal/fsm helpers without a conversion at every call site.
type ManagedSession = fsm.ManagedSession
