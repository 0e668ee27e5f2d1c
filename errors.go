package xsession

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure in the session engine. Every Code has
// a defined propagation policy: decode errors stay local to the codec call
// site, protocol errors drive a state transition, and resource errors are
// fatal to the owning session.
type Code string

const (
	// CodeNeedMore indicates a decode call saw a partial frame; the caller
	// must read more bytes and retry. Not an error in the user-facing
	// sense — callers type-switch on it to distinguish "keep reading"
	// from genuine failure.
	CodeNeedMore Code = "need_more"

	// CodeChecksumError indicates a FIX trailer checksum mismatch.
	CodeChecksumError Code = "checksum_error"

	// CodeMalformedFrame indicates a frame that violates the wire format
	// (missing required header field, bad length prefix, truncated
	// appendage) in a way recovery-by-reread cannot fix.
	CodeMalformedFrame Code = "malformed_frame"

	// CodeUnknownMsgType indicates a recognized frame with an
	// unrecognized MsgType/message type byte.
	CodeUnknownMsgType Code = "unknown_msg_type"

	// CodeSequenceGap indicates an incoming sequence number greater than
	// expected; the session must request a resend.
	CodeSequenceGap Code = "sequence_gap"

	// CodeSequenceTooLow indicates an incoming sequence number at or
	// below the last processed value without PossDupFlag set; the
	// session must logout.
	CodeSequenceTooLow Code = "sequence_too_low"

	// CodeBufferFull indicates a ring producer could not claim a slot
	// because the consumer has not kept pace.
	CodeBufferFull Code = "buffer_full"

	// CodeWriteFailed indicates a socket write failed or wrote fewer
	// bytes than requested and could not be retried.
	CodeWriteFailed Code = "write_failed"

	// CodeIoError indicates a journal or transport I/O failure not
	// covered by a more specific code.
	CodeIoError Code = "io_error"

	// CodeTimerStarved indicates the scheduler could not service a timer
	// within its expected window (starvation detection).
	CodeTimerStarved Code = "timer_starved"

	// CodeConfigError indicates an invalid or missing configuration
	// value discovered at engine start.
	CodeConfigError Code = "config_error"
)

// Error is the structured error type returned by this package's API (the
// internal packages return plain wrapped errors). It carries enough context to log and to classify without
// string-matching the message.
type Error struct {
	Op      string // operation that failed, e.g. "fix.Decode"
	Session string // session id, empty if not session-scoped
	Code    Code
	Msg     string
	Inner   error
}

func (e *Error) Error() string {
	if e.Session != "" {
		return fmt.Sprintf("%s[%s]: %s: %s", e.Op, e.Session, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, &xsession.Error{Code: xsession.CodeSequenceGap}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError builds an *Error for a non-session-scoped failure.
func NewError(op string, code Code, msg string, inner error) *Error {
	return &Error{Op: op, Code: code, Msg: msg, Inner: inner}
}

// NewSessionError builds an *Error scoped to a session id.
func NewSessionError(op, session string, code Code, msg string, inner error) *Error {
	return &Error{Op: op, Session: session, Code: code, Msg: msg, Inner: inner}
}

// IsCode reports whether err, or any error it wraps, is an *Error with the
// given Code.
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
