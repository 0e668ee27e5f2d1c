// Package handshake sequences the connect -> logon/login ->
// loggedon/loggedin bring-up (and the symmetric logout/teardown) for a
// session, independent of which wire protocol backs it. It is the
// generalization of a device control-plane bring-up sequence (open
// control channel, add device, set params, start device) onto a
// session's bring-up sequence (dial, send logon, await confirmation,
// mark active).
package handshake

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fathomtrade/xsession/internal/constants"
	"github.com/fathomtrade/xsession/internal/fsm"
	"github.com/fathomtrade/xsession/internal/interfaces"
)

// Dialer abstracts net.Dial for tests that substitute an in-memory pipe.
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// Controller sequences one session's bring-up and teardown, logging each
// step the way a control-plane command sequence does, so a failure can be
// attributed to the exact step that produced it.
type Controller struct {
	logger interfaces.Logger
	dial   Dialer
}

// New builds a Controller. If dial is nil, net's default dialer is used.
func New(logger interfaces.Logger, dial Dialer) *Controller {
	if dial == nil {
		dial = func(ctx context.Context, network, address string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, address)
		}
	}
	return &Controller{logger: logger, dial: dial}
}

// transition applies a ManagedSession's underlying protocol-specific
// transition (fixTo for FIX, ouchTo for OUCH), so the steps below can stay
// protocol-agnostic.
func transition(m *fsm.ManagedSession, fixTo fsm.FixState, ouchTo fsm.OuchState) error {
	if m.Protocol == fsm.ProtocolFix {
		return m.Fix.Transition(fixTo)
	}
	return m.Ouch.Transition(ouchTo)
}

// Connect dials the session's configured address and transitions the
// underlying FSM Disconnected -> Connecting -> Connected.
func (c *Controller) Connect(ctx context.Context, m *fsm.ManagedSession) (net.Conn, error) {
	c.logger.Debug("connecting", "session", m.ID, "address", m.Address)
	if err := transition(m, fsm.FixConnecting, fsm.OuchConnecting); err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	conn, err := c.dial(ctx, "tcp", m.Address)
	if err != nil {
		c.logger.Error("connect failed", "session", m.ID, "error", err)
		return nil, fmt.Errorf("handshake: connect %s: %w", m.ID, err)
	}
	if err := transition(m, fsm.FixConnected, fsm.OuchConnected); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	c.logger.Info("connected", "session", m.ID, "address", m.Address)
	return conn, nil
}

// SendLogon writes a caller-built logon/login frame and moves the session
// to its "sent, awaiting confirmation" state.
func (c *Controller) SendLogon(conn net.Conn, m *fsm.ManagedSession, frame []byte) error {
	c.logger.Debug("sending logon", "session", m.ID, "bytes", len(frame))
	if err := transition(m, fsm.FixLogonSent, fsm.OuchLoginSent); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		c.logger.Error("logon write failed", "session", m.ID, "error", err)
		return fmt.Errorf("handshake: send logon %s: %w", m.ID, err)
	}
	return nil
}

// AwaitLoggedOn blocks, polling the session's reduced state, until it
// reaches LoggedOn or timeout elapses. The actual state transition is
// driven elsewhere (the event loop, on receiving the logon
// acknowledgement); this just waits for it.
func (c *Controller) AwaitLoggedOn(m *fsm.ManagedSession, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = constants.DefaultLogonTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		switch m.State() {
		case fsm.LoggedOn:
			c.logger.Info("logged on", "session", m.ID)
			return nil
		case fsm.Stopped, fsm.Disconnected:
			return fmt.Errorf("handshake: session %s left connecting state before logon: %s", m.ID, m.State())
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("handshake: session %s logon timed out after %s", m.ID, timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// Stop writes a caller-built logout/logout-request frame, best-effort.
func (c *Controller) Stop(conn net.Conn, m *fsm.ManagedSession, frame []byte) error {
	c.logger.Debug("stopping session", "session", m.ID)
	if len(frame) > 0 && conn != nil {
		if _, err := conn.Write(frame); err != nil {
			c.logger.Warn("logout write failed, proceeding with close", "session", m.ID, "error", err)
		}
	}
	return transition(m, fsm.FixLogoutSent, fsm.OuchLogoutSent)
}

// Close releases the transport. Errors are logged, not returned, matching
// the teardown-is-best-effort policy used for device shutdown sequencing.
func (c *Controller) Close(conn net.Conn, m *fsm.ManagedSession) {
	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Warn("close failed", "session", m.ID, "error", err)
		}
	}
	if err := transition(m, fsm.FixStopped, fsm.OuchStopped); err != nil {
		c.logger.Warn("final transition failed", "session", m.ID, "error", err)
	}
}

// Disconnect releases the transport like Close but leaves the session in
// its non-terminal Disconnected state rather than Stopped, so a reconnect
// attempt (sequence-too-low, inbound silence, peer logout, end-of-day
// cycling) can legally transition it back through Connecting.
func (c *Controller) Disconnect(conn net.Conn, m *fsm.ManagedSession) {
	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Warn("close failed", "session", m.ID, "error", err)
		}
	}
	if err := transition(m, fsm.FixDisconnected, fsm.OuchDisconnected); err != nil {
		c.logger.Warn("disconnect transition failed", "session", m.ID, "error", err)
	}
}
