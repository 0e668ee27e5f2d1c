package xsession

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fathomtrade/xsession/internal/constants"
	"github.com/fathomtrade/xsession/internal/engine"
	"github.com/fathomtrade/xsession/internal/fsm"
	"github.com/fathomtrade/xsession/internal/handshake"
	"github.com/fathomtrade/xsession/internal/interfaces"
	"github.com/fathomtrade/xsession/internal/journal"
	"github.com/fathomtrade/xsession/internal/logging"
	"github.com/fathomtrade/xsession/internal/wire/fix"
	"github.com/fathomtrade/xsession/internal/wire/ouch"
)

// Engine owns every configured session's connection, journal, and
// sequencing, and drives them from one event loop, one scheduler, and one
// writer goroutine per session, per the engine's concurrency model.
type Engine struct {
	lifecycle *lifecycle
	logger    interfaces.Logger
	observer  interfaces.Observer

	loop       *engine.EventLoop
	scheduler  *engine.Scheduler
	controller *handshake.Controller

	ctx context.Context

	mu       sync.Mutex
	sessions map[string]*session

	onMessage MessageListener
	onState   SessionStateListener
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithObserver installs an Observer that receives side-effect
// notifications (message counts, rejects, reconnects, gaps) for every
// session this Engine owns.
func WithObserver(o interfaces.Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithMessageListener installs the callback invoked for every inbound
// message the engine accepts, session-level (admin) messages included.
func WithMessageListener(fn MessageListener) EngineOption {
	return func(e *Engine) { e.onMessage = fn }
}

// WithSessionStateListener installs the callback invoked when a session
// completes bring-up, is disconnected, or is stopped.
func WithSessionStateListener(fn SessionStateListener) EngineOption {
	return func(e *Engine) { e.onState = fn }
}

// WithLogger overrides the engine's default stderr logger.
func WithLogger(l interfaces.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine constructs an Engine from configuration. It does not dial any
// session; call Start for that.
func NewEngine(cfg *EngineConfig, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		lifecycle: newLifecycle(),
		logger:    logging.NewLogger(nil),
		observer:  interfaces.NoOpObserver{},
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}

	loop, err := engine.New(e.logger)
	if err != nil {
		return nil, NewError("NewEngine", CodeIoError, "construct event loop", err)
	}
	e.loop = loop
	e.scheduler = engine.NewScheduler(e.logger)
	e.controller = handshake.New(e.logger, nil)

	for _, sc := range cfg.Sessions {
		s, err := newSession(sc)
		if err != nil {
			return nil, err
		}
		e.sessions[sc.ID] = s
	}

	e.lifecycle.transition(Initialized, Uninitialized)
	return e, nil
}

// Session returns the managed handle for a configured session ID, or nil
// if no such session was configured.
func (e *Engine) Session(id string) *ManagedSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil
	}
	return s.managed
}

// Metrics returns the per-session counters for a configured session ID, or
// nil if no such session was configured.
func (e *Engine) Metrics(id string) *Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil
	}
	return s.metrics
}

// Enqueue hands payload to a session's outbound ring for its writer thread
// to journal and send. Caller-supplied payloads carry no sequence
// placeholder known to this API, so their sequence numbers (if any) are
// assumed already final; only the engine's own periodic Heartbeat uses the
// deferred-assignment path (Logon takes its sequence number when built).
func (e *Engine) Enqueue(id, msgType string, payload []byte) error {
	e.mu.Lock()
	s, ok := e.sessions[id]
	e.mu.Unlock()
	if !ok {
		return NewError("Enqueue", CodeConfigError, fmt.Sprintf("unknown session %q", id), nil)
	}
	return s.enqueue(msgType, payload, -1)
}

// Start transitions the engine Active, dials every configured session,
// completes its logon/login handshake, and launches the event loop,
// scheduler, and per-session writer threads. It blocks until ctx is
// cancelled and the event loop returns; Stop does not cancel ctx.
func (e *Engine) Start(ctx context.Context) error {
	if !e.lifecycle.transition(Active, Initialized, Standby) {
		return NewError("Start", CodeConfigError, fmt.Sprintf("cannot start from state %s", e.lifecycle.Get()), nil)
	}
	e.ctx = ctx

	e.mu.Lock()
	sessions := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	go e.scheduler.Run()

	loopErr := make(chan error, 1)
	go func() { loopErr <- e.loop.Run(ctx) }()

	for _, s := range sessions {
		if !s.managed.Enabled() {
			continue
		}
		if err := e.bringUp(ctx, s); err != nil {
			e.logger.Error("bring-up failed", "session", s.cfg.ID, "error", err)
			e.scheduleReconnect(s)
			continue
		}
	}

	e.registerHeartbeats(sessions)
	e.registerTimers(sessions)

	return <-loopErr
}

func (e *Engine) bringUp(ctx context.Context, s *session) error {
	conn, err := e.controller.Connect(ctx, s.managed)
	if err != nil {
		return err
	}
	s.conn = conn

	frame, err := e.buildLogon(s)
	if err != nil {
		conn.Close()
		return err
	}
	if err := e.controller.SendLogon(conn, s.managed, frame); err != nil {
		conn.Close()
		return err
	}

	var nextSeq engine.NextSeqFunc
	var patchSeq engine.PatchSeqFunc
	if s.managed.Protocol == fsm.ProtocolFix {
		nextSeq = s.managed.NextOutgoingSeq
		patchSeq = fix.PatchSeqNum
	}
	w := engine.NewWriter(s.cfg.ID, conn, s.ring, s.store, e.logger, nil, nextSeq, patchSeq)
	s.writer = w
	go w.Run()

	if err := e.loop.Register(s.cfg.ID, conn, e.onDataFor(s)); err != nil {
		return err
	}

	if err := e.controller.AwaitLoggedOn(s.managed, 0); err != nil {
		return err
	}
	s.lastInboundAt.Store(time.Now().UnixNano())
	s.reconnectBackoff = constants.DefaultReconnectInitialBackoff
	if e.onState != nil {
		e.onState(s.managed, "connecting", "logged_on")
	}
	return nil
}

func (e *Engine) buildLogon(s *session) ([]byte, error) {
	switch s.managed.Protocol {
	case fsm.ProtocolFix:
		return e.buildFixLogon(s), nil
	case fsm.ProtocolOuch:
		login := ouch.LoginRequestPayload{
			Username:          s.cfg.SoupUsername,
			Password:          s.cfg.Auth.Password,
			RequestedSession:  s.cfg.ID,
			RequestedSequence: fmt.Sprintf("%020d", s.cfg.RequestedSeq),
		}
		return ouch.EncodeFrame(nil, ouch.SoupLoginRequest, login.Encode()), nil
	default:
		return nil, NewSessionError("buildLogon", s.cfg.ID, CodeConfigError, "unknown protocol", nil)
	}
}

func (e *Engine) buildFixLogon(s *session) []byte {
	enc := fix.NewEncoder(nil, s.cfg.FixVersion)
	enc.SetField(35, "A")
	enc.SetField(49, s.cfg.SenderCompID)
	enc.SetField(56, s.cfg.TargetCompID)
	enc.SetFieldInt(34, s.managed.NextOutgoingSeq())
	var tsBuf [32]byte
	var fts fix.FastTimestamp
	enc.SetField(52, string(fts.Format(tsBuf[:0], time.Now())))
	enc.SetField(98, "0") // EncryptMethod: none
	enc.SetFieldInt(108, int64(constants.DefaultHeartbeatInterval/time.Second))
	if s.cfg.ResetOnLogon {
		enc.SetField(141, "Y")
	}
	return enc.Finish()
}

func (e *Engine) onDataFor(s *session) engine.OnData {
	return func(data []byte) int {
		switch s.managed.Protocol {
		case fsm.ProtocolFix:
			return e.handleFixData(s, data)
		default:
			return e.handleOuchData(s, data)
		}
	}
}

func (e *Engine) handleFixData(s *session, data []byte) int {
	var msg fix.IncomingMessage
	consumed, result := fix.Decode(data, &msg)
	switch result {
	case fix.ResultOk:
		s.lastInboundAt.Store(time.Now().UnixNano())
		s.testRequestSentAt.Store(0)
		e.handleFixMessage(s, &msg, data[:consumed])
		return consumed
	case fix.ResultChecksumError:
		e.logger.Warn("fix checksum error", "session", s.cfg.ID)
		return consumed
	case fix.ResultMalformedFrame:
		e.logger.Error("fix malformed frame, disconnecting session", "session", s.cfg.ID)
		e.disconnect(s, "malformed frame")
		return len(data)
	default:
		return 0
	}
}

// handleFixMessage applies the FIX session's transition table to one
// decoded inbound message: sequence gap/too-low checking, Logon CompID
// validation, SequenceReset handling, and TestRequest/Logout admin
// replies, forwarding everything else (and every admin message too, for
// journaling purposes) to dispatch.
func (e *Engine) handleFixMessage(s *session, msg *fix.IncomingMessage, raw []byte) {
	fixSess := s.managed.Fix

	if msg.MsgType == "4" {
		e.handleSequenceReset(s, fixSess, msg)
		e.dispatch(s, msg.MsgType, raw, len(raw))
		return
	}

	expected := fixSess.Seq.Expected()
	switch {
	case msg.SeqNum < expected:
		if msg.Poss {
			e.logger.Debug("ignoring possibly-duplicate low sequence message", "session", s.cfg.ID, "seq", msg.SeqNum)
			return
		}
		e.logger.Error("sequence too low, logging out", "session", s.cfg.ID, "expected", expected, "received", msg.SeqNum)
		e.observer.ObserveReject(s.cfg.ID, "sequence too low")
		reason := fmt.Sprintf("MsgSeqNum too low, expecting %d but received %d", expected, msg.SeqNum)
		e.sendFixLogout(s, reason)
		e.disconnect(s, "sequence too low")
		return
	case msg.SeqNum > expected:
		if err := fixSess.OnSequenceGap(expected, msg.SeqNum); err != nil {
			e.logger.Error("sequence gap transition failed", "session", s.cfg.ID, "error", err)
		}
		e.observer.ObserveGap(s.cfg.ID, expected, msg.SeqNum)
		e.sendResendRequest(s, expected, msg.SeqNum-1)
		return
	}

	fixSess.Seq.Advance(msg.SeqNum)

	switch msg.MsgType {
	case "A":
		e.handleFixLogon(s, fixSess, msg)
	case "1":
		testReqID, _ := msg.GetString(112)
		e.sendHeartbeatReply(s, testReqID)
	case "5":
		e.logger.Info("peer logged out", "session", s.cfg.ID)
		_ = fixSess.Transition(fsm.FixLogoutSent)
		e.disconnect(s, "peer logout")
	case "2":
		e.logger.Warn("resend request received, resend-from-journal not implemented", "session", s.cfg.ID)
	}

	if fixSess.State() == fsm.FixResending && msg.MsgType != "2" && msg.MsgType != "4" {
		if err := fixSess.OnResendComplete(); err != nil {
			e.logger.Warn("resend-complete transition failed", "session", s.cfg.ID, "error", err)
		}
	}

	e.dispatch(s, msg.MsgType, raw, len(raw))
}

func (e *Engine) handleSequenceReset(s *session, fixSess *fsm.FixSession, msg *fix.IncomingMessage) {
	newSeqNo, ok := msg.GetInt(36)
	if !ok {
		e.logger.Error("SequenceReset missing NewSeqNo", "session", s.cfg.ID)
		return
	}
	gapFill, _ := msg.GetBool(123)
	if gapFill {
		if newSeqNo > fixSess.Seq.Expected() {
			fixSess.Seq.SetExpected(newSeqNo)
		}
		if fixSess.State() == fsm.FixResending {
			if err := fixSess.OnResendComplete(); err != nil {
				e.logger.Warn("resend-complete transition failed", "session", s.cfg.ID, "error", err)
			}
		}
		return
	}
	fixSess.Seq.SetExpected(newSeqNo)
}

func (e *Engine) handleFixLogon(s *session, fixSess *fsm.FixSession, msg *fix.IncomingMessage) {
	sender, _ := msg.GetString(49)
	target, _ := msg.GetString(56)
	if sender != fixSess.TargetCompID || target != fixSess.SenderCompID {
		e.logger.Error("logon CompID mismatch", "session", s.cfg.ID, "sender", sender, "target", target)
		e.observer.ObserveReject(s.cfg.ID, "CompID mismatch")
		e.sendFixReject(s, msg.SeqNum, "A", 9, "CompID(s) not matching session profile")
		e.disconnect(s, "CompID mismatch")
		return
	}
	resetFlag, _ := msg.GetBool(141)
	if err := fixSess.OnLogon(resetFlag); err != nil {
		e.logger.Error("logon transition failed", "session", s.cfg.ID, "error", err)
	}
}

func (e *Engine) handleOuchData(s *session, data []byte) int {
	packetType, body, consumed, needMore, err := ouch.DecodeFrame(data)
	if err != nil {
		e.logger.Error("ouch malformed frame, dropping session", "session", s.cfg.ID, "error", err)
		e.disconnect(s, "malformed frame")
		return len(data)
	}
	if needMore {
		return 0
	}
	if packetType == ouch.SoupLoginAccepted && s.managed.Ouch.State() == fsm.OuchLoginSent {
		var seq int64
		if len(body) >= 30 { // 10-byte session, then 20-byte sequence number
			seq, _ = strconv.ParseInt(strings.TrimSpace(string(body[10:30])), 10, 64)
		}
		if err := s.managed.Ouch.OnLogin(seq); err != nil {
			e.logger.Error("login transition failed", "session", s.cfg.ID, "error", err)
		}
	}
	e.dispatch(s, string(packetType), body, consumed)
	return consumed
}

func (e *Engine) dispatch(s *session, msgType string, body []byte, consumed int) {
	e.observer.ObserveMessageIn(s.cfg.ID, msgType, consumed)
	s.metrics.MessagesIn.Add(1)
	s.metrics.BytesIn.Add(uint64(consumed))
	mt := byte(0)
	if len(msgType) > 0 {
		mt = msgType[0]
	}
	if _, err := s.store.Append(journal.DirectionInbound, mt, body, time.Now().UnixNano()); err != nil {
		e.logger.Error("journal append failed", "session", s.cfg.ID, "error", err)
	}
	if e.onMessage != nil {
		e.onMessage(s.managed, msgType, body)
	}
}

// sendResendRequest synchronously writes a ResendRequest (MsgType 2)
// covering the gap [from, to] detected between the expected and received
// MsgSeqNum.
func (e *Engine) sendResendRequest(s *session, from, to int64) {
	enc := fix.NewEncoder(nil, s.cfg.FixVersion)
	enc.SetField(35, "2")
	enc.SetField(49, s.cfg.SenderCompID)
	enc.SetField(56, s.cfg.TargetCompID)
	enc.SetFieldInt(34, s.managed.NextOutgoingSeq())
	e.stampTime(enc)
	enc.SetFieldInt(7, from)
	enc.SetFieldInt(16, to)
	e.writeDirect(s, enc.Finish())
}

// sendFixReject synchronously writes a Reject (MsgType 3) referencing the
// offending message's sequence number and type.
func (e *Engine) sendFixReject(s *session, refSeqNum int64, refMsgType string, reason int, text string) {
	enc := fix.NewEncoder(nil, s.cfg.FixVersion)
	enc.SetField(35, "3")
	enc.SetField(49, s.cfg.SenderCompID)
	enc.SetField(56, s.cfg.TargetCompID)
	enc.SetFieldInt(34, s.managed.NextOutgoingSeq())
	e.stampTime(enc)
	enc.SetFieldInt(45, refSeqNum)
	enc.SetField(372, refMsgType)
	enc.SetFieldInt(373, int64(reason))
	enc.SetField(58, text)
	e.writeDirect(s, enc.Finish())
}

// sendFixLogout synchronously writes a Logout (MsgType 5) with an
// explanatory Text(58).
func (e *Engine) sendFixLogout(s *session, text string) {
	enc := fix.NewEncoder(nil, s.cfg.FixVersion)
	enc.SetField(35, "5")
	enc.SetField(49, s.cfg.SenderCompID)
	enc.SetField(56, s.cfg.TargetCompID)
	enc.SetFieldInt(34, s.managed.NextOutgoingSeq())
	e.stampTime(enc)
	if text != "" {
		enc.SetField(58, text)
	}
	e.writeDirect(s, enc.Finish())
}

// sendHeartbeatReply writes a Heartbeat, echoing testReqID (112) when
// replying to a TestRequest, or omitting it for the periodic heartbeat
// the scheduler would otherwise send. Sent synchronously like Logon,
// rather than through the ring, since it must go out immediately in
// response to a liveness probe.
func (e *Engine) sendHeartbeatReply(s *session, testReqID string) {
	enc := fix.NewEncoder(nil, s.cfg.FixVersion)
	enc.SetField(35, "0")
	enc.SetField(49, s.cfg.SenderCompID)
	enc.SetField(56, s.cfg.TargetCompID)
	enc.SetFieldInt(34, s.managed.NextOutgoingSeq())
	e.stampTime(enc)
	if testReqID != "" {
		enc.SetField(112, testReqID)
	}
	e.writeDirect(s, enc.Finish())
}

func (e *Engine) stampTime(enc *fix.Encoder) {
	var tsBuf [32]byte
	var fts fix.FastTimestamp
	enc.SetField(52, string(fts.Format(tsBuf[:0], time.Now())))
}

func (e *Engine) writeDirect(s *session, frame []byte) {
	if s.conn == nil {
		return
	}
	if _, err := s.conn.Write(frame); err != nil {
		e.logger.Error("direct write failed", "session", s.cfg.ID, "error", err)
	}
}

// disconnect tears down a session's live connection and schedules a
// reconnect attempt if the session is still enabled. It is the single
// path every fatal inbound condition (sequence too low, malformed
// frame, peer logout, inbound silence) and end-of-day cycling funnel
// through, so reconnect policy lives in exactly one place.
func (e *Engine) disconnect(s *session, reason string) {
	e.logger.Warn("disconnecting session", "session", s.cfg.ID, "reason", reason)
	e.scheduler.Unreg("silence:" + s.cfg.ID)
	e.loop.Unregister(s.cfg.ID)
	if s.writer != nil {
		s.writer.Stop()
		s.writer = nil
	}
	if s.conn != nil {
		e.controller.Disconnect(s.conn, s.managed)
		s.conn = nil
	}
	if e.onState != nil {
		e.onState(s.managed, "logged_on", "disconnected")
	}
	e.observer.ObserveReconnect(s.cfg.ID)
	if s.managed.Enabled() {
		e.scheduleReconnect(s)
	}
}

// scheduleReconnect registers a one-shot scheduler task that retries
// bring-up after the session's current backoff, doubling the backoff on
// every further failure up to DefaultReconnectMaxBackoff and resetting
// it to DefaultReconnectInitialBackoff once bringUp succeeds.
func (e *Engine) scheduleReconnect(s *session) {
	if !s.managed.Enabled() {
		return
	}
	delay := s.reconnectBackoff
	if delay <= 0 {
		delay = constants.DefaultReconnectInitialBackoff
	}
	e.scheduler.Reg("reconnect:"+s.cfg.ID, func() time.Duration {
		if e.ctx == nil || e.ctx.Err() != nil {
			return 0
		}
		if err := e.bringUp(e.ctx, s); err != nil {
			e.logger.Warn("reconnect attempt failed", "session", s.cfg.ID, "error", err)
			s.reconnectBackoff *= 2
			if s.reconnectBackoff > constants.DefaultReconnectMaxBackoff {
				s.reconnectBackoff = constants.DefaultReconnectMaxBackoff
			}
			return s.reconnectBackoff
		}
		return 0
	}, delay)
}

// registerTimers registers, per FIX session (OUCH sessions get neither
// timer), the inbound-silence/
// TestRequest/disconnect liveness timer and, when configured, the
// end-of-day session-cycling timer. Both ride the same Scheduler used for
// heartbeats, rather than a dedicated goroutine per timer.
func (e *Engine) registerTimers(sessions []*session) {
	for _, s := range sessions {
		s := s
		if s.managed.Protocol != fsm.ProtocolFix {
			continue
		}
		interval := constants.DefaultHeartbeatInterval
		if s.cfg.HeartbeatIntervalSeconds > 0 {
			interval = time.Duration(s.cfg.HeartbeatIntervalSeconds) * time.Second
		}
		check := interval / 4
		if check < 100*time.Millisecond {
			check = 100 * time.Millisecond
		}
		e.scheduler.Reg("silence:"+s.cfg.ID, func() time.Duration {
			if s.managed.State() != fsm.LoggedOn {
				return check
			}
			silentFor := time.Since(time.Unix(0, s.lastInboundAt.Load()))
			testReqAt := s.testRequestSentAt.Load()
			switch {
			case testReqAt != 0 && silentFor > interval+constants.DefaultTestRequestGrace:
				e.logger.Error("no response to TestRequest, disconnecting", "session", s.cfg.ID)
				e.disconnect(s, "test request timeout")
				return 0
			case testReqAt == 0 && silentFor > interval+constants.DefaultTestRequestGrace:
				s.testRequestSentAt.Store(time.Now().UnixNano())
				e.sendTestRequest(s)
			}
			return check
		}, check)

		if s.cfg.EndOfDayUTC != "" {
			e.registerEod(s)
		}
	}
}

func (e *Engine) sendTestRequest(s *session) {
	enc := fix.NewEncoder(nil, s.cfg.FixVersion)
	enc.SetField(35, "1")
	enc.SetField(49, s.cfg.SenderCompID)
	enc.SetField(56, s.cfg.TargetCompID)
	enc.SetFieldInt(34, s.managed.NextOutgoingSeq())
	e.stampTime(enc)
	enc.SetField(112, fmt.Sprintf("TEST-%d", time.Now().UnixNano()))
	e.writeDirect(s, enc.Finish())
}

// registerEod schedules s's daily Logout/reset/disconnect/reconnect cycle
// at its configured wall-clock UTC time, re-registering itself 24 hours
// out after every firing so it recurs indefinitely.
func (e *Engine) registerEod(s *session) {
	at, err := time.Parse("15:04:05", s.cfg.EndOfDayUTC)
	if err != nil {
		e.logger.Error("invalid end-of-day-utc, not scheduling", "session", s.cfg.ID, "value", s.cfg.EndOfDayUTC, "error", err)
		return
	}
	delay := untilNextUTC(at)
	e.scheduler.Reg("eod:"+s.cfg.ID, func() time.Duration {
		if s.managed.State() == fsm.LoggedOn {
			e.logger.Info("end-of-day cycle", "session", s.cfg.ID)
			e.sendFixLogout(s, "end of day")
			s.managed.Fix.Seq.Reset()
			e.disconnect(s, "end of day")
			e.observer.ObserveEod(s.cfg.ID)
		}
		return untilNextUTC(at)
	}, delay)
}

// untilNextUTC returns the delay until the next occurrence of at's
// hour/minute/second in UTC, today if it hasn't passed yet or tomorrow
// otherwise.
func untilNextUTC(at time.Time) time.Duration {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), at.Second(), 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func (e *Engine) registerHeartbeats(sessions []*session) {
	for _, s := range sessions {
		s := s
		interval := constants.DefaultHeartbeatInterval
		if s.cfg.HeartbeatIntervalSeconds > 0 {
			interval = time.Duration(s.cfg.HeartbeatIntervalSeconds) * time.Second
		}
		e.scheduler.Reg("heartbeat:"+s.cfg.ID, func() time.Duration {
			if s.managed.State() != fsm.LoggedOn {
				return interval
			}
			frame, seqOffset := e.buildHeartbeat(s)
			if err := s.enqueue("heartbeat", frame, seqOffset); err != nil {
				e.logger.Warn("heartbeat enqueue failed", "session", s.cfg.ID, "error", err)
			}
			return interval
		}, interval)
	}
}

// buildHeartbeat returns the encoded frame and, for FIX, the offset of its
// reserved MsgSeqNum placeholder (or -1) so the caller can thread it
// through to enqueue for deferred assignment at writer commit time.
func (e *Engine) buildHeartbeat(s *session) ([]byte, int) {
	switch s.managed.Protocol {
	case fsm.ProtocolFix:
		enc := fix.NewEncoder(nil, s.cfg.FixVersion)
		enc.SetField(35, "0")
		enc.SetField(49, s.cfg.SenderCompID)
		enc.SetField(56, s.cfg.TargetCompID)
		enc.SetSeqPlaceholder(34)
		var tsBuf [32]byte
		var fts fix.FastTimestamp
		enc.SetField(52, string(fts.Format(tsBuf[:0], time.Now())))
		frame := enc.Finish()
		return frame, enc.SeqValueOffset()
	default:
		return ouch.EncodeFrame(nil, ouch.SoupClientHeartbeat, nil), -1
	}
}

// Stop transitions the engine Stopped, closes every session's connection,
// and stops the writer and scheduler threads. Safe to call more than once.
func (e *Engine) Stop() {
	if !e.lifecycle.transition(Stopped, Active, Standby, Initialized) {
		return
	}
	if e.ctx != nil { // the scheduler only runs once Start has launched it
		e.scheduler.Stop()
	}

	e.mu.Lock()
	sessions := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	for _, s := range sessions {
		if s.writer != nil {
			s.writer.Stop()
		}
		if s.conn != nil {
			e.controller.Close(s.conn, s.managed)
		}
		if err := s.store.Close(); err != nil {
			e.logger.Warn("journal close failed", "session", s.cfg.ID, "error", err)
		}
		if e.onState != nil {
			e.onState(s.managed, "logged_on", "stopped")
		}
	}
}
