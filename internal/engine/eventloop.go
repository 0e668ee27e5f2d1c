package engine

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/fathomtrade/xsession/internal/interfaces"
)

// OnData is called with however many bytes are currently buffered for a
// session; it must return how many of those bytes it fully consumed (0 if
// it needs more to make progress, matching the codec's NeedMore
// contract). The event loop retains the unconsumed remainder and
// prepends the next read to it.
type OnData func(data []byte) (consumed int)

type connSession struct {
	id      string
	conn    net.Conn
	fd      int
	onData  OnData
	pending []byte
}

// EventLoop owns exactly one Poller and is driven from exactly one
// goroutine (Run's caller): all socket reads and all codec/FSM
// dispatch for every registered session happen there, per the engine's
// one-event-loop-thread concurrency rule.
type EventLoop struct {
	poller Poller
	logger interfaces.Logger

	mu       sync.Mutex
	sessions map[string]*connSession

	readBuf []byte
}

// New constructs an EventLoop with the platform's default Poller
// (epoll on Linux, a portable stub elsewhere).
func New(logger interfaces.Logger) (*EventLoop, error) {
	poller, err := NewPoller()
	if err != nil {
		return nil, err
	}
	return &EventLoop{
		poller:   poller,
		logger:   logger,
		sessions: make(map[string]*connSession),
		readBuf:  make([]byte, 64*1024),
	}, nil
}

// fdFromConn extracts the raw file descriptor behind a net.Conn so it can
// be registered with the Poller. Only *net.TCPConn (and types wrapping a
// syscall.Conn) are supported; a conn that cannot yield a descriptor is a
// programming error at registration time, not a runtime condition.
func fdFromConn(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("engine: connection type %T does not expose a file descriptor", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("engine: SyscallConn: %w", err)
	}
	var fd int
	var ctrlErr error
	err = raw.Control(func(f uintptr) { fd = int(f) })
	if err != nil {
		return 0, err
	}
	return fd, ctrlErr
}

// Register adds a session's connection to the event loop. onData is
// invoked on this loop's goroutine whenever new bytes arrive.
func (l *EventLoop) Register(id string, conn net.Conn, onData OnData) error {
	fd, err := fdFromConn(conn)
	if err != nil {
		return err
	}
	if err := l.poller.Add(fd, id); err != nil {
		return err
	}
	l.mu.Lock()
	l.sessions[id] = &connSession{id: id, conn: conn, fd: fd, onData: onData}
	l.mu.Unlock()
	return nil
}

// Unregister removes a session from the event loop.
func (l *EventLoop) Unregister(id string) error {
	l.mu.Lock()
	cs, ok := l.sessions[id]
	delete(l.sessions, id)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	return l.poller.Remove(cs.fd)
}

// Run services readiness events until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return l.poller.Close()
		default:
		}
		events, err := l.poller.Wait(100)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if ev.Readable {
				l.handleReadable(ev.SessionID)
			}
		}
	}
}

func (l *EventLoop) handleReadable(sessionID string) {
	l.mu.Lock()
	cs, ok := l.sessions[sessionID]
	l.mu.Unlock()
	if !ok {
		return
	}

	n, err := cs.conn.Read(l.readBuf)
	if err != nil {
		l.logger.Warn("read failed, unregistering session", "session", sessionID, "error", err)
		l.Unregister(sessionID)
		return
	}
	if n == 0 {
		return
	}
	cs.pending = append(cs.pending, l.readBuf[:n]...)

	for len(cs.pending) > 0 {
		consumed := cs.onData(cs.pending)
		if consumed <= 0 {
			break
		}
		cs.pending = cs.pending[consumed:]
	}
}
