//go:build giouring

package engine

import (
	"fmt"
	"sync"

	"github.com/pawelgaczynski/giouring"
)

// uringPoller is the optional io_uring-backed Poller, built only with
// `-tags giouring`. It submits one SQE per registered fd (IORING_OP_POLL_ADD
// with POLLIN) and reaps completions as readiness events, re-arming each fd
// after it fires — the same persistent-registration-then-re-arm shape used
// for this codebase's completion-queue driven I/O, now applied to socket
// readiness instead of block-device command completion.
type uringPoller struct {
	ring *giouring.Ring

	mu     sync.Mutex
	byData map[uint64]string
	fdByID map[string]int
	nextID uint64
}

// NewUringPoller constructs the io_uring-backed Poller. Callers opt into it
// explicitly (it is not NewPoller's default even under the giouring build
// tag) since it requires a kernel with IORING_OP_POLL_ADD support.
func NewUringPoller(entries uint32) (Poller, error) {
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, fmt.Errorf("engine: giouring.CreateRing: %w", err)
	}
	return &uringPoller{
		ring:   ring,
		byData: make(map[uint64]string),
		fdByID: make(map[string]int),
	}, nil
}

func (p *uringPoller) arm(fd int, sessionID string) error {
	sqe := p.ring.GetSQE()
	if sqe == nil {
		if _, err := p.ring.Submit(); err != nil {
			return fmt.Errorf("engine: submit to free sqe: %w", err)
		}
		sqe = p.ring.GetSQE()
		if sqe == nil {
			return fmt.Errorf("engine: no SQE available for fd=%d", fd)
		}
	}
	p.mu.Lock()
	p.nextID++
	userData := p.nextID
	p.byData[userData] = sessionID
	p.mu.Unlock()

	sqe.PrepPollAdd(uint64(fd), giouring.POLLIN)
	sqe.UserData = userData
	return nil
}

func (p *uringPoller) Add(fd int, sessionID string) error {
	p.mu.Lock()
	p.fdByID[sessionID] = fd
	p.mu.Unlock()
	if err := p.arm(fd, sessionID); err != nil {
		return err
	}
	_, err := p.ring.Submit()
	return err
}

func (p *uringPoller) Remove(fd int) error {
	p.mu.Lock()
	for id, f := range p.fdByID {
		if f == fd {
			delete(p.fdByID, id)
		}
	}
	p.mu.Unlock()
	// A previously-armed POLL_ADD for this fd simply fires once more (or
	// not at all if the fd is already closed); Wait still reports that
	// completion but does not re-arm it, since fdByID no longer maps the
	// session; io_uring has no
	// POLL_REMOVE call wired here since the common case is "fd closed",
	// which already unblocks any outstanding poll.
	return nil
}

func (p *uringPoller) Wait(timeoutMillis int) ([]Event, error) {
	if _, err := p.ring.SubmitAndWaitTimeout(1, timeoutMillis); err != nil {
		return nil, fmt.Errorf("engine: giouring submit_and_wait: %w", err)
	}

	var events []Event
	for {
		cqe, err := p.ring.PeekCQE()
		if err != nil || cqe == nil {
			break
		}
		p.mu.Lock()
		sessionID, ok := p.byData[cqe.UserData]
		delete(p.byData, cqe.UserData)
		p.mu.Unlock()
		p.ring.CQESeen(cqe)
		if !ok {
			continue
		}
		events = append(events, Event{SessionID: sessionID, Readable: cqe.Res > 0})

		p.mu.Lock()
		fd, stillRegistered := p.fdByID[sessionID]
		p.mu.Unlock()
		if stillRegistered {
			p.arm(fd, sessionID)
		}
	}
	if len(events) > 0 {
		if _, err := p.ring.Submit(); err != nil {
			return events, fmt.Errorf("engine: re-arm submit: %w", err)
		}
	}
	return events, nil
}

func (p *uringPoller) Close() error {
	p.ring.QueueExit()
	return nil
}
