//go:build linux

package engine

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// epollPoller is the production Poller, backed directly by epoll. This is
// the same golang.org/x/sys/unix dependency used elsewhere in this
// codebase for raw syscalls, repurposed from device descriptor mmap'ing
// to socket readiness notification.
type epollPoller struct {
	epfd int

	mu      sync.Mutex
	byFd    map[int]string
}

// NewPoller constructs the production epoll-backed Poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("engine: epoll_create1: %w", err)
	}
	return &epollPoller{epfd: epfd, byFd: make(map[int]string)}, nil
}

func (p *epollPoller) Add(fd int, sessionID string) error {
	p.mu.Lock()
	p.byFd[fd] = sessionID
	p.mu.Unlock()

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("engine: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	p.mu.Lock()
	delete(p.byFd, fd)
	p.mu.Unlock()

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("engine: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Wait(timeoutMillis int) ([]Event, error) {
	var raw [64]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, raw[:], timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("engine: epoll_wait: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		sessionID, ok := p.byFd[fd]
		if !ok {
			continue
		}
		ev := Event{SessionID: sessionID}
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ev.Readable = true
		}
		events = append(events, ev)
	}
	return events, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
