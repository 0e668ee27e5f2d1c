package engine

import (
	"container/heap"
	"sync"
	"time"

	"github.com/fathomtrade/xsession/internal/interfaces"
)

// timerTask is one registered periodic callback. Fn's return value is the
// delay before its next run, letting callbacks adjust their own cadence
// (a heartbeat timer shortens it after traffic, a reconnect backoff
// lengthens it after a failure) instead of the scheduler imposing a fixed
// period.
type timerTask struct {
	name  string
	fn    func() time.Duration
	due   time.Time
	index int // heap.Interface bookkeeping
}

type taskHeap []*timerTask

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	t := x.(*timerTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler runs heartbeat, test-request-grace, and reconnect-backoff
// timers for every session on one goroutine, ordered by next-due-time in
// a binary heap rather than one time.Timer per registration, so adding
// thousands of sessions does not mean thousands of OS timers.
type Scheduler struct {
	logger interfaces.Logger

	mu      sync.Mutex
	heap    taskHeap
	byName  map[string]*timerTask
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler constructs an idle Scheduler; call Run to start servicing
// registrations.
func NewScheduler(logger interfaces.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		byName: make(map[string]*timerTask),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Reg registers fn to run once after initial (or immediately if initial is
// omitted), and thereafter after whatever delay fn itself returns. A
// second Reg with the same name replaces the first.
func (s *Scheduler) Reg(name string, fn func() time.Duration, initial ...time.Duration) {
	delay := time.Duration(0)
	if len(initial) > 0 {
		delay = initial[0]
	}
	task := &timerTask{name: name, fn: fn, due: time.Now().Add(delay)}

	s.mu.Lock()
	if old, ok := s.byName[name]; ok {
		heap.Remove(&s.heap, old.index)
	}
	s.byName[name] = task
	heap.Push(&s.heap, task)
	s.mu.Unlock()

	s.nudge()
}

// Unreg cancels a previously registered task; it is a no-op if name is
// not currently registered.
func (s *Scheduler) Unreg(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.byName[name]
	if !ok {
		return
	}
	heap.Remove(&s.heap, task.index)
	delete(s.byName, name)
}

func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run services due tasks until Stop is called. It is meant to be launched
// with `go scheduler.Run()` once for the whole engine.
func (s *Scheduler) Run() {
	defer close(s.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var wait time.Duration
		if len(s.heap) == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.heap[0].due)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-s.stop:
			return
		case <-s.wake:
			continue
		case <-timer.C:
			s.runDue()
		}
	}
}

func (s *Scheduler) runDue() {
	now := time.Now()
	for {
		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0].due.After(now) {
			s.mu.Unlock()
			return
		}
		task := heap.Pop(&s.heap).(*timerTask)
		delete(s.byName, task.name)
		s.mu.Unlock()

		next := s.runOne(task)
		if next > 0 {
			task.due = now.Add(next)
			s.mu.Lock()
			s.byName[task.name] = task
			heap.Push(&s.heap, task)
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) runOne(task *timerTask) (next time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked", "task", task.name, "panic", r)
			next = 0
		}
	}()
	return task.fn()
}

// Stop halts Run and waits for it to return.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}
