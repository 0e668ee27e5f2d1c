package xsession

import "sync/atomic"

// LifecycleState is the five-state component lifecycle shared by Engine
// and the lower-level pieces it owns: a component is constructed
// Uninitialized, moves to Initialized once its configuration is applied,
// then to either Active (serving traffic) or Standby (initialized but
// held back, e.g. a hot spare), and finally to Stopped. Transitions are
// one-way except Active<->Standby.
type LifecycleState int32

const (
	Uninitialized LifecycleState = iota
	Initialized
	Active
	Standby
	Stopped
)

func (s LifecycleState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Active:
		return "active"
	case Standby:
		return "standby"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// lifecycle is an atomic-backed LifecycleState with compare-and-swap
// transitions, so concurrent callers (the owning goroutine calling Stop
// while the event loop checks IsActive) never observe a torn state.
type lifecycle struct {
	state atomic.Int32
}

func newLifecycle() *lifecycle {
	l := &lifecycle{}
	l.state.Store(int32(Uninitialized))
	return l
}

func (l *lifecycle) Get() LifecycleState {
	return LifecycleState(l.state.Load())
}

// transition attempts to move from any of `from` to `to`, retrying the CAS
// against concurrent readers until it either succeeds or observes a state
// not in `from`.
func (l *lifecycle) transition(to LifecycleState, from ...LifecycleState) bool {
	for {
		cur := LifecycleState(l.state.Load())
		ok := false
		for _, f := range from {
			if cur == f {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
		if l.state.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

func (l *lifecycle) IsActive() bool {
	return l.Get() == Active
}
