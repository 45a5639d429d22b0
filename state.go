package miniloop

import (
	"sync/atomic"
)

// LoopState represents the current phase of the event loop driver.
//
// State Machine:
//
//	StateIdle (0) → StateRunningSync          [Run(), once]
//	StateRunningSync → StateDrainingMicrotasks [sync program returned]
//	StateDrainingMicrotasks → StateRunningTimers
//	StateRunningTimers → StateDrainingChecks
//	StateDrainingChecks → StateIdle            [more work pending]
//	StateDrainingChecks → StateTerminated      [all queues empty, no timers]
//	StateTerminated → (terminal)
//
// Phase states (everything except Idle and Terminated) are only ever written
// by the loop goroutine; the atomic storage exists so that State() may be
// read from any goroutine.
type LoopState uint64

const (
	// StateIdle indicates the loop has been created but the driver is not
	// mid-phase; re-entered between iterations while waiting on timers.
	StateIdle LoopState = iota
	// StateRunningSync indicates the top-level synchronous program is on the
	// call stack.
	StateRunningSync
	// StateDrainingMicrotasks indicates the microtask queue is being drained.
	StateDrainingMicrotasks
	// StateRunningTimers indicates eligible timer callbacks are executing.
	StateRunningTimers
	// StateDrainingChecks indicates the check queue is being drained.
	StateDrainingChecks
	// StateTerminated indicates the run has completed; terminal.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunningSync:
		return "RunningSync"
	case StateDrainingMicrotasks:
		return "DrainingMicrotasks"
	case StateRunningTimers:
		return "RunningTimers"
	case StateDrainingChecks:
		return "DrainingChecks"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// loopState is a lock-free state cell for the driver phase.
type loopState struct {
	v atomic.Uint64
}

func newLoopState() *loopState {
	s := &loopState{}
	s.v.Store(uint64(StateIdle))
	return s
}

// Load returns the current state atomically.
func (s *loopState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state.
func (s *loopState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *loopState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsTerminal returns true if the current state is terminal.
func (s *loopState) IsTerminal() bool {
	return s.Load() == StateTerminated
}
