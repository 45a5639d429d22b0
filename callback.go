package miniloop

import (
	"time"
)

// QueueKind identifies which of the loop's queues a callback belongs to.
type QueueKind uint8

const (
	// KindMicrotask callbacks run before any timer or check callback in the
	// same loop turn (models process.nextTick).
	KindMicrotask QueueKind = iota
	// KindTimer callbacks become eligible once their delay has elapsed
	// (models setTimeout).
	KindTimer
	// KindCheck callbacks run after the current timer phase completes
	// (models setImmediate).
	KindCheck
)

// String returns a human-readable representation of the queue kind.
func (k QueueKind) String() string {
	switch k {
	case KindMicrotask:
		return "microtask"
	case KindTimer:
		return "timer"
	case KindCheck:
		return "check"
	default:
		return "unknown"
	}
}

// TimerID is a cancellation token returned by [Loop.ScheduleTimer].
// The zero value is never a valid token.
type TimerID uint64

// callback is a single scheduled unit of work plus its scheduling metadata.
//
// A callback belongs to exactly one queue at a time and executes at most
// once. Rescheduling (e.g. an interval tick) always creates a new callback
// with a fresh sequence number.
type callback struct {
	fn          func()
	scheduledAt time.Time
	delay       time.Duration // timers only
	seq         uint64
	id          TimerID // timers only; 0 otherwise
	kind        QueueKind
	canceled    bool // timers only; guarded by the loop mutex
}

// due returns the earliest time at which the callback may execute.
// Meaningful for timer callbacks only.
func (c *callback) due() time.Time {
	return c.scheduledAt.Add(c.delay)
}

// report captures the callback's metadata for error reporting.
func (c *callback) report() CallbackReport {
	return CallbackReport{
		Kind:        c.kind,
		Sequence:    c.seq,
		ScheduledAt: c.scheduledAt,
		Delay:       c.delay,
	}
}
