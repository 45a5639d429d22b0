package miniloop

import (
	"sync/atomic"
)

// metrics holds the loop's runtime counters. Per-kind counters are only
// recorded when enabled; the failed counter is always recorded because the
// terminal summary depends on it.
type metrics struct {
	microtasks    atomic.Uint64
	timers        atomic.Uint64
	checks        atomic.Uint64
	failed        atomic.Uint64
	iterations    atomic.Uint64
	starvedDrains atomic.Uint64
	enabled       bool
}

func (m *metrics) recordExecuted(kind QueueKind) {
	if !m.enabled {
		return
	}
	switch kind {
	case KindMicrotask:
		m.microtasks.Add(1)
	case KindTimer:
		m.timers.Add(1)
	case KindCheck:
		m.checks.Add(1)
	}
}

func (m *metrics) recordIteration() {
	if m.enabled {
		m.iterations.Add(1)
	}
}

func (m *metrics) recordStarvedDrain() {
	if m.enabled {
		m.starvedDrains.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of the loop's counters.
type MetricsSnapshot struct {
	// Microtasks, Timers, and Checks count executed callbacks per queue,
	// including callbacks that panicked.
	Microtasks uint64
	Timers     uint64
	Checks     uint64
	// Failed counts callbacks that panicked.
	Failed uint64
	// Iterations counts completed driver iterations.
	Iterations uint64
	// StarvedDrains counts microtask drains cut short by the fairness budget.
	StarvedDrains uint64
}

// Metrics returns a snapshot of the loop's counters. Unless metrics were
// enabled via [WithMetrics], only Failed is populated.
func (l *Loop) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		Microtasks:    l.metrics.microtasks.Load(),
		Timers:        l.metrics.timers.Load(),
		Checks:        l.metrics.checks.Load(),
		Failed:        l.metrics.failed.Load(),
		Iterations:    l.metrics.iterations.Load(),
		StarvedDrains: l.metrics.starvedDrains.Load(),
	}
}

// Failed returns the number of queued callbacks that panicked during the run.
// Always tracked, independent of [WithMetrics].
func (l *Loop) Failed() uint64 {
	return l.metrics.failed.Load()
}
