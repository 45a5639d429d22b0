package miniloop

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
)

// Loop is a deterministic, single-threaded event loop driver owning four
// scheduling surfaces: the synchronous call stack, a microtask queue, a
// timer queue, and a check queue.
//
// All callbacks execute on the goroutine that called [Loop.Run]. The
// scheduling methods are safe to call from any goroutine, but ordering is
// only total and deterministic for callbacks scheduled from the loop
// goroutine itself (the synchronous program and other callbacks).
//
// A Loop runs at most once; after [Loop.Run] returns it is terminated and
// cannot be reused. Create one Loop per run for isolation.
type Loop struct {
	// Prevent copying
	_ [0]func()

	state    *loopState
	clock    Clock
	logger   *logiface.Logger[logiface.Event]
	reporter ErrorReporter

	// Queues, sequence counter, and timer tokens; guarded by mu so that
	// scheduling is safe from callbacks and from other goroutines alike.
	mu          sync.Mutex
	micro       *fifo
	checks      *fifo
	timers      *timerQueue
	seq         uint64
	nextTimerID TimerID

	microtaskBudget int
	metrics         metrics
}

// New creates a new event loop.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		state:           newLoopState(),
		clock:           cfg.clock,
		logger:          cfg.logger,
		reporter:        cfg.reporter,
		micro:           newFIFO(),
		checks:          newFIFO(),
		timers:          newTimerQueue(),
		microtaskBudget: cfg.microtaskBudget,
	}
	l.metrics.enabled = cfg.metricsEnabled

	if l.reporter == nil {
		l.reporter = loggerReporter{logger: cfg.logger}
	}

	return l, nil
}

// Run executes the top-level synchronous program, then drives the loop until
// every queue is empty and no timers are pending, and blocks throughout.
//
// An error (or panic) from program is fatal: queued work is abandoned and the
// error propagates as a [SyncError] (panics propagate as panics). Failures
// inside queued callbacks are reported and counted but never fatal; see
// [Loop.Failed].
//
// Run returns ctx.Err() if ctx is cancelled between callbacks. The program
// may be nil, in which case Run only drives work scheduled beforehand.
func (l *Loop) Run(ctx context.Context, program func() error) error {
	if !l.state.TryTransition(StateIdle, StateRunningSync) {
		if l.state.IsTerminal() {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	// Terminal state is guaranteed on every exit path, including a
	// propagating panic from the synchronous program.
	defer l.state.Store(StateTerminated)

	l.logSafe(func() {
		l.logger.Debug().
			Int("microtaskBudget", l.microtaskBudget).
			Log("miniloop run starting")
	})

	if err := l.RunSync(program); err != nil {
		return &SyncError{Cause: err}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.state.Store(StateDrainingMicrotasks)
		l.drainMicrotasks(ctx)

		l.state.Store(StateRunningTimers)
		l.runDueTimers(ctx)

		l.state.Store(StateDrainingChecks)
		l.drainChecks(ctx)
		l.drainMicrotasks(ctx)

		l.metrics.recordIteration()

		done, wait := l.nextWait()
		if done {
			l.logSafe(func() {
				l.logger.Debug().
					Uint64("failed", l.metrics.failed.Load()).
					Log("miniloop run terminating")
			})
			return nil
		}
		if wait > 0 {
			l.state.Store(StateIdle)
			l.mu.Lock()
			pending := l.timers.pending()
			l.mu.Unlock()
			l.logSafe(func() {
				l.logger.Debug().
					Dur("wait", wait).
					Int("pendingTimers", pending).
					Log("miniloop idle until next timer")
			})
			l.clock.Sleep(ctx, wait)
		}
	}
}

// RunSync executes fn immediately on the caller's stack. Errors and panics
// propagate synchronously to the caller; nothing is queued.
func (l *Loop) RunSync(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// nextWait decides what follows a completed iteration: done reports that all
// queues are empty with no pending timers; otherwise wait is the duration
// until the earliest timer becomes eligible (0 when work is ready now).
func (l *Loop) nextWait() (done bool, wait time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.micro.length() > 0 || l.checks.length() > 0 {
		return false, 0
	}
	due, ok := l.timers.nextDue()
	if !ok {
		return true, 0
	}
	if wait = due.Sub(l.clock.Now()); wait < 0 {
		wait = 0
	}
	return false, wait
}

// drainMicrotasks executes queued microtasks until the queue is empty,
// bounded by the configured fairness budget. Microtasks scheduled by running
// microtasks are included in the same drain. The drain counts as starved only
// when work is still queued at the budget boundary; cancellation is observed
// between callbacks.
func (l *Loop) drainMicrotasks(ctx context.Context) {
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.mu.Lock()
		if l.microtaskBudget > 0 && n >= l.microtaskBudget && l.micro.length() > 0 {
			l.mu.Unlock()
			l.metrics.recordStarvedDrain()
			l.logSafe(func() {
				l.logger.Warning().
					Int("budget", l.microtaskBudget).
					Log("microtask drain exhausted fairness budget")
			})
			return
		}
		cb := l.micro.pop()
		l.mu.Unlock()
		if cb == nil {
			return
		}
		l.execute(cb)
	}
}

// runDueTimers executes every timer eligible at phase entry, in
// (eligibility time, sequence) order, re-draining microtasks after each one
// so that microtasks always run before any further timer callback.
func (l *Loop) runDueTimers(ctx context.Context) {
	l.mu.Lock()
	maxSeq := l.seq
	l.mu.Unlock()
	now := l.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.mu.Lock()
		cb := l.timers.popDue(now, maxSeq)
		l.mu.Unlock()
		if cb == nil {
			return
		}
		l.execute(cb)
		l.drainMicrotasks(ctx)
	}
}

// drainChecks executes the check callbacks present at phase entry, FIFO.
// Checks scheduled by running checks wait for the next iteration.
// Cancellation is observed between callbacks.
func (l *Loop) drainChecks(ctx context.Context) {
	l.mu.Lock()
	n := l.checks.length()
	l.mu.Unlock()

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.mu.Lock()
		cb := l.checks.pop()
		l.mu.Unlock()
		if cb == nil {
			return
		}
		l.execute(cb)
	}
}

// execute runs a single callback with panic recovery. A panicking callback
// is reported and counted; it never halts the driver.
func (l *Loop) execute(cb *callback) {
	defer func() {
		l.metrics.recordExecuted(cb.kind)
		if r := recover(); r != nil {
			l.metrics.failed.Add(1)
			l.reportSafe(cb.report(), &CallbackError{
				Cause:    panicCause(r),
				Sequence: cb.seq,
				Kind:     cb.kind,
			})
		}
	}()

	cb.fn()
}

// reportSafe hands a callback failure to the reporter, containing any panic
// the reporter raises. A misbehaving reporter must not abandon queued work;
// the failure falls back to the standard logger instead.
func (l *Loop) reportSafe(report CallbackReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("miniloop: error reporter panicked: %v (reporting: %v)", r, err)
		}
	}()

	l.reporter.ReportCallbackError(report, err)
}

// logSafe runs a structured logging call, containing any panic from a
// misconfigured or panicking logger backend. The panic is noted on the
// standard logger; driver logging never takes down a run.
func (l *Loop) logSafe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("miniloop: logger panicked: %v", r)
		}
	}()

	fn()
}

// ScheduleMicrotask appends fn to the microtask queue. Microtasks cannot be
// cancelled; once scheduled they are guaranteed to run exactly once before
// the loop terminates. A nil fn is ignored.
func (l *Loop) ScheduleMicrotask(fn func()) error {
	if fn == nil {
		return nil
	}
	if l.state.IsTerminal() {
		return ErrLoopTerminated
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.micro.push(&callback{
		fn:          fn,
		kind:        KindMicrotask,
		seq:         l.seq,
		scheduledAt: l.clock.Now(),
	})
	return nil
}

// ScheduleTimer appends fn to the timer queue, eligible once delay has
// elapsed. A negative delay is normalized to 0. The returned TimerID may be
// passed to [Loop.Cancel]. A nil fn is ignored and returns a zero TimerID.
func (l *Loop) ScheduleTimer(fn func(), delay time.Duration) (TimerID, error) {
	if fn == nil {
		return 0, nil
	}
	if l.state.IsTerminal() {
		return 0, ErrLoopTerminated
	}
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.nextTimerID++
	id := l.nextTimerID
	l.timers.push(&callback{
		fn:          fn,
		kind:        KindTimer,
		seq:         l.seq,
		scheduledAt: l.clock.Now(),
		delay:       delay,
		id:          id,
	})
	return id, nil
}

// ScheduleCheck appends fn to the check queue. Check callbacks cannot be
// cancelled through this API; see [Node.SetImmediate] for a clearable
// variant. A nil fn is ignored.
func (l *Loop) ScheduleCheck(fn func()) error {
	if fn == nil {
		return nil
	}
	if l.state.IsTerminal() {
		return ErrLoopTerminated
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.checks.push(&callback{
		fn:          fn,
		kind:        KindCheck,
		seq:         l.seq,
		scheduledAt: l.clock.Now(),
	})
	return nil
}

// Cancel removes the timer identified by id from the timer queue if it has
// not yet executed. It reports whether a pending timer was removed: false
// means the id was invalid, already executed, or already cancelled. Cancel
// never errors.
func (l *Loop) Cancel(id TimerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timers.cancel(id)
}

// State returns the current driver state. Safe from any goroutine.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// Clock returns the loop's time source.
func (l *Loop) Clock() Clock {
	return l.clock
}
