package miniloop

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// DefaultMicrotaskBudget is the default fairness guard for a single microtask
// drain: after this many callbacks the drain yields, leaving the remainder
// queued for the next barrier. A budget of 0 disables the guard.
const DefaultMicrotaskBudget = 4096

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	clock           Clock
	logger          *logiface.Logger[logiface.Event]
	reporter        ErrorReporter
	microtaskBudget int
	metricsEnabled  bool
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithClock sets the time source used for timer eligibility and idle waits.
// Defaults to [SystemClock]. Pass a [VirtualClock] for deterministic runs.
func WithClock(clock Clock) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if clock == nil {
			return fmt.Errorf("miniloop: WithClock requires a non-nil clock")
		}
		opts.clock = clock
		return nil
	}}
}

// WithLogger attaches a structured logger to the loop. The loop logs phase
// traces at debug level and callback failures at error level. A nil logger
// disables logging (the default).
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorReporter sets the collaborator that receives every callback
// failure. Defaults to a reporter that logs through the configured logger.
func WithErrorReporter(reporter ErrorReporter) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if reporter == nil {
			return fmt.Errorf("miniloop: WithErrorReporter requires a non-nil reporter")
		}
		opts.reporter = reporter
		return nil
	}}
}

// WithMicrotaskBudget sets the fairness guard for a single microtask drain.
// When the budget is exhausted the remaining microtasks stay queued and run
// at the next drain barrier, so a microtask that keeps scheduling new
// microtasks cannot starve the timer and check queues forever.
// A budget of 0 means unbounded. Negative values are rejected.
func WithMicrotaskBudget(budget int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if budget < 0 {
			return fmt.Errorf("miniloop: microtask budget must be >= 0, got %d", budget)
		}
		opts.microtaskBudget = budget
		return nil
	}}
}

// WithMetrics enables runtime counters on the Loop, accessible via
// [Loop.Metrics]. Failed-callback counting is always on regardless.
func WithMetrics(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		clock:           SystemClock(),
		microtaskBudget: DefaultMicrotaskBudget,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
