// Package miniloop provides a deterministic, single-threaded event loop
// scheduler with distinct callback queues, modelling the relative scheduling
// order of process.nextTick, setTimeout, and setImmediate.
//
// # Architecture
//
// The scheduler is built around a [Loop] core that owns four scheduling
// surfaces: the synchronous call stack (the program passed to [Loop.Run]),
// a FIFO microtask queue ([Loop.ScheduleMicrotask]), a timer queue ordered by
// eligibility time ([Loop.ScheduleTimer]), and a FIFO check queue
// ([Loop.ScheduleCheck]). A [Node] adapter provides the familiar names:
// [Node.NextTick], [Node.SetTimeout], [Node.SetInterval], and
// [Node.SetImmediate].
//
// # Execution Model
//
// [Loop.Run] executes the synchronous program to completion, then iterates:
//  1. Drain the microtask queue (bounded by a configurable fairness budget).
//  2. Execute eligible timer callbacks in (eligibility time, sequence) order,
//     re-draining microtasks after each one.
//  3. Drain check callbacks present at phase entry, FIFO, then re-drain
//     microtasks.
//  4. Terminate when every queue is empty and no timers are pending;
//     otherwise wait, via the [Clock] collaborator, for the earliest timer.
//
// The core contract: a microtask, a zero-delay timer, and a check scheduled
// in the same synchronous turn always execute in exactly that order.
//
// Ordering is total and deterministic. Every scheduled callback carries a
// sequence number that is strictly increasing across all queues, assigned at
// schedule time and never reused; ties in timer eligibility resolve by
// sequence, i.e. by insertion order.
//
// # Failure Semantics
//
// A panic inside a queued callback is recovered, converted to a
// [CallbackError], handed to the configured [ErrorReporter], and counted; the
// loop proceeds with the remaining work. Only an error (or panic) from the
// synchronous program itself is fatal to the run.
//
// # Determinism
//
// The loop never blocks on wall-clock time directly: all waiting goes through
// the [Clock] collaborator. [NewVirtualClock] yields fully deterministic runs
// where virtual time jumps straight to the next timer deadline.
//
// # Usage
//
//	loop, err := miniloop.New(
//	    miniloop.WithClock(miniloop.NewVirtualClock(time.Unix(0, 0))),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = loop.Run(context.Background(), func() error {
//	    loop.ScheduleMicrotask(func() { fmt.Println("microtask") })
//	    loop.ScheduleTimer(func() { fmt.Println("timer") }, 0)
//	    loop.ScheduleCheck(func() { fmt.Println("check") })
//	    return nil
//	})
package miniloop
