package miniloop_test

import (
	"context"
	"fmt"
	"time"

	miniloop "github.com/joeycumines/go-miniloop"
)

// The core ordering contract: a microtask, a zero-delay timer, and a check
// scheduled in the same synchronous turn execute in exactly that order.
func ExampleLoop_Run() {
	loop, err := miniloop.New(
		miniloop.WithClock(miniloop.NewVirtualClock(time.Unix(0, 0))),
	)
	if err != nil {
		panic(err)
	}

	err = loop.Run(context.Background(), func() error {
		loop.ScheduleCheck(func() { fmt.Println("check") })
		loop.ScheduleTimer(func() { fmt.Println("timer") }, 0)
		loop.ScheduleMicrotask(func() { fmt.Println("microtask") })
		fmt.Println("sync")
		return nil
	})
	if err != nil {
		panic(err)
	}

	// Output:
	// sync
	// microtask
	// timer
	// check
}

// Node-flavored names map onto the same queues.
func ExampleNode() {
	loop, err := miniloop.New(
		miniloop.WithClock(miniloop.NewVirtualClock(time.Unix(0, 0))),
	)
	if err != nil {
		panic(err)
	}
	node, err := miniloop.NewNode(loop)
	if err != nil {
		panic(err)
	}

	err = loop.Run(context.Background(), func() error {
		node.SetImmediate(func() { fmt.Println("setImmediate") })
		node.SetTimeout(func() { fmt.Println("setTimeout") }, 0)
		node.NextTick(func() { fmt.Println("nextTick") })
		return nil
	})
	if err != nil {
		panic(err)
	}

	// Output:
	// nextTick
	// setTimeout
	// setImmediate
}

// Timer eligibility is driven by the clock collaborator: with a virtual
// clock the run is deterministic regardless of real delays.
func ExampleVirtualClock() {
	loop, err := miniloop.New(
		miniloop.WithClock(miniloop.NewVirtualClock(time.Unix(0, 0))),
	)
	if err != nil {
		panic(err)
	}

	err = loop.Run(context.Background(), func() error {
		loop.ScheduleTimer(func() { fmt.Println("one second") }, time.Second)
		loop.ScheduleTimer(func() { fmt.Println("immediately") }, 0)
		return nil
	})
	if err != nil {
		panic(err)
	}

	// Output:
	// immediately
	// one second
}
