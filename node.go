package miniloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxSafeInteger is `2^53 - 1`, the maximum safe integer in JavaScript.
const maxSafeInteger = 9007199254740991

// immediateIDBase is the first setImmediate ID. Immediates start at high IDs
// to prevent collision with timeout IDs that start at 1, keeping the two
// namespaces separate even as they grow.
const immediateIDBase = uint64(1) << 48

// Node provides Node.js-flavored scheduling names on top of [Loop].
//
// It maps the loop's queues onto the familiar API surface:
//   - [Node.NextTick] → microtask queue
//   - [Node.SetTimeout] / [Node.SetInterval] → timer queue
//   - [Node.SetImmediate] → check queue
//
// Cancellation via ClearTimeout, ClearInterval, and ClearImmediate is always
// a silent no-op when the ID is invalid or the callback already ran, matching
// the JavaScript contract that clearing never throws.
type Node struct {
	loop *Loop

	intervals    map[uint64]*intervalState
	timeouts     map[uint64]TimerID
	immediates   map[uint64]*immediateState
	nextTimerID  atomic.Uint64
	nextImmedID  atomic.Uint64
	intervalsMu  sync.RWMutex
	timeoutsMu   sync.Mutex
	immediatesMu sync.Mutex
}

// NewNode creates a new [Node] adapter for the given loop.
func NewNode(loop *Loop) (*Node, error) {
	n := &Node{
		loop:       loop,
		intervals:  make(map[uint64]*intervalState),
		timeouts:   make(map[uint64]TimerID),
		immediates: make(map[uint64]*immediateState),
	}
	n.nextImmedID.Store(immediateIDBase)
	return n, nil
}

// Loop returns the underlying [Loop] this adapter is bound to.
func (n *Node) Loop() *Loop {
	return n.loop
}

// NextTick schedules fn on the microtask queue: it runs before any timer or
// immediate callback in the same loop turn, and cannot be cancelled.
func (n *Node) NextTick(fn func()) error {
	if fn == nil {
		return nil
	}
	return n.loop.ScheduleMicrotask(fn)
}

// SetTimeout schedules fn to run once after delayMs milliseconds, following
// JavaScript setTimeout semantics: a negative delay is treated as 0, and a
// zero delay still defers execution to the timer phase (never synchronous).
//
// Returns an ID for [Node.ClearTimeout], or an error if the loop has
// terminated. A nil fn returns 0 without scheduling.
func (n *Node) SetTimeout(fn func(), delayMs int) (uint64, error) {
	if fn == nil {
		return 0, nil
	}

	id := n.nextTimerID.Add(1)
	if id >= immediateIDBase {
		panic("miniloop: timeout ID namespace exhausted")
	}

	wrapper := func() {
		defer func() {
			n.timeoutsMu.Lock()
			delete(n.timeouts, id)
			n.timeoutsMu.Unlock()
		}()
		fn()
	}

	token, err := n.loop.ScheduleTimer(wrapper, time.Duration(delayMs)*time.Millisecond)
	if err != nil {
		return 0, err
	}

	n.timeoutsMu.Lock()
	n.timeouts[id] = token
	n.timeoutsMu.Unlock()

	return id, nil
}

// ClearTimeout cancels a scheduled timeout by its ID. It is a silent no-op
// if the ID is invalid or the callback already ran.
func (n *Node) ClearTimeout(id uint64) {
	n.timeoutsMu.Lock()
	token, ok := n.timeouts[id]
	delete(n.timeouts, id)
	n.timeoutsMu.Unlock()

	if ok {
		n.loop.Cancel(token)
	}
}

// intervalState tracks one repeating timer. Each tick schedules a fresh
// loop timer (a fresh callback with a fresh sequence number); the canceled
// flag stops the chain.
type intervalState struct {
	fn           func()
	wrapper      func()
	delay        time.Duration
	currentToken TimerID
	m            sync.Mutex
	canceled     atomic.Bool
}

// SetInterval schedules fn to run repeatedly, delayMs milliseconds apart.
// Each execution is scheduled after the previous one completes. The interval
// keeps the loop alive until [Node.ClearInterval] is called with the
// returned ID. A nil fn returns 0 without scheduling.
func (n *Node) SetInterval(fn func(), delayMs int) (uint64, error) {
	if fn == nil {
		return 0, nil
	}

	state := &intervalState{
		fn:    fn,
		delay: time.Duration(delayMs) * time.Millisecond,
	}

	wrapper := func() {
		state.fn()

		// Checked before the lock so that ClearInterval from within the
		// callback itself cannot deadlock against another goroutine.
		if state.canceled.Load() {
			return
		}

		state.m.Lock()
		defer state.m.Unlock()
		if state.canceled.Load() {
			return
		}
		token, err := n.loop.ScheduleTimer(state.wrapper, state.delay)
		if err != nil {
			return
		}
		state.currentToken = token
	}
	state.wrapper = wrapper

	id := n.nextTimerID.Add(1)
	if id >= immediateIDBase {
		panic("miniloop: timeout ID namespace exhausted")
	}

	token, err := n.loop.ScheduleTimer(wrapper, state.delay)
	if err != nil {
		return 0, err
	}

	n.intervalsMu.Lock()
	state.currentToken = token
	n.intervals[id] = state
	n.intervalsMu.Unlock()

	return id, nil
}

// ClearInterval cancels a repeating timer by its ID. Safe to call from
// within the interval's own callback; a silent no-op for unknown IDs.
func (n *Node) ClearInterval(id uint64) {
	n.intervalsMu.RLock()
	state, ok := n.intervals[id]
	n.intervalsMu.RUnlock()
	if !ok {
		return
	}

	// Stops rescheduling even if the pending timer is mid-execution.
	state.canceled.Store(true)

	state.m.Lock()
	if state.currentToken != 0 {
		n.loop.Cancel(state.currentToken)
	}
	state.m.Unlock()

	n.intervalsMu.Lock()
	delete(n.intervals, id)
	n.intervalsMu.Unlock()
}

// immediateState tracks a single setImmediate callback.
type immediateState struct {
	fn      func()
	node    *Node
	id      uint64
	cleared atomic.Bool
}

// run executes the immediate callback unless it was cleared. The CAS
// guarantees at-most-once execution even if clearing races with the check
// phase.
func (s *immediateState) run() {
	if !s.cleared.CompareAndSwap(false, true) {
		return
	}

	defer func() {
		s.node.immediatesMu.Lock()
		delete(s.node.immediates, s.id)
		s.node.immediatesMu.Unlock()
	}()

	s.fn()
}

// SetImmediate schedules fn on the check queue: it runs after the current
// timer phase completes, in the same loop iteration.
//
// Returns an ID for [Node.ClearImmediate], or an error if the loop has
// terminated. A nil fn returns 0 without scheduling.
func (n *Node) SetImmediate(fn func()) (uint64, error) {
	if fn == nil {
		return 0, nil
	}

	id := n.nextImmedID.Add(1)
	if id > maxSafeInteger {
		panic("miniloop: immediate ID exceeded MAX_SAFE_INTEGER")
	}

	state := &immediateState{
		fn:   fn,
		node: n,
		id:   id,
	}

	n.immediatesMu.Lock()
	n.immediates[id] = state
	n.immediatesMu.Unlock()

	if err := n.loop.ScheduleCheck(state.run); err != nil {
		n.immediatesMu.Lock()
		delete(n.immediates, id)
		n.immediatesMu.Unlock()
		return 0, err
	}

	return id, nil
}

// ClearImmediate cancels a pending setImmediate callback by its ID. The
// callback runs at most once, and will not start after ClearImmediate
// returns; a callback that already began on the loop goroutine may still be
// mid-execution. A silent no-op for unknown or already-executed IDs.
func (n *Node) ClearImmediate(id uint64) {
	n.immediatesMu.Lock()
	state, ok := n.immediates[id]
	delete(n.immediates, id)
	n.immediatesMu.Unlock()

	if ok {
		state.cleared.Store(true)
	}
}
