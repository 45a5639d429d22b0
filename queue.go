package miniloop

import (
	"container/heap"
	"time"

	"github.com/eapache/queue"
)

// fifo is a typed FIFO of callbacks backing the microtask and check queues.
type fifo struct {
	q *queue.Queue
}

func newFIFO() *fifo {
	return &fifo{q: queue.New()}
}

func (f *fifo) push(cb *callback) {
	f.q.Add(cb)
}

// pop removes and returns the oldest callback, or nil if the queue is empty.
func (f *fifo) pop() *callback {
	if f.q.Length() == 0 {
		return nil
	}
	return f.q.Remove().(*callback)
}

func (f *fifo) length() int {
	return f.q.Length()
}

// timerQueue orders timer callbacks by (eligibility time, sequence) and
// tracks them by cancellation token. Cancellation is lazy: cancelled entries
// are dropped from the token map immediately and discarded from the heap
// whenever they surface at the top.
type timerQueue struct {
	byID map[TimerID]*callback
	h    timerHeap
}

func newTimerQueue() *timerQueue {
	return &timerQueue{
		byID: make(map[TimerID]*callback),
		h:    make(timerHeap, 0),
	}
}

func (t *timerQueue) push(cb *callback) {
	t.byID[cb.id] = cb
	heap.Push(&t.h, cb)
}

// cancel marks the timer identified by id as cancelled.
// Returns false if the id is unknown, already executed, or already cancelled.
func (t *timerQueue) cancel(id TimerID) bool {
	cb, ok := t.byID[id]
	if !ok {
		return false
	}
	cb.canceled = true
	delete(t.byID, id)
	return true
}

// pending returns the number of live (not cancelled, not executed) timers.
func (t *timerQueue) pending() int {
	return len(t.byID)
}

// discardCancelled pops cancelled entries off the top of the heap.
func (t *timerQueue) discardCancelled() {
	for len(t.h) > 0 && t.h[0].canceled {
		heap.Pop(&t.h)
	}
}

// popDue removes and returns the next eligible timer callback, or nil.
//
// A callback is eligible when its due time is not after now and its sequence
// is at most maxSeq. The sequence bound pins eligibility to the entries that
// existed when the timer phase began: a zero-delay timer scheduled from
// within a timer callback waits for the next loop iteration, it does not
// extend the current phase.
func (t *timerQueue) popDue(now time.Time, maxSeq uint64) *callback {
	t.discardCancelled()
	if len(t.h) == 0 {
		return nil
	}
	top := t.h[0]
	if top.due().After(now) || top.seq > maxSeq {
		return nil
	}
	heap.Pop(&t.h)
	delete(t.byID, top.id)
	return top
}

// nextDue returns the due time of the earliest pending timer.
func (t *timerQueue) nextDue() (time.Time, bool) {
	t.discardCancelled()
	if len(t.h) == 0 {
		return time.Time{}, false
	}
	return t.h[0].due(), true
}

// timerHeap is a min-heap of timer callbacks ordered by (due, sequence).
type timerHeap []*callback

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	di, dj := h[i].due(), h[j].due()
	if di.Equal(dj) {
		return h[i].seq < h[j].seq
	}
	return di.Before(dj)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*callback))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}
