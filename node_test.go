package miniloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T) (*Node, *Loop) {
	t.Helper()
	l, _ := newVirtualLoop(t)
	n, err := NewNode(l)
	require.NoError(t, err)
	return n, l
}

func TestNode_OrderingNextTickTimeoutImmediate(t *testing.T) {
	n, l := newTestNode(t)

	var trace []string
	err := l.Run(context.Background(), func() error {
		// Scheduled in reverse priority order on purpose.
		n.SetImmediate(func() { trace = append(trace, "immediate") })
		n.SetTimeout(func() { trace = append(trace, "timeout") }, 0)
		n.NextTick(func() { trace = append(trace, "tick") })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tick", "timeout", "immediate"}, trace)
}

func TestNode_ClearTimeout(t *testing.T) {
	n, l := newTestNode(t)

	var ran bool
	err := l.Run(context.Background(), func() error {
		id, err := n.SetTimeout(func() { ran = true }, 100)
		require.NoError(t, err)
		n.ClearTimeout(id)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ran, "cleared timeout still ran")
}

func TestNode_ClearTimeout_AfterRunIsNoOp(t *testing.T) {
	n, l := newTestNode(t)

	var id uint64
	err := l.Run(context.Background(), func() error {
		var err error
		id, err = n.SetTimeout(func() {}, 0)
		return err
	})
	require.NoError(t, err)

	// Must not panic or error; the entry is long gone.
	n.ClearTimeout(id)
	n.ClearTimeout(999999)
}

func TestNode_SetIntervalTicksAndClears(t *testing.T) {
	n, l := newTestNode(t)

	var ticks int
	var id uint64
	err := l.Run(context.Background(), func() error {
		var err error
		id, err = n.SetInterval(func() {
			ticks++
			if ticks == 5 {
				n.ClearInterval(id)
			}
		}, 10)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 5, ticks)
}

func TestNode_ClearInterval_Unknown(t *testing.T) {
	n, _ := newTestNode(t)
	n.ClearInterval(42) // silent no-op
}

func TestNode_ClearImmediate(t *testing.T) {
	n, l := newTestNode(t)

	var ran bool
	var trace []string
	err := l.Run(context.Background(), func() error {
		id, err := n.SetImmediate(func() { ran = true })
		require.NoError(t, err)
		n.SetImmediate(func() { trace = append(trace, "kept") })
		n.ClearImmediate(id)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, ran, "cleared immediate still ran")
	assert.Equal(t, []string{"kept"}, trace)
}

func TestNode_NilCallbacks(t *testing.T) {
	n, _ := newTestNode(t)

	require.NoError(t, n.NextTick(nil))

	id, err := n.SetTimeout(nil, 0)
	require.NoError(t, err)
	assert.Zero(t, id)

	id, err = n.SetInterval(nil, 0)
	require.NoError(t, err)
	assert.Zero(t, id)

	id, err = n.SetImmediate(nil)
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestNode_IDNamespaceSeparation(t *testing.T) {
	n, _ := newTestNode(t)

	toID, err := n.SetTimeout(func() {}, 1000)
	require.NoError(t, err)
	imID, err := n.SetImmediate(func() {})
	require.NoError(t, err)

	assert.Less(t, toID, immediateIDBase, "timeout IDs must stay below the immediate namespace")
	assert.Greater(t, imID, immediateIDBase, "immediate IDs must start above the timeout namespace")
}

func TestNode_NextTickFromTimerPrecedesNextTimer(t *testing.T) {
	n, l := newTestNode(t)

	var trace []string
	err := l.Run(context.Background(), func() error {
		n.SetTimeout(func() {
			trace = append(trace, "t1")
			n.NextTick(func() { trace = append(trace, "tick") })
		}, 0)
		n.SetTimeout(func() { trace = append(trace, "t2") }, 0)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "tick", "t2"}, trace)
}

func TestNode_ImmediateFromImmediateNextIteration(t *testing.T) {
	n, l := newTestNode(t)

	var trace []string
	err := l.Run(context.Background(), func() error {
		n.SetImmediate(func() {
			trace = append(trace, "i1")
			n.SetImmediate(func() { trace = append(trace, "i2") })
			n.SetTimeout(func() { trace = append(trace, "t") }, 0)
		})
		return nil
	})
	require.NoError(t, err)
	// The timer scheduled by i1 runs in the next iteration's timer phase,
	// before that iteration's check phase reaches i2.
	assert.Equal(t, []string{"i1", "t", "i2"}, trace)
}

func TestNode_TimeoutDelayOrdering(t *testing.T) {
	n, l := newTestNode(t)

	var trace []string
	err := l.Run(context.Background(), func() error {
		n.SetTimeout(func() { trace = append(trace, "slow") }, 1000)
		n.SetTimeout(func() { trace = append(trace, "fast") }, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fast", "slow"}, trace)
}

func TestNode_LoopAccessor(t *testing.T) {
	n, l := newTestNode(t)
	assert.Same(t, l, n.Loop())
}
