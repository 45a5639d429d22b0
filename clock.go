package miniloop

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the loop's notion of time. It exists so that the driver
// never blocks on wall-clock time directly, which makes runs fully
// deterministic under [NewVirtualClock].
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks until d has elapsed from the clock's perspective, or ctx
	// is done, whichever comes first. Virtual implementations may return
	// immediately after advancing their internal time.
	Sleep(ctx context.Context, d time.Duration)
}

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// VirtualClock is a manually-advanced Clock for deterministic runs and tests.
// Time advances only when the loop sleeps (jumping straight to the requested
// deadline) or when [VirtualClock.Advance] is called.
type VirtualClock struct {
	now time.Time
	mu  sync.Mutex
}

// NewVirtualClock returns a VirtualClock starting at the given instant.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the virtual time by d and returns immediately.
func (c *VirtualClock) Sleep(_ context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	c.Advance(d)
}

// Advance moves the virtual time forward by d. Negative values are ignored.
func (c *VirtualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
