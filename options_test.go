package miniloop

import (
	"testing"
	"time"

	"github.com/joeycumines/logiface"
)

// Test: Nil option handling
func TestNilOption(t *testing.T) {
	l, err := New(nil)
	if err != nil {
		t.Fatalf("New() with nil option failed: %v", err)
	}
	if l.microtaskBudget != DefaultMicrotaskBudget {
		t.Errorf("default microtask budget = %d, want %d", l.microtaskBudget, DefaultMicrotaskBudget)
	}
	if l.clock == nil {
		t.Error("default clock is nil")
	}
	if l.metrics.enabled {
		t.Error("metrics enabled by default")
	}
}

func TestWithMicrotaskBudget_Negative(t *testing.T) {
	if _, err := New(WithMicrotaskBudget(-1)); err == nil {
		t.Error("New accepted a negative microtask budget")
	}
}

func TestWithClock_Nil(t *testing.T) {
	if _, err := New(WithClock(nil)); err == nil {
		t.Error("New accepted a nil clock")
	}
}

func TestWithErrorReporter_Nil(t *testing.T) {
	if _, err := New(WithErrorReporter(nil)); err == nil {
		t.Error("New accepted a nil reporter")
	}
}

func TestWithClock(t *testing.T) {
	clock := NewVirtualClock(time.Unix(100, 0))
	l, err := New(WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := l.Clock().Now(); !got.Equal(time.Unix(100, 0)) {
		t.Errorf("Clock().Now() = %v, want %v", got, time.Unix(100, 0))
	}
}

// TestWithLogger verifies that WithLogger properly attaches a logger.
func TestWithLogger(t *testing.T) {
	logger := logiface.New[logiface.Event](
		logiface.WithWriter[logiface.Event](logiface.NewWriterFunc(func(event logiface.Event) error {
			// Discard events for this test
			return nil
		})),
	)

	l, err := New(WithLogger(logger))
	if err != nil {
		t.Fatal("New failed:", err)
	}
	if l.logger != logger {
		t.Error("logger not attached")
	}
}

func TestWithMetrics(t *testing.T) {
	l, err := New(WithMetrics(true))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !l.metrics.enabled {
		t.Error("metrics not enabled")
	}
}
