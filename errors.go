package miniloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that is
	// already running.
	ErrLoopAlreadyRunning = errors.New("miniloop: loop is already running")

	// ErrLoopTerminated is returned when operations are attempted on a loop
	// whose run has completed.
	ErrLoopTerminated = errors.New("miniloop: loop has been terminated")
)

// SyncError wraps an error returned by the top-level synchronous program.
// Unlike callback errors it is fatal: the run terminates and [Loop.Run]
// propagates it to the embedder.
type SyncError struct {
	Cause error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("miniloop: synchronous entry failed: %v", e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// CallbackError wraps a failure raised inside a queued callback. It is
// reported via the configured [ErrorReporter] and never halts the driver.
type CallbackError struct {
	Cause    error
	Sequence uint64
	Kind     QueueKind
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("miniloop: %s callback (sequence %d) failed: %v", e.Kind, e.Sequence, e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *CallbackError) Unwrap() error {
	return e.Cause
}

// PanicValueError wraps a non-error panic value recovered from a callback.
type PanicValueError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicValueError) Error() string {
	return fmt.Sprintf("miniloop: callback panicked: %v", e.Value)
}

// panicCause normalizes a recovered panic value into an error.
func panicCause(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicValueError{Value: r}
}
