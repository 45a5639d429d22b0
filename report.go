package miniloop

import (
	"log"
	"time"

	"github.com/joeycumines/logiface"
)

// CallbackReport carries the metadata of a failed callback, handed to the
// [ErrorReporter] together with the error value.
type CallbackReport struct {
	ScheduledAt time.Time
	Delay       time.Duration // timers only; 0 otherwise
	Sequence    uint64
	Kind        QueueKind
}

// ErrorReporter receives every callback failure. Implementations must not
// panic; they are invoked on the loop goroutine between callbacks.
type ErrorReporter interface {
	ReportCallbackError(report CallbackReport, err error)
}

// ErrorReporterFunc adapts a function to the [ErrorReporter] interface.
type ErrorReporterFunc func(report CallbackReport, err error)

// ReportCallbackError implements [ErrorReporter].
func (f ErrorReporterFunc) ReportCallbackError(report CallbackReport, err error) {
	f(report, err)
}

// loggerReporter is the default reporter: it logs failures at error level
// through the loop's logger. With a nil logger it is silent. A logger built
// without an event factory panics on the first field call; the failure then
// falls back to the standard logger so it is never lost.
type loggerReporter struct {
	logger *logiface.Logger[logiface.Event]
}

func (r loggerReporter) ReportCallbackError(report CallbackReport, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("miniloop: %s callback failed (sequence %d): %v", report.Kind, report.Sequence, err)
		}
	}()

	r.logger.Err().
		Stringer("queue", report.Kind).
		Uint64("sequence", report.Sequence).
		Time("scheduledAt", report.ScheduledAt).
		Dur("delay", report.Delay).
		Err(err).
		Log("callback failed")
}
