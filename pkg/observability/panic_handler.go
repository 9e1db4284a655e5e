package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic in the calling goroutine and logs it
// with the stack trace. It must be invoked directly by defer.
//
//	func (e *Exporter) run() {
//	    defer observability.RecoverPanic(logger, "scheduled report export")
//	    ...
//	}
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.WithField("panic", fmt.Sprint(r)).
			WithField("stack", string(debug.Stack())).
			WithField("context", where).
			Error("PANIC recovered")
	}
}

// PanicError converts a recovered value into an error, nil when r is nil
func PanicError(r interface{}) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
