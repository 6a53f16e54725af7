package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with the stack trace.
// It must be called directly in a defer statement:
//
//	defer observability.RecoverPanic(logger, "plugin watcher")
//
// The panic is not re-raised.
func RecoverPanic(logger logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}

// MustRecover converts a recovered value to an error, or nil when r is nil:
//
//	defer func() {
//	    err = observability.MustRecover(recover())
//	}()
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
