package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultShutdownTimeout = 30 * time.Second

// ErrShutdownTimeout is returned when the stages outlive the shutdown timeout
var ErrShutdownTimeout = errors.New("shutdown timeout reached")

// ShutdownFunc releases one resource during shutdown
type ShutdownFunc func(context.Context) error

type shutdownStage struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager stops the admin server and then runs the registered
// stages in reverse order of registration, like deferred calls.
type ShutdownManager struct {
	logger  logrus.FieldLogger
	server  *http.Server
	timeout time.Duration

	mu     sync.Mutex
	stages []shutdownStage
}

// NewShutdownManager creates a shutdown manager. server may be nil and a
// zero timeout means 30 seconds.
func NewShutdownManager(logger logrus.FieldLogger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ShutdownManager{logger: logger, server: server, timeout: timeout}
}

// RegisterShutdownFunc adds a named stage. Stages registered later run first.
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stages = append(sm.stages, shutdownStage{name: name, fn: fn})
}

// WaitForShutdown blocks until SIGINT, SIGTERM or ctx cancellation, then shuts down
func (sm *ShutdownManager) WaitForShutdown(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	if ctx.Err() != nil {
		sm.logger.Info("Context cancelled, shutting down")
	} else {
		sm.logger.Info("Received termination signal, shutting down")
	}

	return sm.Shutdown()
}

// Shutdown runs every stage even when an earlier one fails and returns
// the joined errors. It gives up with ErrShutdownTimeout once the
// timeout elapses.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	var errs []error
	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("Admin server shutdown failed")
			errs = append(errs, fmt.Errorf("admin server: %w", err))
		}
	}

	sm.mu.Lock()
	stages := make([]shutdownStage, len(sm.stages))
	copy(stages, sm.stages)
	sm.mu.Unlock()

	for i := len(stages) - 1; i >= 0; i-- {
		stage := stages[i]
		if err := sm.runStage(ctx, stage); err != nil {
			if errors.Is(err, ErrShutdownTimeout) {
				return err
			}
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	sm.logger.Info("Graceful shutdown complete")
	return nil
}

func (sm *ShutdownManager) runStage(ctx context.Context, stage shutdownStage) error {
	logger := sm.logger.WithField("stage", stage.name)
	logger.Debug("Running shutdown stage")

	done := make(chan error, 1)
	go func() {
		done <- stage.fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.WithError(err).Error("Shutdown stage failed")
			return fmt.Errorf("%s: %w", stage.name, err)
		}
		return nil
	case <-ctx.Done():
		logger.Warn("Shutdown timeout reached, abandoning remaining stages")
		return fmt.Errorf("%w during %s", ErrShutdownTimeout, stage.name)
	}
}
