package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager(t *testing.T) {
	sm := NewShutdownManager(nil, nil, 0)
	assert.Equal(t, defaultShutdownTimeout, sm.timeout)
	assert.NotNil(t, sm.logger)

	sm.RegisterShutdownFunc("nil", nil)
	assert.Empty(t, sm.stages)
}

// TestShutdown_ReverseOrder tests that stages run last-registered first
func TestShutdown_ReverseOrder(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sm := NewShutdownManager(logger, nil, time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"tracing", "plugins", "watcher"} {
		name := name
		sm.RegisterShutdownFunc(name, func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"watcher", "plugins", "tracing"}, order)
	assert.Equal(t, "Graceful shutdown complete", hook.LastEntry().Message)
}

// TestShutdown_Errors tests that a failing stage does not stop later ones
func TestShutdown_Errors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sm := NewShutdownManager(logger, nil, time.Second)

	boom := errors.New("boom")
	ran := false
	sm.RegisterShutdownFunc("last", func(ctx context.Context) error {
		ran = true
		return nil
	})
	sm.RegisterShutdownFunc("first", func(ctx context.Context) error { return boom })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "first: boom")
	assert.True(t, ran)
}

func TestShutdown_Timeout(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sm := NewShutdownManager(logger, nil, 50*time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	sm.RegisterShutdownFunc("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	start := time.Now()
	err := sm.Shutdown()
	require.ErrorIs(t, err, ErrShutdownTimeout)
	assert.Contains(t, err.Error(), "stuck")
	assert.Less(t, time.Since(start), time.Second)
}

func TestShutdown_HTTPServer(t *testing.T) {
	logger, _ := test.NewNullLogger()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sm := NewShutdownManager(logger, server.Config, time.Second)
	require.NoError(t, sm.Shutdown())

	_, err := http.Get(server.URL)
	assert.Error(t, err)
}

func TestWaitForShutdown_Context(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sm := NewShutdownManager(logger, nil, time.Second)

	ran := make(chan struct{}, 1)
	sm.RegisterShutdownFunc("host", func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sm.WaitForShutdown(ctx))
	assert.Len(t, ran, 1)
	assert.Equal(t, "Context cancelled, shutting down", hook.Entries[0].Message)
}
