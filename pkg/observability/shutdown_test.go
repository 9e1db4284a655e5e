package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_RunsFuncsOnContextCancel(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	manager := NewShutdownManager(logger, time.Second, &http.Server{Addr: "127.0.0.1:0"})

	var calls int32
	manager.RegisterShutdownFunc("database", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	manager.RegisterShutdownFunc("redis", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, manager.WaitForShutdown(ctx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	manager := NewShutdownManager(logger, time.Second)

	cause := errors.New("close failed")
	manager.RegisterShutdownFunc("database", func(context.Context) error { return cause })

	err := manager.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "database")
}

func TestShutdownManager_Timeout(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	manager := NewShutdownManager(logger, 20*time.Millisecond)

	manager.RegisterShutdownFunc("slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	err := manager.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestShutdownManager_ReleasesInReverseOrder(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	manager := NewShutdownManager(logger, time.Second)

	var order []string
	for _, name := range []string{"otel", "database", "redis"} {
		name := name
		manager.RegisterShutdownFunc(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, manager.Shutdown())
	assert.Equal(t, []string{"redis", "database", "otel"}, order)
}

func TestShutdownManager_ContinuesAfterFailure(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	manager := NewShutdownManager(logger, time.Second)

	closed := false
	manager.RegisterShutdownFunc("database", func(context.Context) error {
		closed = true
		return nil
	})
	manager.RegisterShutdownFunc("redis", func(context.Context) error {
		return errors.New("already closed")
	})

	err := manager.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
	assert.True(t, closed)
}
