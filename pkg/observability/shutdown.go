package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownFunc releases one resource
type ShutdownFunc func(context.Context) error

type closer struct {
	name  string
	close ShutdownFunc
}

// ShutdownManager drains HTTP servers and then releases resources in reverse
// registration order, all within one timeout
type ShutdownManager struct {
	logger    *Logger
	servers   []*http.Server
	timeout   time.Duration
	mu        sync.Mutex
	resources []closer
}

// NewShutdownManager creates a manager for servers. A zero timeout means 30s.
func NewShutdownManager(logger *Logger, timeout time.Duration, servers ...*http.Server) *ShutdownManager {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &ShutdownManager{logger: logger, servers: servers, timeout: timeout}
}

// RegisterShutdownFunc adds a resource. Resources registered later are
// released first.
func (sm *ShutdownManager) RegisterShutdownFunc(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.resources = append(sm.resources, closer{name: name, close: fn})
}

// WaitForShutdown blocks until SIGINT/SIGTERM or ctx is done, then shuts down
func (sm *ShutdownManager) WaitForShutdown(ctx context.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		sm.logger.WithField("signal", sig.String()).Info("Starting graceful shutdown")
	case <-ctx.Done():
		sm.logger.Info("Context cancelled, starting graceful shutdown")
	}
	return sm.Shutdown()
}

// Shutdown stops accepting requests, waits for in-flight ones, then closes
// resources one at a time. It gives up when the timeout expires.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	var errs []error

	var g errgroup.Group
	for _, srv := range sm.servers {
		srv := srv
		g.Go(func() error {
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
			sm.logger.WithField("addr", srv.Addr).Info("HTTP server stopped")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		sm.logger.WithError(err).Error("HTTP server shutdown failed")
		errs = append(errs, err)
	}

	sm.mu.Lock()
	resources := append([]closer(nil), sm.resources...)
	sm.mu.Unlock()

	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		if err := closeWithin(ctx, r.close); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				sm.logger.WithField("resource", r.name).Warn("Shutdown timeout reached, abandoning remaining resources")
				return errors.Join(append(errs, fmt.Errorf("shutdown timeout reached while closing %s", r.name))...)
			}
			sm.logger.WithError(err).WithField("resource", r.name).Error("Resource close failed")
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
			continue
		}
		sm.logger.WithField("resource", r.name).Info("Resource closed")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("Graceful shutdown complete")
	return nil
}

// closeWithin returns ctx.Err() if fn outlives ctx
func closeWithin(ctx context.Context, fn ShutdownFunc) error {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
