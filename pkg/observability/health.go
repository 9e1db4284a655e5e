package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 5 * time.Second

// Check probes one dependency
type Check func(ctx context.Context) error

type dependency struct {
	name     string
	check    Check
	required bool
}

// HealthChecker aggregates dependency checks. A failing required check makes
// the service unhealthy; a failing optional one only degrades it.
type HealthChecker struct {
	version string
	deps    []dependency
	now     func() time.Time
}

// NewHealthChecker creates a checker with no dependencies
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		version: version,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Require registers a check the service cannot run without
func (h *HealthChecker) Require(name string, check Check) *HealthChecker {
	h.deps = append(h.deps, dependency{name: name, check: check, required: true})
	return h
}

// Optional registers a check whose failure only degrades the service
func (h *HealthChecker) Optional(name string, check Check) *HealthChecker {
	h.deps = append(h.deps, dependency{name: name, check: check})
	return h
}

// HealthStatus is the readiness response body
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the result of one check
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Check runs every dependency check concurrently
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    h.now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.deps)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, dep := range h.deps {
		dep := dep
		g.Go(func() error {
			result := probe(ctx, dep)

			mu.Lock()
			defer mu.Unlock()
			status.Dependencies[dep.name] = result
			if result.Status == StatusHealthy {
				return nil
			}
			if dep.required {
				status.Status = StatusUnhealthy
			} else if status.Status == StatusHealthy {
				status.Status = StatusDegraded
			}
			return nil
		})
	}
	g.Wait()

	return status
}

func probe(ctx context.Context, dep dependency) DependencyStatus {
	start := time.Now()
	err := dep.check(ctx)
	result := DependencyStatus{
		Status:    StatusHealthy,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// Liveness always returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": h.now(),
	})
}

// Readiness returns 503 when a required dependency is down
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// PoolCheck fails while every connection of db is in use
func PoolCheck(db *sql.DB) Check {
	return func(context.Context) error {
		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			return errors.New("connection pool exhausted")
		}
		return nil
	}
}

// RegisterHealthRoutes registers health check endpoints on the ops mux
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
