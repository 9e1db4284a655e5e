package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthAttemptsTotal       *prometheus.CounterVec
	TokenVerificationsTotal *prometheus.CounterVec
	RateLimitedTotal        *prometheus.CounterVec

	// Database metrics
	DBOperationsTotal      *prometheus.CounterVec
	DBOperationDuration    *prometheus.HistogramVec
	DBConnectionsOpen      prometheus.Gauge
	DBConnectionsInUse     prometheus.Gauge
	DBConnectionsWaitCount prometheus.Gauge

	// Business metrics
	ProductsLowStock      prometheus.Gauge
	ReportsGeneratedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockroom_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockroom_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),

		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_auth_attempts_total",
				Help: "Register and login attempts by outcome",
			},
			[]string{"operation", "result"},
		),
		TokenVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_token_verifications_total",
				Help: "Bearer token verifications by outcome",
			},
			[]string{"result"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),

		DBOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_db_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		),
		DBOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockroom_db_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockroom_db_connections_open",
				Help: "Number of open database connections on the primary",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockroom_db_connections_in_use",
				Help: "Number of in-use database connections on the primary",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockroom_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),

		ProductsLowStock: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockroom_products_low_stock",
				Help: "Products at or below their minimum stock level at last dashboard read",
			},
		),
		ReportsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockroom_reports_generated_total",
				Help: "Reports generated by kind and format",
			},
			[]string{"kind", "format"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AuthAttemptsTotal,
		m.TokenVerificationsTotal,
		m.RateLimitedTotal,
		m.DBOperationsTotal,
		m.DBOperationDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsWaitCount,
		m.ProductsLowStock,
		m.ReportsGeneratedTotal,
	)

	return m
}

// ObserveDBOperation records one store operation. It is safe on a nil receiver.
func (m *Metrics) ObserveDBOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DBOperationsTotal.WithLabelValues(operation, status).Inc()
	m.DBOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObservePool copies connection pool statistics into the pool gauges
func (m *Metrics) ObservePool(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the matched mux route template so path labels stay bounded
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Install it with Router.Use so the matched route template is available.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			path := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// ObserveAuthAttempt counts a register or login outcome
func (m *Metrics) ObserveAuthAttempt(operation, result string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveTokenVerification counts a token check by result
func (m *Metrics) ObserveTokenVerification(result string) {
	if m == nil {
		return
	}
	m.TokenVerificationsTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimited counts a rejected request
func (m *Metrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(scope).Inc()
}

// SetLowStock records the latest low-stock product count
func (m *Metrics) SetLowStock(count int64) {
	if m == nil {
		return
	}
	m.ProductsLowStock.Set(float64(count))
}

// ObserveReport counts a generated report
func (m *Metrics) ObserveReport(kind, format string) {
	if m == nil {
		return
	}
	m.ReportsGeneratedTotal.WithLabelValues(kind, format).Inc()
}
