// Package observability provides structured logging, Prometheus metrics,
// health probes, graceful shutdown and OpenTelemetry tracing for stockroom.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("product_id", id).Info("Product created")
//
// Request-scoped loggers carry the request id and user id:
//
//	observability.FromContext(r.Context()).WithError(err).Error("Failed to list products")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version).
//		Require("database", cm.HealthCheck).
//		Optional("redis", limiter.HealthCheck)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	telemetry, err := observability.StartTelemetry(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "stockroom",
//		SampleRatio: 0.2,
//	}, logger)
//	handler = telemetry.Handler(handler)
//	defer telemetry.Shutdown(ctx)
package observability
