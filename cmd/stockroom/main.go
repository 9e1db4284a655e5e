package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/analytics"
	"github.com/platinummonkey/stockroom/pkg/api"
	"github.com/platinummonkey/stockroom/pkg/auth"
	"github.com/platinummonkey/stockroom/pkg/config"
	"github.com/platinummonkey/stockroom/pkg/inventory"
	"github.com/platinummonkey/stockroom/pkg/middleware"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/reports"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

var version = "dev"

const poolStatsInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stockroom: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)
	logger.WithField("version", version).Info("Starting stockroom inventory service")

	ctx := context.Background()

	telemetry, err := observability.StartTelemetry(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	cm, err := storage.NewConnectionManager(ctx, cfg.Database.Storage(), logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := storage.Migrate(ctx, cm.Primary(), cm.Driver())
	if err != nil {
		cm.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, v := range applied {
		logger.WithField("version", v).Info("Applied migration")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		cm.Close()
		return err
	}
	authLimiter, apiLimiter, limiterCheck := newLimiters(cfg, redisClient)
	if limiterCheck != nil {
		logger.Info("Using Redis for distributed rate limiting")
	}

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, nil)
	if err != nil {
		cm.Close()
		return fmt.Errorf("failed to create token service: %w", err)
	}

	primary := cm.Primary()
	accounts := auth.NewService(
		auth.NewUserStore(primary, metrics),
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		nil,
	)

	server := api.NewServer(api.Dependencies{
		Accounts:       accounts,
		Tokens:         tokens,
		Products:       inventory.NewStore(primary, metrics),
		Activity:       activity.NewLogger(primary, metrics),
		Events:         analytics.NewEventTracker(primary, metrics),
		Analytics:      analytics.NewService(primary, metrics).WithReplicas(cm.Replica).WithMetrics(metrics),
		Reports:        reports.NewGenerator(primary, metrics).WithReplicas(cm.Replica).WithMetrics(metrics),
		Metrics:        metrics,
		Logger:         logger,
		AuthLimiter:    authLimiter,
		APILimiter:     apiLimiter,
		DevMode:        cfg.Server.DevMode,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      telemetry.Handler(server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsMux := http.NewServeMux()
	checker := observability.NewHealthChecker(version).
		Require("database", cm.HealthCheck).
		Optional("connection_pool", observability.PoolCheck(primary))
	if limiterCheck != nil {
		checker.Optional("redis", limiterCheck)
	}
	observability.RegisterHealthRoutes(opsMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Released in reverse: Redis, then the database, then telemetry
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, opsServer)
	shutdown.RegisterShutdownFunc("otel", telemetry.Shutdown)
	shutdown.RegisterShutdownFunc("database", func(context.Context) error {
		return cm.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if metrics != nil {
		go observePool(runCtx, cm, metrics)
	}

	serveErrs := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		logger.WithField("addr", srv.Addr).Infof("Starting %s server", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Errorf("%s server failed", name)
			serveErrs <- fmt.Errorf("%s server: %w", name, err)
			cancel()
		}
	}
	go serve("API", httpServer)
	go serve("ops", opsServer)

	if err := shutdown.WaitForShutdown(runCtx); err != nil {
		return err
	}
	select {
	case err := <-serveErrs:
		return err
	default:
		return nil
	}
}

// connectRedis returns nil when Redis is not configured
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// newLimiters shares counters across replicas through Redis when available.
// The returned check is nil for in-memory limiters.
func newLimiters(cfg *config.Config, client *redis.Client) (middleware.Limiter, middleware.Limiter, observability.Check) {
	authCfg := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.AuthRequests,
		WindowDuration:    cfg.RateLimit.Window,
	}
	apiCfg := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.APIRequests,
		WindowDuration:    cfg.RateLimit.Window,
	}

	if client != nil {
		authLimiter := middleware.NewDistributedRateLimiter(client, authCfg, "stockroom:ratelimit:auth")
		apiLimiter := middleware.NewDistributedRateLimiter(client, apiCfg, "stockroom:ratelimit:api")
		return authLimiter, apiLimiter, apiLimiter.HealthCheck
	}
	return middleware.NewRateLimiter(authCfg), middleware.NewRateLimiter(apiCfg), nil
}

func observePool(ctx context.Context, cm *storage.ConnectionManager, metrics *observability.Metrics) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.ObservePool(cm.Stats().Primary)
		}
	}
}
