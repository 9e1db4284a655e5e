package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/analytics"
	"github.com/platinummonkey/stockroom/pkg/config"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/reports"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

var (
	logLevel      = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	alertSchedule = flag.String("alert-schedule", "0 * * * *", "Cron schedule for low-stock checks (default: hourly)")
	runOnce       = flag.Bool("run-once", false, "Export reports and check stock once, then exit")
	jobTimeout    = flag.Duration("job-timeout", 5*time.Minute, "Maximum duration of a single job run")
	healthAddr    = flag.String("health-addr", ":9091", "Address for /health/live and /health/ready (empty disables)")
)

var version = "dev"

func main() {
	flag.Parse()

	logger := setupLogger(*logLevel)
	logger.Info("Starting stockroom reporter")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateReports(); err != nil {
		logger.Fatalf("Invalid report configuration: %v", err)
	}

	ctx := context.Background()

	cm, err := storage.NewConnectionManager(ctx, cfg.Database.Storage(), observability.FromLogrus(logger))
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer cm.Close()

	if _, err := storage.Migrate(ctx, cm.Primary(), cm.Driver()); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	archive, err := reports.NewS3Archive(ctx, cfg.Reports.S3())
	if err != nil {
		logger.Fatalf("Failed to open report archive: %v", err)
	}

	r := newReporter(
		reports.NewExporter(
			reports.NewGenerator(cm.Primary(), nil).WithReplicas(cm.Replica),
			archive,
			activity.NewLogger(cm.Primary(), nil),
		),
		analytics.NewAlerter(cm.Primary(), nil, nil),
		logger,
	)

	if *runOnce {
		jobCtx, cancel := context.WithTimeout(ctx, *jobTimeout)
		defer cancel()

		exportErr := r.exportReports(jobCtx)
		alertErr := r.checkStock(jobCtx)
		if exportErr != nil || alertErr != nil {
			logger.Fatal("Reporter run failed")
		}
		logger.Info("Reporter run completed successfully")
		return
	}

	c := cron.New()

	_, err = c.AddFunc(cfg.Reports.Schedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, *jobTimeout)
		defer cancel()
		r.exportReports(jobCtx)
	})
	if err != nil {
		logger.Fatalf("Failed to schedule report export: %v", err)
	}

	_, err = c.AddFunc(*alertSchedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, *jobTimeout)
		defer cancel()
		r.checkStock(jobCtx)
	})
	if err != nil {
		logger.Fatalf("Failed to schedule low-stock checks: %v", err)
	}

	var healthServer *http.Server
	if *healthAddr != "" {
		healthServer = startHealthServer(*healthAddr, cm, archive, logger)
	}

	c.Start()
	logger.WithFields(logrus.Fields{
		"export_schedule": cfg.Reports.Schedule,
		"alert_schedule":  *alertSchedule,
		"bucket":          cfg.Reports.S3Bucket,
	}).Info("Reporter scheduled")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down gracefully...")

	stopCtx := c.Stop()
	<-stopCtx.Done()

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Health server shutdown failed")
		}
	}

	logger.Info("Reporter stopped")
}

// startHealthServer reports ready while the database and bucket are reachable
func startHealthServer(addr string, cm *storage.ConnectionManager, archive *reports.S3Archive, logger *logrus.Logger) *http.Server {
	checker := observability.NewHealthChecker(version).
		Require("database", cm.HealthCheck).
		Require("archive", archive.HealthCheck)

	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, checker)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.WithField("addr", addr).Info("Starting health server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Health server failed")
		}
	}()
	return srv
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
