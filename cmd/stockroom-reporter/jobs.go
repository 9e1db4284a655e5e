package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/stockroom/pkg/analytics"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/reports"
)

// reporter runs the scheduled jobs
type reporter struct {
	exporter *reports.Exporter
	alerter  *analytics.Alerter
	logger   *logrus.Logger
	now      func() time.Time
}

func newReporter(exporter *reports.Exporter, alerter *analytics.Alerter, logger *logrus.Logger) *reporter {
	return &reporter{
		exporter: exporter,
		alerter:  alerter,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// exportReports uploads every report kind. Partial failures are logged per
// kind by the exporter and summarized here.
func (r *reporter) exportReports(ctx context.Context) error {
	start := r.now()
	r.logger.Info("Starting report export")

	keys, err := r.exporter.ExportAll(observability.WithLogger(ctx, observability.FromLogrus(r.logger)), start)
	entry := r.logger.WithFields(logrus.Fields{
		"uploaded": len(keys),
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Report export failed")
		return err
	}
	entry.Info("Report export completed")
	return nil
}

// checkStock logs one warning per low-stock product
func (r *reporter) checkStock(ctx context.Context) error {
	alerts, err := r.alerter.CheckLowStock(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Low-stock check failed")
		return err
	}

	for _, a := range alerts {
		r.logger.WithFields(logrus.Fields{
			"product_id": a.ProductID,
			"sku":        a.SKU,
			"quantity":   a.Quantity,
			"min_stock":  a.MinStockLevel,
			"severity":   a.Severity,
		}).Warnf("%s is %s", a.Name, a.Level)
	}
	r.logger.WithField("count", len(alerts)).Info("Low-stock check completed")
	return nil
}
