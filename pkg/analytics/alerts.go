package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/stockroom/pkg/inventory"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

// Severity of an alert
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// StockAlert flags one product at or below its minimum level
type StockAlert struct {
	ProductID     int64     `json:"product_id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	Quantity      int64     `json:"quantity"`
	MinStockLevel int64     `json:"min_stock_level"`
	Level         string    `json:"stock_level"`
	Severity      Severity  `json:"severity"`
	TriggeredAt   time.Time `json:"triggered_at"`
}

// Alerter monitors stock levels
type Alerter struct {
	db       *sql.DB
	recorder storage.Recorder
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewAlerter creates a new Alerter instance. recorder and metrics may be nil.
func NewAlerter(db *sql.DB, recorder storage.Recorder, metrics *observability.Metrics) *Alerter {
	return &Alerter{
		db:       db,
		recorder: recorder,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CheckLowStock returns every low-stock product, empty ones first, and
// publishes the count to the low-stock gauge
func (a *Alerter) CheckLowStock(ctx context.Context) (alerts []StockAlert, err error) {
	defer storage.Observe(a.recorder, "analytics.check_low_stock", time.Now(), &err)

	query := `
		SELECT id, name, sku, quantity, min_stock_level
		FROM products
		WHERE ` + inventory.LowStockSQL("quantity", "min_stock_level") + `
		ORDER BY quantity ASC, id ASC
	`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock alerts: %w", err)
	}
	defer rows.Close()

	at := a.now()
	alerts = []StockAlert{}
	for rows.Next() {
		alert := StockAlert{TriggeredAt: at}
		if err := rows.Scan(&alert.ProductID, &alert.Name, &alert.SKU, &alert.Quantity, &alert.MinStockLevel); err != nil {
			return nil, fmt.Errorf("failed to scan low stock alert: %w", err)
		}
		level := inventory.ClassifyStock(alert.Quantity, alert.MinStockLevel)
		alert.Level = level.String()
		alert.Severity = SeverityWarning
		if level == inventory.OutOfStock {
			alert.Severity = SeverityCritical
		}
		alerts = append(alerts, alert)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate low stock alerts: %w", err)
	}

	a.metrics.SetLowStock(int64(len(alerts)))
	return alerts, nil
}
