package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/stockroom/pkg/inventory"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

// generator builds the table of one kind
type generator func(ctx context.Context, db *sql.DB) (Table, error)

func (k Kind) generator() generator {
	switch k {
	case Inventory:
		return inventoryTable
	case Products:
		return productsTable
	case Users:
		return usersTable
	}
	return nil
}

// Generator produces reports from the store
type Generator struct {
	db       *sql.DB
	replicas storage.Source
	recorder storage.Recorder
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewGenerator creates a report generator over the primary db. recorder may
// be nil.
func NewGenerator(db *sql.DB, recorder storage.Recorder) *Generator {
	return &Generator{
		db:       db,
		replicas: storage.Fixed(db),
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics counts generated reports by kind and format
func (g *Generator) WithMetrics(m *observability.Metrics) *Generator {
	g.metrics = m
	return g
}

// WithReplicas sends the reports that carry no stock status to replicas
func (g *Generator) WithReplicas(replicas storage.Source) *Generator {
	g.replicas = replicas
	return g
}

// source returns the handle for kind. Stock status is read from the primary.
func (g *Generator) source(kind Kind) *sql.DB {
	if kind == Inventory {
		return g.db
	}
	return g.replicas()
}

// Generate builds the report of kind that will be rendered as format
func (g *Generator) Generate(ctx context.Context, kind Kind, format Format) (report *Report, err error) {
	defer storage.Observe(g.recorder, "reports."+kind.String(), time.Now(), &err)

	gen := kind.generator()
	if gen == nil {
		return nil, fmt.Errorf("no generator for report kind %s", kind)
	}
	table, err := gen(ctx, g.source(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s report: %w", kind, err)
	}

	g.metrics.ObserveReport(kind.String(), string(format))
	return &Report{
		Kind:        kind,
		Name:        kind.Title(),
		GeneratedAt: g.now(),
		Table:       table,
	}, nil
}

func queryTable(ctx context.Context, db *sql.DB, columns []string, query string, scan func(*sql.Rows) ([]interface{}, error)) (Table, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return Table{}, err
	}
	defer rows.Close()

	t := Table{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return Table{}, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}

func nullable(ns sql.NullString) interface{} {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

func nullableTime(nt sql.NullTime) interface{} {
	if !nt.Valid {
		return nil
	}
	return nt.Time
}

func inventoryTable(ctx context.Context, db *sql.DB) (Table, error) {
	query := `
		SELECT name, sku, type, quantity, price, quantity * price AS total_value,
			` + inventory.StockStatusSQL("quantity", "min_stock_level") + ` AS stock_status
		FROM products
		ORDER BY quantity ASC, id ASC
	`
	columns := []string{"name", "sku", "type", "quantity", "price", "total_value", "stock_status"}
	return queryTable(ctx, db, columns, query, func(r *sql.Rows) ([]interface{}, error) {
		var (
			name, sku, status string
			typ               sql.NullString
			quantity          int64
			price, total      float64
		)
		if err := r.Scan(&name, &sku, &typ, &quantity, &price, &total, &status); err != nil {
			return nil, err
		}
		return []interface{}{name, sku, nullable(typ), quantity, price, total, status}, nil
	})
}

func productsTable(ctx context.Context, db *sql.DB) (Table, error) {
	query := `
		SELECT name, sku, type, quantity, price, created_at, updated_at
		FROM products
		ORDER BY created_at DESC, id DESC
	`
	columns := []string{"name", "sku", "type", "quantity", "price", "created_at", "updated_at"}
	return queryTable(ctx, db, columns, query, func(r *sql.Rows) ([]interface{}, error) {
		var (
			name, sku        string
			typ              sql.NullString
			quantity         int64
			price            float64
			created, updated time.Time
		)
		if err := r.Scan(&name, &sku, &typ, &quantity, &price, &created, &updated); err != nil {
			return nil, err
		}
		return []interface{}{name, sku, nullable(typ), quantity, price, created.UTC(), updated.UTC()}, nil
	})
}

func usersTable(ctx context.Context, db *sql.DB) (Table, error) {
	query := `
		SELECT username, email, role, is_active, last_login, created_at
		FROM users
		ORDER BY created_at DESC, id DESC
	`
	columns := []string{"username", "email", "role", "is_active", "last_login", "created_at"}
	return queryTable(ctx, db, columns, query, func(r *sql.Rows) ([]interface{}, error) {
		var (
			username, role string
			email          sql.NullString
			active         bool
			lastLogin      sql.NullTime
			created        time.Time
		)
		if err := r.Scan(&username, &email, &role, &active, &lastLogin, &created); err != nil {
			return nil, err
		}
		return []interface{}{username, nullable(email), role, active, nullableTime(lastLogin), created.UTC()}, nil
	})
}
