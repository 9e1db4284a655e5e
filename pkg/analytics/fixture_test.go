package analytics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stockroom/pkg/storage/storagetest"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func ago(d time.Duration) time.Time { return testNow.Add(-d) }

const day = 24 * time.Hour

type fixture struct {
	t  *testing.T
	db *sql.DB
}

func newFixture(t *testing.T) fixture {
	return fixture{t: t, db: storagetest.NewSQLite(t)}
}

func (f fixture) insert(query string, args ...interface{}) int64 {
	f.t.Helper()
	var id int64
	require.NoError(f.t, f.db.QueryRowContext(context.Background(), query+" RETURNING id", args...).Scan(&id))
	return id
}

func (f fixture) user(username, role string, active bool, lastLogin *time.Time) int64 {
	f.t.Helper()
	return f.insert(
		`INSERT INTO users (username, password_hash, role, is_active, last_login, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		username, "hash", role, active, lastLogin, ago(90*day),
	)
}

type productSeed struct {
	name, sku string
	typ       *string
	quantity  int64
	min       int64
	price     float64
	cost      *float64
	updatedAt time.Time
}

func (f fixture) product(p productSeed) int64 {
	f.t.Helper()
	return f.insert(
		`INSERT INTO products (name, sku, type, quantity, min_stock_level, price, cost_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.name, p.sku, p.typ, p.quantity, p.min, p.price, p.cost, ago(60*day), p.updatedAt,
	)
}

func (f fixture) event(productID int64, action Action, at time.Time) {
	f.t.Helper()
	f.insert(
		`INSERT INTO product_analytics (product_id, action_type, timestamp) VALUES ($1, $2, $3)`,
		productID, string(action), at,
	)
}

func (f fixture) activity(userID *int64, action string, at time.Time) {
	f.t.Helper()
	f.insert(
		`INSERT INTO activity_logs (user_id, action, timestamp) VALUES ($1, $2, $3)`,
		userID, action, at,
	)
}

func ptr[T any](v T) *T { return &v }

// catalog seeds three products:
//
//	alpha  qty 100 min 10 price 2.5  cost 1.5  widget  updated 1h ago
//	bravo  qty 10  min 10 price 4    cost 3    widget  updated 10d ago
//	charly qty 0   min 10 price 10   cost 8    none    updated 2d ago
func (f fixture) catalog() (alpha, bravo, charly int64) {
	alpha = f.product(productSeed{"alpha", "A-1", ptr("widget"), 100, 10, 2.5, ptr(1.5), ago(time.Hour)})
	bravo = f.product(productSeed{"bravo", "B-1", ptr("widget"), 10, 10, 4, ptr(3.0), ago(10 * day)})
	charly = f.product(productSeed{"charly", "C-1", nil, 0, 10, 10, ptr(8.0), ago(2 * day)})
	return alpha, bravo, charly
}
