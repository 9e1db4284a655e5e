package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/inventory"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

const (
	// TopN bounds every ranked list
	TopN = 10
	// RecentUpdateDays is the window of the inventory recent updates list
	RecentUpdateDays = 7
	// DashboardActivity is the number of log entries on the dashboard
	DashboardActivity = 10
)

// ViewedProduct is a product ranked by views
type ViewedProduct struct {
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	ViewCount int64  `json:"view_count"`
}

// AddedProduct is a product ranked by add events
type AddedProduct struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	AddCount int64  `json:"add_count"`
}

// LowStockProduct is a product at or below its minimum level
type LowStockProduct struct {
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	Quantity      int64  `json:"quantity"`
	MinStockLevel int64  `json:"min_stock_level"`
}

// TypeCount is the number of products of one type
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// StockLevelCount is the number of products in one stock bucket
type StockLevelCount struct {
	StockLevel string `json:"stock_level"`
	Count      int64  `json:"count"`
}

// RecentUpdate is a recently modified product
type RecentUpdate struct {
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecentLogin is a user's last login
type RecentLogin struct {
	Username  string    `json:"username"`
	LastLogin time.Time `json:"last_login"`
}

// RoleCount is the number of users holding one role
type RoleCount struct {
	Role  string `json:"role"`
	Count int64  `json:"count"`
}

// DailyActivity is the number of activity log entries on one UTC day
type DailyActivity struct {
	Date          string `json:"date"`
	ActivityCount int64  `json:"activity_count"`
}

// ProductReport is the product analytics view
type ProductReport struct {
	Period                  Period            `json:"period"`
	MostViewedProducts      []ViewedProduct   `json:"mostViewedProducts"`
	MostAddedProducts       []AddedProduct    `json:"mostAddedProducts"`
	LowStockProducts        []LowStockProduct `json:"lowStockProducts"`
	ProductTypeDistribution []TypeCount       `json:"productTypeDistribution"`
}

// InventoryReport is the inventory analytics view. CostValue is only set
// for elevated callers.
type InventoryReport struct {
	TotalValue    float64           `json:"totalValue"`
	AveragePrice  float64           `json:"averagePrice"`
	StockLevels   []StockLevelCount `json:"stockLevels"`
	RecentUpdates []RecentUpdate    `json:"recentUpdates"`
	CostValue     *float64          `json:"costValue,omitempty"`
}

// UserReport is the user analytics view. InactiveUsers is only set for
// elevated callers.
type UserReport struct {
	TotalUsers    int64         `json:"totalUsers"`
	ActiveUsers   int64         `json:"activeUsers"`
	RecentLogins  []RecentLogin `json:"recentLogins"`
	UserRoles     []RoleCount   `json:"userRoles"`
	InactiveUsers *int64        `json:"inactiveUsers,omitempty"`
}

// Dashboard is the admin dashboard summary
type Dashboard struct {
	TotalUsers       int64            `json:"totalUsers"`
	TotalProducts    int64            `json:"totalProducts"`
	LowStockProducts int64            `json:"lowStockProducts"`
	RecentActivity   []activity.Entry `json:"recentActivity"`
}

// AdminReport is the admin analytics view
type AdminReport struct {
	TopProducts  []ViewedProduct `json:"topProducts"`
	UserActivity []DailyActivity `json:"userActivity"`
	ProductTypes []TypeCount     `json:"productTypes"`
	RecentLogins []RecentLogin   `json:"recentLogins"`
}

// Service computes analytics views. Stock level queries read the primary so
// they always see the latest committed quantity; the rest may go to a
// replica.
type Service struct {
	db       *sql.DB
	replicas storage.Source
	recorder storage.Recorder
	metrics  *observability.Metrics
	activity *activity.Logger
	now      func() time.Time
}

// NewService creates an analytics service over the primary db. recorder may
// be nil.
func NewService(db *sql.DB, recorder storage.Recorder) *Service {
	return &Service{
		db:       db,
		replicas: storage.Fixed(db),
		recorder: recorder,
		activity: activity.NewLogger(db, recorder),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics makes Dashboard publish the low-stock count
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// WithReplicas sends queries that do not depend on stock levels to replicas
func (s *Service) WithReplicas(replicas storage.Source) *Service {
	s.replicas = replicas
	return s
}

// WithClock replaces the clock used for windows
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func count(ctx context.Context, db *sql.DB, dest *int64, query string, args ...interface{}) error {
	if err := db.QueryRowContext(ctx, query, args...).Scan(dest); err != nil {
		return fmt.Errorf("failed to count: %w", err)
	}
	return nil
}

// collect runs query and appends one scanned value per row
func collect[T any](ctx context.Context, db *sql.DB, what string, scan func(*sql.Rows, *T) error, query string, args ...interface{}) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", what, err)
	}
	return out, nil
}

const rankedByAction = `
	SELECT p.name, p.sku, COUNT(pa.id) AS event_count
	FROM products p
	JOIN product_analytics pa ON p.id = pa.product_id
	WHERE pa.action_type = $1 AND pa.timestamp >= $2
	GROUP BY p.id, p.name, p.sku
	ORDER BY event_count DESC, p.id ASC
	LIMIT $3
`

func (s *Service) mostViewed(ctx context.Context, since time.Time) ([]ViewedProduct, error) {
	return collect(ctx, s.replicas(), "most viewed products", func(r *sql.Rows, v *ViewedProduct) error {
		return r.Scan(&v.Name, &v.SKU, &v.ViewCount)
	}, rankedByAction, string(ActionView), since, TopN)
}

func (s *Service) mostAdded(ctx context.Context, since time.Time) ([]AddedProduct, error) {
	return collect(ctx, s.replicas(), "most added products", func(r *sql.Rows, v *AddedProduct) error {
		return r.Scan(&v.Name, &v.SKU, &v.AddCount)
	}, rankedByAction, string(ActionAdd), since, TopN)
}

func (s *Service) lowStock(ctx context.Context, limit int) ([]LowStockProduct, error) {
	query := `
		SELECT name, sku, quantity, min_stock_level
		FROM products
		WHERE ` + inventory.LowStockSQL("quantity", "min_stock_level") + `
		ORDER BY quantity ASC, id ASC
		LIMIT $1
	`
	return collect(ctx, s.db, "low stock products", func(r *sql.Rows, v *LowStockProduct) error {
		return r.Scan(&v.Name, &v.SKU, &v.Quantity, &v.MinStockLevel)
	}, query, limit)
}

func (s *Service) typeDistribution(ctx context.Context) ([]TypeCount, error) {
	query := `
		SELECT type, COUNT(*) AS type_count
		FROM products
		WHERE type IS NOT NULL
		GROUP BY type
		ORDER BY type_count DESC, type ASC
	`
	return collect(ctx, s.replicas(), "product types", func(r *sql.Rows, v *TypeCount) error {
		return r.Scan(&v.Type, &v.Count)
	}, query)
}

func (s *Service) recentLogins(ctx context.Context) ([]RecentLogin, error) {
	query := `
		SELECT username, last_login
		FROM users
		WHERE last_login IS NOT NULL
		ORDER BY last_login DESC, id DESC
		LIMIT $1
	`
	return collect(ctx, s.replicas(), "recent logins", func(r *sql.Rows, v *RecentLogin) error {
		return r.Scan(&v.Username, &v.LastLogin)
	}, query, TopN)
}

// ProductAnalytics ranks products by views and adds within period and lists
// low stock and type distribution
func (s *Service) ProductAnalytics(ctx context.Context, period Period) (report *ProductReport, err error) {
	defer storage.Observe(s.recorder, "analytics.products", time.Now(), &err)

	since := period.Since(s.now())
	report = &ProductReport{Period: period}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.MostViewedProducts, err = s.mostViewed(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		report.MostAddedProducts, err = s.mostAdded(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		report.LowStockProducts, err = s.lowStock(gctx, TopN)
		return err
	})
	g.Go(func() (err error) {
		report.ProductTypeDistribution, err = s.typeDistribution(gctx)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// InventoryAnalytics summarizes stock value and levels. elevated adds the
// cost value of stock on hand.
func (s *Service) InventoryAnalytics(ctx context.Context, elevated bool) (report *InventoryReport, err error) {
	defer storage.Observe(s.recorder, "analytics.inventory", time.Now(), &err)

	report = &InventoryReport{}
	recentSince := s.now().AddDate(0, 0, -RecentUpdateDays)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var total sql.NullFloat64
		if err := s.db.QueryRowContext(gctx,
			`SELECT SUM(quantity * price) FROM products WHERE quantity > 0`,
		).Scan(&total); err != nil {
			return fmt.Errorf("failed to sum inventory value: %w", err)
		}
		report.TotalValue = total.Float64
		return nil
	})
	g.Go(func() error {
		var avg sql.NullFloat64
		if err := s.replicas().QueryRowContext(gctx, `SELECT AVG(price) FROM products`).Scan(&avg); err != nil {
			return fmt.Errorf("failed to average price: %w", err)
		}
		report.AveragePrice = avg.Float64
		return nil
	})
	g.Go(func() (err error) {
		query := `
			SELECT ` + inventory.StockLevelSQL("quantity", "min_stock_level") + ` AS stock_level, COUNT(*) AS level_count
			FROM products
			GROUP BY stock_level
			ORDER BY stock_level ASC
		`
		report.StockLevels, err = collect(gctx, s.db, "stock levels", func(r *sql.Rows, v *StockLevelCount) error {
			return r.Scan(&v.StockLevel, &v.Count)
		}, query)
		return err
	})
	g.Go(func() (err error) {
		query := `
			SELECT name, sku, quantity, updated_at
			FROM products
			WHERE updated_at >= $1
			ORDER BY updated_at DESC, id DESC
			LIMIT $2
		`
		report.RecentUpdates, err = collect(gctx, s.replicas(), "recent updates", func(r *sql.Rows, v *RecentUpdate) error {
			return r.Scan(&v.Name, &v.SKU, &v.Quantity, &v.UpdatedAt)
		}, query, recentSince, TopN)
		return err
	})
	if elevated {
		g.Go(func() error {
			var cost sql.NullFloat64
			if err := s.db.QueryRowContext(gctx,
				`SELECT SUM(quantity * cost_price) FROM products WHERE quantity > 0 AND cost_price IS NOT NULL`,
			).Scan(&cost); err != nil {
				return fmt.Errorf("failed to sum inventory cost: %w", err)
			}
			v := cost.Float64
			report.CostValue = &v
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// UserAnalytics counts users and logins within period. elevated adds the
// number of disabled accounts.
func (s *Service) UserAnalytics(ctx context.Context, period Period, elevated bool) (report *UserReport, err error) {
	defer storage.Observe(s.recorder, "analytics.users", time.Now(), &err)

	since := period.Since(s.now())
	report = &UserReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return count(gctx, s.replicas(), &report.TotalUsers, `SELECT COUNT(*) FROM users`)
	})
	g.Go(func() error {
		return count(gctx, s.replicas(), &report.ActiveUsers, `SELECT COUNT(*) FROM users WHERE last_login >= $1`, since)
	})
	g.Go(func() (err error) {
		report.RecentLogins, err = s.recentLogins(gctx)
		return err
	})
	g.Go(func() (err error) {
		query := `SELECT role, COUNT(*) AS role_count FROM users GROUP BY role ORDER BY role ASC`
		report.UserRoles, err = collect(gctx, s.replicas(), "user roles", func(r *sql.Rows, v *RoleCount) error {
			return r.Scan(&v.Role, &v.Count)
		}, query)
		return err
	})
	if elevated {
		g.Go(func() error {
			var n int64
			if err := count(gctx, s.replicas(), &n, `SELECT COUNT(*) FROM users WHERE is_active = $1`, false); err != nil {
				return err
			}
			report.InactiveUsers = &n
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// Dashboard returns headline counts and the latest activity
func (s *Service) Dashboard(ctx context.Context) (dash *Dashboard, err error) {
	defer storage.Observe(s.recorder, "analytics.dashboard", time.Now(), &err)

	dash = &Dashboard{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return count(gctx, s.replicas(), &dash.TotalUsers, `SELECT COUNT(*) FROM users`)
	})
	g.Go(func() error {
		return count(gctx, s.replicas(), &dash.TotalProducts, `SELECT COUNT(*) FROM products`)
	})
	g.Go(func() error {
		return count(gctx, s.db, &dash.LowStockProducts,
			`SELECT COUNT(*) FROM products WHERE `+inventory.LowStockSQL("quantity", "min_stock_level"))
	})
	g.Go(func() (err error) {
		dash.RecentActivity, err = s.activity.Recent(gctx, DashboardActivity)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	s.metrics.SetLowStock(dash.LowStockProducts)
	return dash, nil
}

// AdminAnalytics ranks products by all-time views and counts activity per
// day within period
func (s *Service) AdminAnalytics(ctx context.Context, period Period) (report *AdminReport, err error) {
	defer storage.Observe(s.recorder, "analytics.admin", time.Now(), &err)

	since := period.Since(s.now())
	report = &AdminReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		query := `
			SELECT p.name, p.sku, COUNT(pa.id) AS view_count
			FROM products p
			LEFT JOIN product_analytics pa ON p.id = pa.product_id AND pa.action_type = $1
			GROUP BY p.id, p.name, p.sku
			ORDER BY view_count DESC, p.id ASC
			LIMIT $2
		`
		report.TopProducts, err = collect(gctx, s.replicas(), "top products", func(r *sql.Rows, v *ViewedProduct) error {
			return r.Scan(&v.Name, &v.SKU, &v.ViewCount)
		}, query, string(ActionView), TopN)
		return err
	})
	g.Go(func() (err error) {
		query := `
			SELECT DATE(al.timestamp) AS day, COUNT(*) AS activity_count
			FROM activity_logs al
			WHERE al.timestamp >= $1
			GROUP BY DATE(al.timestamp)
			ORDER BY day DESC
		`
		report.UserActivity, err = collect(gctx, s.replicas(), "daily activity", func(r *sql.Rows, v *DailyActivity) error {
			if err := r.Scan(&v.Date, &v.ActivityCount); err != nil {
				return err
			}
			// PostgreSQL dates arrive as RFC 3339 timestamps
			if len(v.Date) > len("2006-01-02") {
				v.Date = v.Date[:len("2006-01-02")]
			}
			return nil
		}, query, since)
		return err
	})
	g.Go(func() (err error) {
		report.ProductTypes, err = s.typeDistribution(gctx)
		return err
	})
	g.Go(func() (err error) {
		report.RecentLogins, err = s.recentLogins(gctx)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
