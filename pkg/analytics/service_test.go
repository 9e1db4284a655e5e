package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

func newTestService(f fixture) *Service {
	return NewService(f.db, nil).WithClock(fixedClock)
}

func TestService_ProductAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alpha, bravo, charly := f.catalog()

	for i := 0; i < 3; i++ {
		f.event(alpha, ActionView, ago(time.Duration(i+1)*time.Hour))
	}
	f.event(bravo, ActionView, ago(day))
	for i := 0; i < 4; i++ {
		f.event(bravo, ActionView, ago(20*day))
	}
	f.event(charly, ActionView, ago(120*day))
	f.event(charly, ActionAdd, ago(3*day))
	f.event(alpha, ActionAdd, ago(45*day))

	svc := newTestService(f)

	week, err := svc.ProductAnalytics(ctx, Period7d)
	require.NoError(t, err)
	assert.Equal(t, Period7d, week.Period)
	assert.Equal(t, []ViewedProduct{
		{Name: "alpha", SKU: "A-1", ViewCount: 3},
		{Name: "bravo", SKU: "B-1", ViewCount: 1},
	}, week.MostViewedProducts)
	assert.Equal(t, []AddedProduct{{Name: "charly", SKU: "C-1", AddCount: 1}}, week.MostAddedProducts)

	month, err := svc.ProductAnalytics(ctx, Period30d)
	require.NoError(t, err)
	assert.Equal(t, []ViewedProduct{
		{Name: "bravo", SKU: "B-1", ViewCount: 5},
		{Name: "alpha", SKU: "A-1", ViewCount: 3},
	}, month.MostViewedProducts)

	quarter, err := svc.ProductAnalytics(ctx, Period90d)
	require.NoError(t, err)
	assert.Len(t, quarter.MostAddedProducts, 2)

	assert.Equal(t, []LowStockProduct{
		{Name: "charly", SKU: "C-1", Quantity: 0, MinStockLevel: 10},
		{Name: "bravo", SKU: "B-1", Quantity: 10, MinStockLevel: 10},
	}, week.LowStockProducts)
	assert.Equal(t, []TypeCount{{Type: "widget", Count: 2}}, week.ProductTypeDistribution)
}

func TestService_ProductAnalytics_Empty(t *testing.T) {
	report, err := newTestService(newFixture(t)).ProductAnalytics(context.Background(), DefaultPeriod)
	require.NoError(t, err)
	assert.NotNil(t, report.MostViewedProducts)
	assert.Empty(t, report.MostViewedProducts)
	assert.Empty(t, report.LowStockProducts)
}

func TestService_LowStockFollowsLatestQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alpha, _, _ := f.catalog()
	svc := newTestService(f)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dash.LowStockProducts)

	_, err = f.db.Exec(`UPDATE products SET quantity = $1 WHERE id = $2`, 3, alpha)
	require.NoError(t, err)

	dash, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dash.LowStockProducts)
}

func TestService_InventoryAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.catalog()
	svc := newTestService(f)

	report, err := svc.InventoryAnalytics(ctx, false)
	require.NoError(t, err)
	assert.InDelta(t, 290.0, report.TotalValue, 1e-9)
	assert.InDelta(t, 5.5, report.AveragePrice, 1e-9)
	assert.Equal(t, []StockLevelCount{
		{StockLevel: "High Stock", Count: 1},
		{StockLevel: "Low Stock", Count: 1},
		{StockLevel: "Out of Stock", Count: 1},
	}, report.StockLevels)
	require.Len(t, report.RecentUpdates, 2)
	assert.Equal(t, "alpha", report.RecentUpdates[0].Name)
	assert.Equal(t, "charly", report.RecentUpdates[1].Name)
	assert.True(t, ago(time.Hour).Equal(report.RecentUpdates[0].UpdatedAt))
	assert.Nil(t, report.CostValue)

	elevated, err := svc.InventoryAnalytics(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, elevated.CostValue)
	assert.InDelta(t, 180.0, *elevated.CostValue, 1e-9)
}

func TestService_InventoryAnalytics_NoProducts(t *testing.T) {
	report, err := newTestService(newFixture(t)).InventoryAnalytics(context.Background(), true)
	require.NoError(t, err)
	assert.Zero(t, report.TotalValue)
	assert.Zero(t, report.AveragePrice)
	assert.Empty(t, report.StockLevels)
	require.NotNil(t, report.CostValue)
	assert.Zero(t, *report.CostValue)
}

func TestService_UserAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.user("alice", "user", true, ptr(ago(2*day)))
	f.user("bob", "user", true, ptr(ago(20*day)))
	f.user("carol", "admin", false, nil)
	svc := newTestService(f)

	week, err := svc.UserAnalytics(ctx, Period7d, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), week.TotalUsers)
	assert.Equal(t, int64(1), week.ActiveUsers)
	assert.Nil(t, week.InactiveUsers)
	require.Len(t, week.RecentLogins, 2)
	assert.Equal(t, "alice", week.RecentLogins[0].Username)
	assert.Equal(t, "bob", week.RecentLogins[1].Username)
	assert.Equal(t, []RoleCount{{Role: "admin", Count: 1}, {Role: "user", Count: 2}}, week.UserRoles)

	month, err := svc.UserAnalytics(ctx, Period30d, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), month.ActiveUsers)
	require.NotNil(t, month.InactiveUsers)
	assert.Equal(t, int64(1), *month.InactiveUsers)
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.catalog()
	alice := f.user("alice", "user", true, nil)
	f.user("root", "admin", true, nil)
	for i := 0; i < 12; i++ {
		f.activity(&alice, "USER_LOGIN", ago(time.Duration(i)*time.Minute))
	}
	f.activity(nil, "REPORT_EXPORT", ago(time.Hour))

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	dash, err := newTestService(f).WithMetrics(metrics).Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), dash.TotalUsers)
	assert.Equal(t, int64(3), dash.TotalProducts)
	assert.Equal(t, int64(2), dash.LowStockProducts)
	require.Len(t, dash.RecentActivity, DashboardActivity)
	require.NotNil(t, dash.RecentActivity[0].Username)
	assert.Equal(t, "alice", *dash.RecentActivity[0].Username)
	assert.True(t, testNow.Equal(dash.RecentActivity[0].Timestamp))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ProductsLowStock))
}

func TestService_AdminAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alpha, bravo, _ := f.catalog()
	f.event(alpha, ActionView, ago(time.Hour))
	f.event(bravo, ActionView, ago(2*time.Hour))
	f.event(bravo, ActionView, ago(200*day))
	f.event(alpha, ActionAdd, ago(time.Hour))

	f.activity(nil, "USER_LOGIN", ago(time.Hour))
	f.activity(nil, "USER_LOGIN", ago(2*time.Hour))
	f.activity(nil, "PRODUCT_CREATE", ago(3*day))
	f.activity(nil, "PRODUCT_CREATE", ago(40*day))

	report, err := newTestService(f).AdminAnalytics(ctx, Period30d)
	require.NoError(t, err)

	assert.Equal(t, []ViewedProduct{
		{Name: "bravo", SKU: "B-1", ViewCount: 2},
		{Name: "alpha", SKU: "A-1", ViewCount: 1},
		{Name: "charly", SKU: "C-1", ViewCount: 0},
	}, report.TopProducts)
	assert.Equal(t, []DailyActivity{
		{Date: "2024-06-15", ActivityCount: 2},
		{Date: "2024-06-12", ActivityCount: 1},
	}, report.UserActivity)
	assert.Equal(t, []TypeCount{{Type: "widget", Count: 2}}, report.ProductTypes)
	assert.Empty(t, report.RecentLogins)
}

func TestService_FirstErrorAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnError(errors.New("replica down"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM activity_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	dash, err := NewService(db, nil).Dashboard(context.Background())
	assert.Error(t, err)
	assert.Nil(t, dash)
}

func TestService_StockReadsUsePrimary(t *testing.T) {
	ctx := context.Background()
	primary := newFixture(t)
	alpha, _, _ := primary.catalog()

	// The replica lags: it has a user but has not seen any products yet.
	replica := newFixture(t)
	replica.user("lagging", "user", true, nil)

	svc := NewService(primary.db, nil).WithReplicas(storage.Fixed(replica.db)).WithClock(fixedClock)

	dash, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dash.LowStockProducts)
	assert.Equal(t, int64(0), dash.TotalProducts)
	assert.Equal(t, int64(1), dash.TotalUsers)

	_, err = primary.db.ExecContext(ctx, `UPDATE products SET quantity = 0 WHERE id = $1`, alpha)
	require.NoError(t, err)

	dash, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dash.LowStockProducts)

	products, err := svc.ProductAnalytics(ctx, Period30d)
	require.NoError(t, err)
	assert.Len(t, products.LowStockProducts, 3)
	assert.Empty(t, products.ProductTypeDistribution)

	inv, err := svc.InventoryAnalytics(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []StockLevelCount{{StockLevel: "Low Stock", Count: 1}, {StockLevel: "Out of Stock", Count: 2}}, inv.StockLevels)
	assert.Empty(t, inv.RecentUpdates)
}
