// Package analytics records product events and computes the aggregate
// views behind the analytics and admin dashboards.
//
// # Events
//
// Product handlers record view, add and update events as side effects:
//
//	tracker.Record(ctx, productID, analytics.ActionView, &userID)
//
// Events are append-only. Nothing in this package mutates them.
//
// # Reports
//
// Service runs the independent aggregate queries of each view concurrently
// against a read handle and returns the first error:
//
//	report, err := service.ProductAnalytics(ctx, analytics.ParsePeriod("7d"), false)
//
// Windows are computed in Go from the injected clock and passed as query
// parameters, so the same SQL runs on PostgreSQL and SQLite. Low stock is
// always evaluated against current rows.
//
// # Alerts
//
// Alerter lists products at or below their minimum stock level with a
// severity and updates the low-stock gauge.
//
// # Related Packages
//
//   - pkg/inventory: stock classification shared with the SQL here
//   - pkg/activity: recent activity on the dashboard
package analytics
