// Package storage owns the relational store handle for stockroom.
//
// # Connections
//
// ConnectionManager holds the primary handle (writes and strongly consistent
// reads) and optional read replicas used by the analytics engine. It is built
// once at startup and passed to every component that needs it. Components
// that read from replicas take the cm.Replica method value as a Source so
// each query rotates; stock levels always read the primary:
//
//	cm, err := storage.NewConnectionManager(storage.Config{
//		Driver:     storage.DriverPostgres,
//		PrimaryURL: "postgres://localhost/stockroom?sslmode=disable",
//		MaxConns:   20,
//	})
//	products := inventory.NewStore(cm.Primary())
//	engine := analytics.NewService(cm.Primary(), recorder).WithReplicas(cm.Replica)
//
// # Dialects
//
// PostgreSQL (lib/pq) is the production driver, SQLite (go-sqlite3) backs
// development and tests. Queries shared by both use $N placeholders. SQLite
// numbers $N parameters by first appearance, so every query must introduce
// $1, $2, ... in order. Time windows are computed in Go and bound as
// parameters instead of using dialect-specific date arithmetic.
//
// # Migrations
//
// Migrate applies the embedded migrations for the configured driver, each in
// its own transaction, recording applied versions in schema_migrations.
package storage
