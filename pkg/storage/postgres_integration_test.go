//go:build integration

package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("stockroom_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open(DriverPostgres, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))

	return db
}

func TestPostgres_MigrateAndConstraints(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	ran, err := Migrate(ctx, db, DriverPostgres)
	require.NoError(t, err)
	assert.NotEmpty(t, ran)

	ran, err = Migrate(ctx, db, DriverPostgres)
	require.NoError(t, err)
	assert.Empty(t, ran)

	var id int64
	require.NoError(t, db.QueryRowContext(ctx,
		"INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id", "alice", "x").Scan(&id))
	assert.Positive(t, id)

	_, err = db.ExecContext(ctx, "INSERT INTO users (username, password_hash) VALUES ($1, $2)", "alice", "y")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.ExecContext(ctx, "INSERT INTO products (name, sku, price, quantity) VALUES ($1, $2, $3, $4)", "Widget", "W-1", 1.5, -1)
	assert.Error(t, err)
}
