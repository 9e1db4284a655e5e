// Package storagetest provides migrated in-memory databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stockroom/pkg/storage"
)

var dbCounter int64

// NewSQLite opens a private in-memory SQLite database with the full schema
// applied. It is closed when the test finishes.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on",
		name, atomic.AddInt64(&dbCounter, 1))

	db, err := sql.Open(storage.SQLDriverName(storage.DriverSQLite), dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = storage.Migrate(context.Background(), db, storage.DriverSQLite)
	require.NoError(t, err)

	return db
}
