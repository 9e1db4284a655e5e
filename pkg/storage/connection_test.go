package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stockroom/pkg/observability"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestReplica_FallsBackToPrimary(t *testing.T) {
	primary, _ := newMockDB(t)
	cm := NewConnectionManagerFromDB(DriverPostgres, primary)

	assert.Same(t, primary, cm.Replica())
	assert.Same(t, primary, cm.Primary())
	assert.Equal(t, DriverPostgres, cm.Driver())
}

func TestReplica_RoundRobin(t *testing.T) {
	primary, _ := newMockDB(t)
	r1, _ := newMockDB(t)
	r2, _ := newMockDB(t)
	cm := NewConnectionManagerFromDB(DriverPostgres, primary, r1, r2)

	seen := map[*sql.DB]int{}
	for i := 0; i < 10; i++ {
		seen[cm.Replica()]++
	}

	assert.Equal(t, 5, seen[r1])
	assert.Equal(t, 5, seen[r2])
	assert.Zero(t, seen[primary])
}

func TestSource_RotatesPerCall(t *testing.T) {
	primary, _ := newMockDB(t)
	r1, _ := newMockDB(t)
	r2, _ := newMockDB(t)
	cm := NewConnectionManagerFromDB(DriverPostgres, primary, r1, r2)

	var src Source = cm.Replica
	first, second := src(), src()
	assert.NotSame(t, first, second)
	assert.Same(t, primary, Fixed(primary)())
}

func TestHealthCheck(t *testing.T) {
	t.Run("primary down", func(t *testing.T) {
		primary, mock := newMockDB(t)
		mock.ExpectPing().WillReturnError(errors.New("refused"))

		err := NewConnectionManagerFromDB(DriverPostgres, primary).HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary unhealthy")
	})

	t.Run("all replicas down", func(t *testing.T) {
		primary, pm := newMockDB(t)
		replica, rm := newMockDB(t)
		pm.ExpectPing()
		rm.ExpectPing().WillReturnError(errors.New("refused"))

		err := NewConnectionManagerFromDB(DriverPostgres, primary, replica).HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "replica-0")
	})

	t.Run("healthy", func(t *testing.T) {
		primary, pm := newMockDB(t)
		pm.ExpectPing()

		assert.NoError(t, NewConnectionManagerFromDB(DriverPostgres, primary).HealthCheck(context.Background()))
	})
}

func TestNewConnectionManager_SQLite(t *testing.T) {
	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})

	cm, err := NewConnectionManager(context.Background(), Config{
		Driver:      DriverSQLite,
		PrimaryURL:  "file:conn_mgr_test?mode=memory&cache=shared",
		ReplicaURLs: []string{"file:conn_mgr_replica?mode=memory&cache=shared"},
	}, logger)
	require.NoError(t, err)
	defer cm.Close()

	stats := cm.Stats()
	assert.Equal(t, 1, stats.Primary.MaxOpenConnections)
	assert.Len(t, stats.Replicas, 1)
	assert.NoError(t, cm.HealthCheck(context.Background()))

	var folded string
	require.NoError(t, cm.Primary().QueryRow(`SELECT LOWER('CAFÉ Ärger')`).Scan(&folded))
	assert.Equal(t, "café ärger", folded)

	var missing sql.NullString
	require.NoError(t, cm.Primary().QueryRow(`SELECT UPPER(NULL)`).Scan(&missing))
	assert.False(t, missing.Valid)
}

func TestNewConnectionManager_InvalidConfig(t *testing.T) {
	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})

	_, err := NewConnectionManager(context.Background(), Config{Driver: "mysql", PrimaryURL: "x"}, logger)
	assert.Error(t, err)

	_, err = NewConnectionManager(context.Background(), Config{Driver: DriverPostgres}, logger)
	assert.Error(t, err)
}
