package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(msg string) Check {
	return func(context.Context) error { return errors.New(msg) }
}

func passing(context.Context) error { return nil }

func TestHealthChecker_Aggregation(t *testing.T) {
	tests := []struct {
		name    string
		checker *HealthChecker
		want    string
	}{
		{"no dependencies", NewHealthChecker("test"), StatusHealthy},
		{"all passing", NewHealthChecker("test").Require("database", passing).Optional("redis", passing), StatusHealthy},
		{"optional down", NewHealthChecker("test").Require("database", passing).Optional("redis", failing("refused")), StatusDegraded},
		{"required down", NewHealthChecker("test").Require("database", failing("refused")).Optional("redis", passing), StatusUnhealthy},
		{"both down", NewHealthChecker("test").Require("database", failing("a")).Optional("redis", failing("b")), StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := tt.checker.Check(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, "test", status.Version)
			assert.Len(t, status.Dependencies, len(tt.checker.deps))
		})
	}
}

func TestHealthChecker_ReadinessDatabaseDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	checker := NewHealthChecker("test").Require("database", db.PingContext)

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	assert.Equal(t, "connection refused", body.Dependencies["database"].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthChecker_ReadinessDegradedIsReady(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	checker := NewHealthChecker("test").
		Require("database", passing).
		Optional("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })

	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)

	mr.Close()
	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusDegraded, body.Status)
	assert.Equal(t, StatusUnhealthy, body.Dependencies["redis"].Status)
}

func TestPoolCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	check := PoolCheck(db)
	assert.NoError(t, check(context.Background()))

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	assert.EqualError(t, check(context.Background()), "connection pool exhausted")

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
	assert.NoError(t, check(context.Background()))
}

func TestRegisterHealthRoutes_Liveness(t *testing.T) {
	checker := NewHealthChecker("test").Require("database", failing("down"))
	checker.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, checker)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","timestamp":"2026-01-02T03:04:05Z"}`, rec.Body.String())
}
