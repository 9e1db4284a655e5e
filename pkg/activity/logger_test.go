package activity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stockroom/pkg/pagination"
	"github.com/platinummonkey/stockroom/pkg/storage/storagetest"
)

func insertUser(t *testing.T, ctx context.Context, l *Logger, username string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, l.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP) RETURNING id`,
		username, "hash", "user", true,
	).Scan(&id))
	return id
}

func TestLogger_LogAndList(t *testing.T) {
	ctx := context.Background()
	l := NewLogger(storagetest.NewSQLite(t), nil)
	alice := insertUser(t, ctx, l, "alice")

	base := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		details := fmt.Sprintf("step %d", i)
		require.NoError(t, l.Log(ctx, &Entry{
			UserID:    &alice,
			Action:    ActionProductCreate,
			Details:   &details,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	system := &Entry{Action: ActionReportExport, Timestamp: base.Add(time.Hour)}
	require.NoError(t, l.Log(ctx, system))
	assert.Positive(t, system.ID)

	entries, env, err := l.List(ctx, pagination.New(1, 2, DefaultPerPage))
	require.NoError(t, err)
	assert.Equal(t, int64(4), env.Total)
	assert.Equal(t, int64(2), env.TotalPages)
	require.Len(t, entries, 2)

	assert.Equal(t, ActionReportExport, entries[0].Action)
	assert.Nil(t, entries[0].UserID)
	assert.Nil(t, entries[0].Username)

	assert.Equal(t, ActionProductCreate, entries[1].Action)
	require.NotNil(t, entries[1].Username)
	assert.Equal(t, "alice", *entries[1].Username)
	require.NotNil(t, entries[1].Details)
	assert.Equal(t, "step 2", *entries[1].Details)
	assert.True(t, base.Add(2*time.Minute).Equal(entries[1].Timestamp))

	recent, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
}

func TestLogger_LogRequiresAction(t *testing.T) {
	l := NewLogger(storagetest.NewSQLite(t), nil)
	assert.Error(t, l.Log(context.Background(), &Entry{}))
}

func TestLogger_RecordFromRequest(t *testing.T) {
	ctx := context.Background()
	l := NewLogger(storagetest.NewSQLite(t), nil)
	bob := insertUser(t, ctx, l, "bob")

	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.2")
	req.Header.Set("User-Agent", "stockroom-test/1.0")

	l.Record(ctx, FromRequest(req), &bob, ActionProductUpdateQuantity, "Updated product 3 quantity to 9")

	entries, err := l.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	require.NotNil(t, e.IPAddress)
	assert.Equal(t, "198.51.100.4", *e.IPAddress)
	require.NotNil(t, e.UserAgent)
	assert.Equal(t, "stockroom-test/1.0", *e.UserAgent)
	require.NotNil(t, e.UserID)
	assert.Equal(t, bob, *e.UserID)
}

func TestFromRequest_RemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:4444"
	info := FromRequest(req)
	assert.Equal(t, "2001:db8::1", info.IPAddress)
	assert.Empty(t, info.UserAgent)
}

func TestLogger_RecordSwallowsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO activity_logs`).WillReturnError(errors.New("disk full"))

	l := NewLogger(db, nil)
	assert.NotPanics(t, func() {
		l.Record(context.Background(), RequestInfo{IPAddress: "127.0.0.1"}, nil, ActionUserLogin, "")
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
