package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stockroom/pkg/apperr"
	"github.com/platinummonkey/stockroom/pkg/pagination"
	"github.com/platinummonkey/stockroom/pkg/storage/storagetest"
)

func newTestStore(t *testing.T) *UserStore {
	t.Helper()
	return NewUserStore(storagetest.NewSQLite(t), nil)
}

func TestUserStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	email := "alice@example.com"
	id, err := store.Create(ctx, NewUser{Username: "alice", PasswordHash: "hash", Email: &email})
	require.NoError(t, err)
	assert.Positive(t, id)

	u, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.Nil(t, u.LastLogin)
	require.NotNil(t, u.Email)
	assert.Equal(t, email, *u.Email)

	byID, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = store.GetByID(ctx, id+100)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = store.GetByUsername(ctx, "nobody")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, NewUser{Username: "alice", PasswordHash: "hash"})
	require.NoError(t, err)

	_, err = store.Create(ctx, NewUser{Username: "alice", PasswordHash: "other"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserStore_RoleOfIsLive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Create(ctx, NewUser{Username: "carol", PasswordHash: "hash", Role: RoleAdmin})
	require.NoError(t, err)

	role, err := store.RoleOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	demoted := RoleUser
	require.NoError(t, store.Update(ctx, id, UserUpdate{Role: &demoted}))

	role, err = store.RoleOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	inactive := false
	require.NoError(t, store.Update(ctx, id, UserUpdate{IsActive: &inactive}))
	_, err = store.RoleOf(ctx, id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = store.RoleOf(ctx, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserStore_Update(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Create(ctx, NewUser{Username: "bob", PasswordHash: "hash"})
	require.NoError(t, err)

	err = store.Update(ctx, id, UserUpdate{})
	require.Error(t, err)
	assert.Equal(t, "No fields to update", err.Error())

	bogus := Role("root")
	err = store.Update(ctx, id, UserUpdate{Role: &bogus})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	admin := RoleAdmin
	active := false
	require.NoError(t, store.Update(ctx, id, UserUpdate{Role: &admin, IsActive: &active}))

	u, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.False(t, u.IsActive)

	err = store.Update(ctx, id+1, UserUpdate{Role: &admin})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserStore_TouchLastLogin(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Create(ctx, NewUser{Username: "dave", PasswordHash: "hash"})
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.TouchLastLogin(ctx, id, at))

	u, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
	assert.True(t, at.Equal(*u.LastLogin))
}

func TestUserStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := store.Create(ctx, NewUser{Username: fmt.Sprintf("user%d", i), PasswordHash: "hash"})
		require.NoError(t, err)
	}

	users, total, err := store.List(ctx, pagination.New(2, 2, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, users, 2)
	assert.Equal(t, "user2", users[0].Username)
	assert.Equal(t, "user1", users[1].Username)

	users, _, err = store.List(ctx, pagination.New(4, 2, 10))
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	exists, err := store.Exists(ctx, "erin")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Create(ctx, NewUser{Username: "erin", PasswordHash: "hash"})
	require.NoError(t, err)

	exists, err = store.Exists(ctx, "erin")
	require.NoError(t, err)
	assert.True(t, exists)
}

type recordedOp struct {
	operation string
	err       error
}

type fakeRecorder struct {
	ops []recordedOp
}

func (r *fakeRecorder) ObserveDBOperation(operation string, _ time.Duration, err error) {
	r.ops = append(r.ops, recordedOp{operation: operation, err: err})
}

func TestUserStore_RecordsOperations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := &fakeRecorder{}
	store := NewUserStore(db, rec)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT role FROM users WHERE id = \$1`).
		WithArgs(int64(7), true).
		WillReturnError(fmt.Errorf("connection reset"))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = store.RoleOf(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	require.Len(t, rec.ops, 2)
	assert.Equal(t, "users.count", rec.ops[0].operation)
	assert.NoError(t, rec.ops[0].err)
	assert.Equal(t, "users.role_of", rec.ops[1].operation)
	assert.Error(t, rec.ops[1].err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
