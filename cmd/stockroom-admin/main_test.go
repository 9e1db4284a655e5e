package main

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/stockroom/pkg/apperr"
	"github.com/platinummonkey/stockroom/pkg/auth"
	"github.com/platinummonkey/stockroom/pkg/storage/storagetest"
)

func newAccounts(t *testing.T) *auth.Service {
	t.Helper()
	db := storagetest.NewSQLite(t)
	return auth.NewService(auth.NewUserStore(db, nil), auth.NewBcryptHasher(bcrypt.MinCost), nil, nil)
}

func TestCreateAdmin(t *testing.T) {
	accounts := newAccounts(t)
	logger, hook := test.NewNullLogger()
	ctx := context.Background()

	err := runCommand(ctx, accounts, []string{"create-admin", "-username", "root", "-password", "adminpass", "-email", "root@example.com"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "Admin account created", hook.LastEntry().Message)

	user, err := accounts.Store().GetByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, user.Role)
	require.NotNil(t, user.Email)
	assert.Equal(t, "root@example.com", *user.Email)

	// Running again leaves the account alone
	err = runCommand(ctx, accounts, []string{"create-admin", "-username", "root", "-password", "otherpass"}, logger)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCreateAdmin_PasswordFromEnv(t *testing.T) {
	t.Setenv(adminPasswordEnv, "from-env-pass")
	accounts := newAccounts(t)
	logger, _ := test.NewNullLogger()

	require.NoError(t, runCommand(context.Background(), accounts, []string{"create-admin", "-username", "ops"}, logger))
	user, err := accounts.Store().GetByUsername(context.Background(), "ops")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("from-env-pass")))
}

func TestSetRole(t *testing.T) {
	accounts := newAccounts(t)
	logger, hook := test.NewNullLogger()
	ctx := context.Background()

	_, err := accounts.Register(ctx, auth.RegisterRequest{Username: "alice", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, runCommand(ctx, accounts, []string{"promote", "-username", "alice"}, logger))
	assert.Equal(t, auth.RoleAdmin, hook.LastEntry().Data["role"])

	require.NoError(t, runCommand(ctx, accounts, []string{"demote", "-username", "alice"}, logger))
	user, err := accounts.Store().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, user.Role)

	err = runCommand(ctx, accounts, []string{"promote", "-username", "nobody"}, logger)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRunCommand_Usage(t *testing.T) {
	accounts := newAccounts(t)
	logger, _ := test.NewNullLogger()

	tests := [][]string{
		{"delete-everything"},
		{"create-admin"},
		{"create-admin", "-username", "root"},
		{"promote"},
		{"demote", "-bogus"},
	}
	t.Setenv(adminPasswordEnv, "")
	for _, args := range tests {
		err := runCommand(context.Background(), accounts, args, logger)
		assert.ErrorIs(t, err, errUsage, "%v", args)
	}
}
