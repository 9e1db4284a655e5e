package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("Admin").Valid())
}

func TestIdentity(t *testing.T) {
	var missing *Identity
	assert.False(t, missing.Authenticated())

	anon := Anonymous
	assert.False(t, anon.Authenticated())

	id := NewIdentity(&Claims{UserID: 3, Username: "carol", Role: RoleAdmin})
	assert.True(t, id.Authenticated())
	assert.False(t, id.IsAdmin)

	promoted := id.WithRole(RoleAdmin)
	assert.True(t, promoted.IsAdmin)
	assert.True(t, promoted.Authenticated())
	assert.False(t, id.IsAdmin)

	demoted := id.WithRole(RoleUser)
	assert.False(t, demoted.IsAdmin)
	assert.Equal(t, RoleUser, demoted.Role)
}

func TestUserUpdateIsEmpty(t *testing.T) {
	assert.True(t, UserUpdate{}.IsEmpty())
	active := true
	assert.False(t, UserUpdate{IsActive: &active}.IsEmpty())
}
