package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is a user's privilege level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a registered account
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Email        *string    `json:"email"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser is the input for UserStore.Create
type NewUser struct {
	Username     string
	PasswordHash string
	Email        *string
	Role         Role
}

// UserUpdate is a partial update; nil fields are left unchanged
type UserUpdate struct {
	Role     *Role `json:"role"`
	IsActive *bool `json:"is_active"`
}

// IsEmpty reports whether no field is set
func (u UserUpdate) IsEmpty() bool {
	return u.Role == nil && u.IsActive == nil
}

// Claims are the signed contents of a session token
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the caller attached to a request context
type Identity struct {
	UserID   int64
	Username string
	// Role is the token claim until an admin check replaces it with the
	// stored role
	Role    Role
	IsAdmin bool

	authenticated bool
}

// Anonymous is the identity of a caller without a valid token
var Anonymous = Identity{}

// NewIdentity builds an authenticated identity from verified claims
func NewIdentity(c *Claims) *Identity {
	return &Identity{
		UserID:        c.UserID,
		Username:      c.Username,
		Role:          c.Role,
		authenticated: true,
	}
}

// Authenticated reports whether the identity came from a verified token
func (i *Identity) Authenticated() bool {
	return i != nil && i.authenticated
}

// WithRole returns a copy carrying the authoritative role
func (i *Identity) WithRole(role Role) *Identity {
	cp := *i
	cp.Role = role
	cp.IsAdmin = role == RoleAdmin
	return &cp
}
