package auth

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/platinummonkey/stockroom/pkg/apperr"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// RegisterRequest is the body of a registration
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of a login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginUser is the public view of the user returned on login
type LoginUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// LoginResult is returned on successful login
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"-"`
	User        LoginUser `json:"user"`
}

// Service implements registration, login and admin bootstrap
type Service struct {
	store  *UserStore
	hasher Hasher
	tokens *TokenService
	clock  func() time.Time
}

// NewService creates an account service. clock defaults to time.Now.
func NewService(store *UserStore, hasher Hasher, tokens *TokenService, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{store: store, hasher: hasher, tokens: tokens, clock: clock}
}

// Store returns the underlying user store
func (s *Service) Store() *UserStore {
	return s.store
}

func validateCredentials(username, password string) error {
	if username == "" || password == "" {
		return apperr.Validation("Username and password are required")
	}
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return apperr.Validationf("Username must be at least %d characters long", MinUsernameLength)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperr.Validationf("Password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

// Register creates an account with the user role and returns its id
func (s *Service) Register(ctx context.Context, req RegisterRequest) (int64, error) {
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return 0, err
	}

	exists, err := s.store.Exists(ctx, req.Username)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, apperr.Conflict("User already exists")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return 0, err
	}

	return s.store.Create(ctx, NewUser{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         RoleUser,
	})
}

// Login checks credentials and issues a session token. Unknown usernames and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperr.Validation("Username and password are required")
	}

	invalid := apperr.Unauthorized(apperr.CodeInvalidCredentials, "Invalid credentials")

	user, err := s.store.GetByUsername(ctx, req.Username)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, apperr.Internal("failed to verify credentials", err)
	}
	if !ok {
		return nil, invalid
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized(apperr.CodeAccountDisabled, "Account is disabled")
	}

	if err := s.store.TouchLastLogin(ctx, user.ID, s.clock()); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User: LoginUser{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
	}, nil
}

// BootstrapAdmin creates an admin account unless username already exists,
// in which case the existing id is returned with created false
func (s *Service) BootstrapAdmin(ctx context.Context, username, password string, email *string) (id int64, created bool, err error) {
	if err := validateCredentials(username, password); err != nil {
		return 0, false, err
	}

	existing, err := s.store.GetByUsername(ctx, username)
	if err == nil {
		return existing.ID, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return 0, false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, false, err
	}

	id, err = s.store.Create(ctx, NewUser{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         RoleAdmin,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create admin %q: %w", username, err)
	}
	return id, true, nil
}

// SetRole changes the role of username
func (s *Service) SetRole(ctx context.Context, username string, role Role) (*User, error) {
	if !role.Valid() {
		return nil, apperr.Validationf("Invalid role: %s", role)
	}
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, user.ID, UserUpdate{Role: &role}); err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}
