package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/stockroom/pkg/apperr"
	"github.com/platinummonkey/stockroom/pkg/pagination"
	"github.com/platinummonkey/stockroom/pkg/storage"
)

const userColumns = `id, username, password_hash, email, role, is_active, last_login, created_at, updated_at`

// UserStore persists users. Users are never hard-deleted.
type UserStore struct {
	db       *sql.DB
	recorder storage.Recorder
	now      func() time.Time
}

// NewUserStore creates a user store. recorder may be nil.
func NewUserStore(db *sql.DB, recorder storage.Recorder) *UserStore {
	return &UserStore{
		db:       db,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		role      string
		email     sql.NullString
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&email,
		&role,
		&u.IsActive,
		&lastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	if email.Valid {
		e := email.String
		u.Email = &e
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// Create inserts a user and returns its id. Duplicate usernames or emails
// are Conflict.
func (s *UserStore) Create(ctx context.Context, nu NewUser) (id int64, err error) {
	defer storage.Observe(s.recorder, "users.create", time.Now(), &err)

	role := nu.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return 0, apperr.Validationf("Invalid role: %s", role)
	}

	query := `
		INSERT INTO users (username, password_hash, email, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`
	now := s.now()
	err = s.db.QueryRowContext(ctx, query, nu.Username, nu.PasswordHash, nu.Email, string(role), true, now).Scan(&id)
	if storage.IsUniqueViolation(err) {
		return 0, apperr.Conflict("User already exists")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

// GetByUsername returns the user with username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (u *User, err error) {
	defer storage.Observe(s.recorder, "users.get_by_username", time.Now(), &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err = scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID returns the user with id
func (s *UserStore) GetByID(ctx context.Context, id int64) (u *User, err error) {
	defer storage.Observe(s.recorder, "users.get_by_id", time.Now(), &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err = scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// RoleOf returns the stored role of an active user. Unknown and disabled
// users are NotFound.
func (s *UserStore) RoleOf(ctx context.Context, id int64) (role Role, err error) {
	defer storage.Observe(s.recorder, "users.role_of", time.Now(), &err)

	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1 AND is_active = $2`, id, true).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("User not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user role: %w", err)
	}
	return Role(raw), nil
}

// TouchLastLogin records a successful login at at
func (s *UserStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) (err error) {
	defer storage.Observe(s.recorder, "users.touch_last_login", time.Now(), &err)

	_, err = s.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// List returns one page of users, newest first, and the total user count
func (s *UserStore) List(ctx context.Context, page pagination.Params) (users []User, total int64, err error) {
	defer storage.Observe(s.recorder, "users.list", time.Now(), &err)

	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users = []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, total, nil
}

// Update applies the non-nil fields of update to user id
func (s *UserStore) Update(ctx context.Context, id int64, update UserUpdate) (err error) {
	defer storage.Observe(s.recorder, "users.update", time.Now(), &err)

	if update.IsEmpty() {
		return apperr.Validation("No fields to update")
	}

	var (
		sets []string
		args []interface{}
	)
	if update.Role != nil {
		if !update.Role.Valid() {
			return apperr.Validationf("Invalid role: %s", *update.Role)
		}
		args = append(args, string(*update.Role))
		sets = append(sets, fmt.Sprintf("role = $%d", len(args)))
	}
	if update.IsActive != nil {
		args = append(args, *update.IsActive)
		sets = append(sets, fmt.Sprintf("is_active = $%d", len(args)))
	}
	args = append(args, s.now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// Count returns the number of users
func (s *UserStore) Count(ctx context.Context) (n int64, err error) {
	defer storage.Observe(s.recorder, "users.count", time.Now(), &err)

	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// Exists reports whether username is taken
func (s *UserStore) Exists(ctx context.Context, username string) (exists bool, err error) {
	defer storage.Observe(s.recorder, "users.exists", time.Now(), &err)

	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = $1`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return n > 0, nil
}
