package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platinummonkey/stockroom/pkg/apperr"
)

// Token verification failure classes
var (
	ErrTokenExpired            = errors.New("token has expired")
	ErrTokenMalformed          = errors.New("invalid token")
	ErrTokenVerificationFailed = errors.New("token verification failed")
)

// TokenError is returned by TokenService.Verify. Kind is one of the
// ErrToken* sentinels and Err is the underlying parser error.
type TokenError struct {
	Kind error
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *TokenError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ErrorCode returns the client-facing error code
func (e *TokenError) ErrorCode() string {
	switch e.Kind {
	case ErrTokenExpired:
		return apperr.CodeTokenExpired
	case ErrTokenMalformed:
		return apperr.CodeInvalidToken
	default:
		return apperr.CodeTokenVerificationFailed
	}
}

// Message returns the client-facing message
func (e *TokenError) Message() string {
	switch e.Kind {
	case ErrTokenExpired:
		return "Token has expired"
	case ErrTokenMalformed:
		return "Invalid token"
	default:
		return "Token verification failed"
	}
}

// AppError converts e to a 401 application error
func (e *TokenError) AppError() *apperr.Error {
	appErr := apperr.Unauthorized(e.ErrorCode(), e.Message())
	appErr.Err = e
	return appErr
}

// TokenService issues and verifies HS256 session tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewTokenService creates a token service. clock defaults to time.Now.
func NewTokenService(secret []byte, ttl time.Duration, clock func() time.Time) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if clock == nil {
		clock = time.Now
	}
	return &TokenService{secret: secret, ttl: ttl, clock: clock}, nil
}

// TTL returns the token lifetime
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for user valid for the configured TTL
func (s *TokenService) Issue(user *User) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, fmt.Errorf("user is required")
	}

	now := s.clock()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// Failures are *TokenError.
func (s *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, &TokenError{Kind: classifyTokenError(err), Err: err}
	}
	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenVerificationFailed
	}
}
