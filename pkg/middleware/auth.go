package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/platinummonkey/stockroom/pkg/apperr"
	"github.com/platinummonkey/stockroom/pkg/auth"
	"github.com/platinummonkey/stockroom/pkg/contextkeys"
	"github.com/platinummonkey/stockroom/pkg/httputil"
	"github.com/platinummonkey/stockroom/pkg/observability"
)

const bearerPrefix = "Bearer "

// TokenVerifier validates a session token
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RoleSource returns the current stored role of a user
type RoleSource interface {
	RoleOf(ctx context.Context, userID int64) (auth.Role, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	optional bool // If true, never reject; attach auth.Anonymous instead
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier TokenVerifier, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		optional: optional,
	}
}

// WithMetrics counts token verification results
func (m *AuthMiddleware) WithMetrics(metrics *observability.Metrics) *AuthMiddleware {
	m.metrics = metrics
	return m
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, appErr := m.authenticate(r)
		if appErr != nil {
			if !m.optional {
				httputil.WriteUnauthorized(w, appErr.Code, appErr.Message)
				return
			}
			anon := auth.Anonymous
			identity = &anon
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		if identity.Authenticated() {
			ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(identity.UserID, 10))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*auth.Identity, *apperr.Error) {
	// Format: "Bearer <token>"
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperr.Unauthorized(apperr.CodeMissingAuthHeader, "Authorization header is required")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, apperr.Unauthorized(apperr.CodeInvalidAuthFormat, "Authorization header must start with Bearer")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return nil, apperr.Unauthorized(apperr.CodeMissingToken, "Token is required")
	}

	claims, err := m.verifier.Verify(token)
	if err != nil {
		var tokenErr *auth.TokenError
		if !errors.As(err, &tokenErr) {
			tokenErr = &auth.TokenError{Kind: auth.ErrTokenVerificationFailed, Err: err}
		}
		m.metrics.ObserveTokenVerification(strings.ToLower(tokenErr.ErrorCode()))
		if !m.optional {
			observability.FromContext(r.Context()).WithError(err).Debug("token rejected")
		}
		return nil, tokenErr.AppError()
	}

	m.metrics.ObserveTokenVerification("valid")
	return auth.NewIdentity(claims), nil
}

// GetIdentity returns the identity attached by AuthMiddleware, or nil
func GetIdentity(r *http.Request) *auth.Identity {
	identity, _ := contextkeys.Identity(r.Context()).(*auth.Identity)
	return identity
}

// RequireAdmin rejects callers whose stored role is not admin. It must run
// after a required AuthMiddleware.
func RequireAdmin(roles RoleSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if !identity.Authenticated() {
				httputil.WriteUnauthorized(w, apperr.CodeUnauthorized, "Authentication required")
				return
			}

			role, err := roles.RoleOf(r.Context(), identity.UserID)
			if apperr.Is(err, apperr.KindNotFound) {
				httputil.WriteUnauthorized(w, apperr.CodeUserNotFound, "User not found")
				return
			}
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("admin role lookup failed")
				httputil.WriteAppError(w, err, false)
				return
			}

			if role != auth.RoleAdmin {
				httputil.WriteForbidden(w, apperr.CodeInsufficientPermissions, "Admin access required")
				return
			}

			ctx := contextkeys.WithIdentity(r.Context(), identity.WithRole(role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAdmin marks the identity as admin when the stored role is admin.
// It never rejects.
func OptionalAdmin(roles RoleSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r)
			if !identity.Authenticated() {
				next.ServeHTTP(w, r)
				return
			}

			role, err := roles.RoleOf(r.Context(), identity.UserID)
			if err != nil {
				if !apperr.Is(err, apperr.KindNotFound) {
					observability.FromContext(r.Context()).WithError(err).Warn("optional admin lookup failed")
				}
				role = auth.RoleUser
			}

			ctx := contextkeys.WithIdentity(r.Context(), identity.WithRole(role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
