// Package middleware provides HTTP middleware for authentication, admin
// authorization, and rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: Bearer token authentication
//
//	required := middleware.NewAuthMiddleware(tokens, false)
//	optional := middleware.NewAuthMiddleware(tokens, true)
//	router.Handle("/products", required.Handler(productsHandler))
//
// In required mode a missing or bad token is rejected with a specific 401
// code (MISSING_AUTH_HEADER, INVALID_AUTH_FORMAT, MISSING_TOKEN,
// TOKEN_EXPIRED, INVALID_TOKEN, TOKEN_VERIFICATION_FAILED). In optional mode
// the request always proceeds, carrying auth.Anonymous when no valid token
// was presented.
//
// RequireAdmin / OptionalAdmin: admin gating against the stored role
//
//	admin := middleware.RequireAdmin(userStore)
//	router.Handle("/admin/users", required.Handler(admin(usersHandler)))
//
// The role is re-read on every request so demotion is immediate.
//
// RateLimitMiddleware: fixed-window request limiting
//
//	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerWindow: 20, WindowDuration: time.Minute})
//	limiter := middleware.NewDistributedRateLimiter(redisClient, cfg, "ratelimit:auth")
//	rl := middleware.NewRateLimitMiddleware(limiter, middleware.DefaultKey, "auth", metrics)
//
// Keys are user:<id> for authenticated callers and ip:<address> otherwise.
// The Redis limiter fails open.
//
// # Related Packages
//
//   - pkg/auth: Token verification and roles
//   - pkg/httputil: Error rendering
package middleware
