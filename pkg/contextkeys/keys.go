// Package contextkeys owns the request-scoped values shared between the
// HTTP middleware, handlers and the logger.
//
// Values are stored under unexported keys and read back through the
// accessors below, so producers and consumers always agree on the type:
//
//	ctx = contextkeys.WithRequestID(ctx, id)    // httputil.RequestIDMiddleware
//	ctx = contextkeys.WithIdentity(ctx, ident)  // middleware.AuthMiddleware
//	ident, _ := contextkeys.Identity(ctx).(*auth.Identity)
//
// Identity and Logger are stored as interface{} to keep this package free
// of imports from auth and observability.
package contextkeys

import "context"

type key int

const (
	identityKey key = iota
	requestIDKey
	userIDKey
	loggerKey
)

// WithIdentity stores the caller identity (*auth.Identity)
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Identity returns the stored identity, or nil
func Identity(ctx context.Context) interface{} {
	return ctx.Value(identityKey)
}

// WithRequestID stores the request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the stored request id, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithUserID stores the authenticated user id in its decimal form
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the stored user id, or ""
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithLogger stores the request logger (*observability.Logger)
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the stored logger, or nil
func Logger(ctx context.Context) interface{} {
	return ctx.Value(loggerKey)
}
