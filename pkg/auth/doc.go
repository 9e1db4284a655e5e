// Package auth provides local username/password authentication for stockroom.
//
// # Key Components
//
// Hasher: salted, adaptive password hashing (bcrypt).
//
//	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
//	hash, err := hasher.Hash("secret1")
//	ok, err := hasher.Verify("secret1", hash)
//
// TokenService: signed, expiring session tokens (HS256 JWT) carrying the
// user id, username and role claim.
//
//	tokens, err := auth.NewTokenService(secret, 24*time.Hour, time.Now)
//	token, expiresAt, err := tokens.Issue(user)
//	claims, err := tokens.Verify(token)
//	if errors.Is(err, auth.ErrTokenExpired) { ... }
//
// UserStore: persistence for User records. Users are never hard-deleted.
//
// Service: registration, login and the privileged admin bootstrap path.
//
// # Role Trust Boundary
//
// The role claim inside a token is informational. Authorization decisions
// re-read the role through UserStore.RoleOf on every request, so demoting
// an admin takes effect before their token expires. See pkg/middleware.
package auth
