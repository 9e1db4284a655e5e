package auth

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/stockroom/pkg/apperr"
)

// DefaultBcryptCost is the work factor used for new hashes
const DefaultBcryptCost = 12

// MaxPasswordBytes is the longest password bcrypt hashes without truncation
const MaxPasswordBytes = 72

// Hasher hashes and verifies passwords
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) (bool, error)
}

// BcryptHasher is a Hasher backed by bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher; out-of-range costs use the default
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns a salted hash of plain
func (h *BcryptHasher) Hash(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", apperr.Validationf("Password must be at most %d bytes long", MaxPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hashed. A mismatch or an unparsable
// hash is (false, nil).
func (h *BcryptHasher) Verify(plain, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	}

	var (
		versionErr bcrypt.HashVersionTooNewError
		prefixErr  bcrypt.InvalidHashPrefixError
		costErr    bcrypt.InvalidCostError
		saltErr    base64.CorruptInputError
	)
	if errors.As(err, &versionErr) || errors.As(err, &prefixErr) || errors.As(err, &costErr) || errors.As(err, &saltErr) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify password: %w", err)
}
