// ABOUTME: Resolver interface mapping bearer tokens to user and tenant identity
// ABOUTME: Defines the fail-closed error taxonomy shared by all implementations

package auth

import (
	"context"
	"errors"
	"strings"
)

// Resolver errors
var (
	// ErrUnauthorized means the header was missing/malformed or the token invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the token was valid but no tenant is bound to it.
	ErrForbidden = errors.New("forbidden")
)

// Resolver maps a bearer token to a resolved identity. Implementations must
// fail closed: any token that cannot be positively mapped to a user and a
// tenant yields ErrUnauthorized or ErrForbidden.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Context, error)
}

// BearerToken extracts the token from an Authorization header value.
// Returns ErrUnauthorized for a missing or malformed header.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthorized
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrUnauthorized
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}
