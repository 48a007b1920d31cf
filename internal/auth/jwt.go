// ABOUTME: Local JWT resolver verifying HS256 bearer tokens
// ABOUTME: Maps the sub claim to the user and the tid claim to the tenant

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTResolver implements Resolver using HS256 signed JWTs verified locally.
// The "sub" claim carries the user ID and the "tid" claim the tenant ID.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver creates a resolver with the given signing secret.
func NewJWTResolver(secret []byte) *JWTResolver {
	return &JWTResolver{secret: secret}
}

// Resolve validates the token and extracts user and tenant identity.
// A valid token without a tenant claim yields ErrForbidden.
func (r *JWTResolver) Resolve(_ context.Context, tokenString string) (*Context, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthorized
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrUnauthorized
	}

	tid, ok := claims["tid"].(string)
	if !ok || tid == "" {
		return nil, ErrForbidden
	}

	return &Context{Token: tokenString, UserID: sub, TenantID: tid}, nil
}

// Generate creates a new token for the given user and tenant with expiration.
// Used by the bootstrap-token CLI command and by tests.
func (r *JWTResolver) Generate(userID, tenantID string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"tid": tenantID,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}
