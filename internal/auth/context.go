// ABOUTME: AuthContext type and request-context plumbing for resolved identities
// ABOUTME: Carries the bearer token, user ID, and tenant ID for one request

package auth

import "context"

// Context is the resolved identity for one request. It is produced once by
// a Resolver, read-only afterwards, and never persisted by the gateway.
type Context struct {
	Token    string
	UserID   string
	TenantID string
}

type contextKey struct{}

// WithContext returns a new context carrying the resolved auth context.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext extracts the auth context from a request context.
// Returns nil if no auth context is present.
func FromContext(ctx context.Context) *Context {
	ac, _ := ctx.Value(contextKey{}).(*Context)
	return ac
}
