// Package auth resolves bearer tokens to user and tenant identity.
//
// # Resolvers
//
// Two Resolver implementations are provided:
//
//   - JWTResolver: verifies HS256 tokens locally against a shared secret.
//     The "sub" claim is the user ID and "tid" the tenant ID.
//
//   - RemoteResolver: delegates to an external auth provider over HTTP.
//
// Both fail closed: a token that cannot be positively mapped to a user AND
// a tenant yields ErrUnauthorized (bad token) or ErrForbidden (valid token,
// no tenant bound). The gateway rejects before opening any streaming
// connection if resolution fails.
//
// # Request context
//
// HTTPAuthMiddleware attaches the resolved Context to the request context;
// handlers retrieve it with FromContext.
package auth
