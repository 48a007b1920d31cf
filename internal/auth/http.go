// ABOUTME: HTTP middleware for bearer-token authentication on API endpoints
// ABOUTME: Resolves the Authorization header and adds the identity to the context

package auth

import (
	"errors"
	"net/http"
)

// HTTPAuthMiddleware creates an HTTP middleware that resolves bearer tokens.
// On success the resolved Context is attached to the request context using
// the same WithContext/FromContext pattern as the streaming endpoint, so
// handlers see one identity shape regardless of route.
func HTTPAuthMiddleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ac, err := resolver.Resolve(r.Context(), token)
			switch {
			case errors.Is(err, ErrUnauthorized):
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			case errors.Is(err, ErrForbidden):
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			case err != nil:
				http.Error(w, `{"error":"auth_error"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}
