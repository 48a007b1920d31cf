// ABOUTME: Tests for the remote auth provider resolver
// ABOUTME: Uses httptest servers to exercise the provider status mapping

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteResolver_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/resolve", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":"user-9","tenant_id":"tenant-3"}`))
	}))
	defer srv.Close()

	r := NewRemoteResolver(srv.URL)
	ac, err := r.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-9", ac.UserID)
	assert.Equal(t, "tenant-3", ac.TenantID)
}

func TestRemoteResolver_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := NewRemoteResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRemoteResolver_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewRemoteResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRemoteResolver_MissingTenantFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user_id":"user-9"}`))
	}))
	defer srv.Close()

	r := NewRemoteResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRemoteResolver_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately closed - connection refused

	r := NewRemoteResolver(srv.URL)
	_, err := r.Resolve(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPAuthMiddleware(t *testing.T) {
	resolver := NewJWTResolver([]byte("secret"))
	token, err := resolver.Generate("user-1", "tenant-1", time.Hour)
	require.NoError(t, err)

	var seen *Context
	handler := HTTPAuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/missions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "tenant-1", seen.TenantID)

	// No header - 401 before the handler runs
	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/api/missions", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}
