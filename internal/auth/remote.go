// ABOUTME: Remote resolver that delegates token resolution to an auth provider
// ABOUTME: Calls the provider's resolve endpoint and maps its status codes

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteResolver implements Resolver against an external auth provider.
// The provider exposes GET {base}/v1/resolve and answers with the identity
// bound to the presented bearer token.
type RemoteResolver struct {
	baseURL string
	client  *http.Client
}

// NewRemoteResolver creates a resolver for the given provider base URL.
func NewRemoteResolver(baseURL string) *RemoteResolver {
	return &RemoteResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// resolveResponse is the provider's answer for a valid token.
type resolveResponse struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// Resolve asks the provider who the token belongs to.
// 401 maps to ErrUnauthorized, 403 to ErrForbidden; a 200 without a tenant
// is treated as ErrForbidden since tenant context is mandatory.
func (r *RemoteResolver) Resolve(ctx context.Context, token string) (*Context, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/resolve", nil)
	if err != nil {
		return nil, fmt.Errorf("creating resolve request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusForbidden:
		return nil, ErrForbidden
	default:
		return nil, fmt.Errorf("auth provider returned status %d", resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding resolve response: %w", err)
	}
	if body.UserID == "" {
		return nil, ErrUnauthorized
	}
	if body.TenantID == "" {
		return nil, ErrForbidden
	}

	return &Context{Token: token, UserID: body.UserID, TenantID: body.TenantID}, nil
}
