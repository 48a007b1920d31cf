// ABOUTME: HTTP client for the backend execution service NDJSON stream
// ABOUTME: Issues the streaming run request bound to the session context

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/2389/mission-gateway/internal/auth"
)

// Client errors. Each maps to a distinct in-band error event on the relay.
var (
	// ErrUnreachable means the execution service could not be reached at all.
	ErrUnreachable = errors.New("unable to reach execution service")
	// ErrNoStream means the service answered 2xx but returned no readable body.
	ErrNoStream = errors.New("execution service did not return a stream")
)

// StatusError is returned when the execution service answers non-2xx.
// The raw body is kept for diagnostics.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("execution service returned status %d", e.Status)
}

// maxErrorBody bounds how much of a failed response body is retained.
const maxErrorBody = 8192

// Client issues streaming run requests to the execution service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the execution service at baseURL.
// connectTimeout bounds dialing and the wait for response headers; the
// stream itself has no deadline and is cancelled through the request context.
func New(baseURL string, connectTimeout time.Duration) *Client {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				ResponseHeaderTimeout: connectTimeout,
			},
		},
	}
}

// runRequest is the JSON body sent to the execution service.
type runRequest struct {
	MissionID   string      `json:"mission_id"`
	PlayID      string      `json:"play_id"`
	AuthContext authContext `json:"auth_context"`
}

type authContext struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// Run POSTs to {base}/execution/run and returns the NDJSON response body.
// The caller owns the returned body and must close it. The request is bound
// to ctx; cancelling ctx aborts an in-flight call and interrupts reads.
func (c *Client) Run(ctx context.Context, missionID, playID string, ac *auth.Context) (io.ReadCloser, error) {
	body, err := json.Marshal(runRequest{
		MissionID: missionID,
		PlayID:    playID,
		AuthContext: authContext{
			UserID:   ac.UserID,
			TenantID: ac.TenantID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execution/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	req.Header.Set("Authorization", "Bearer "+ac.Token)
	req.Header.Set("X-User-Id", ac.UserID)
	req.Header.Set("X-Tenant-Id", ac.TenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoStream
	}

	return resp.Body, nil
}
