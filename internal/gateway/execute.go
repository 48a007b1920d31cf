// ABOUTME: Streaming execution endpoint for POST /api/missions/execute
// ABOUTME: Validates and authenticates, then hands the connection to a relay session

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/mission-gateway/internal/auth"
	"github.com/2389/mission-gateway/internal/relay"
)

// maxExecuteBody bounds the execute request body size.
const maxExecuteBody = 1 << 20

// ExecuteRequest is the JSON request body for POST /api/missions/execute.
type ExecuteRequest struct {
	MissionID string `json:"mission_id"`
	PlayID    string `json:"play_id"`
}

// validate checks the request shape. Identifiers must be UUIDs; existence
// is the execution service's concern, not the gateway's.
func (req *ExecuteRequest) validate() string {
	if req.MissionID == "" {
		return "mission_id is required"
	}
	if uuid.Validate(req.MissionID) != nil {
		return "mission_id must be a UUID"
	}
	if req.PlayID == "" {
		return "play_id is required"
	}
	if uuid.Validate(req.PlayID) != nil {
		return "play_id must be a UUID"
	}
	return ""
}

// handleExecuteMission handles POST /api/missions/execute.
//
// The request moves through validation, then authentication, then the
// streaming relay. Refusals before the stream opens are plain HTTP errors
// carrying an incident ID; once the 200 is committed, every later failure
// is an in-band SSE error event. This endpoint does not sit behind the
// shared auth middleware: validation must be able to refuse before any
// token is inspected, and refusal bodies carry the incident ID.
func (g *Gateway) handleExecuteMission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	incidentID := uuid.New().String()
	logger := g.logger.With("incident_id", incidentID)

	var req ExecuteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExecuteBody)).Decode(&req); err != nil {
		g.writeJSONError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", incidentID)
		return
	}
	if msg := req.validate(); msg != "" {
		g.writeJSONError(w, http.StatusBadRequest, "invalid_request", msg, incidentID)
		return
	}

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		g.writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing or malformed bearer token", incidentID)
		return
	}
	ac, err := g.resolver.Resolve(r.Context(), token)
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		g.writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid token", incidentID)
		return
	case errors.Is(err, auth.ErrForbidden):
		g.writeJSONError(w, http.StatusForbidden, "forbidden", "no tenant bound to token", incidentID)
		return
	case err != nil:
		logger.Error("auth resolution failed", "error", err)
		g.writeJSONError(w, http.StatusInternalServerError, "auth_error", "authentication backend failed", incidentID)
		return
	}

	sw, err := relay.NewSSEWriter(w)
	if err != nil {
		g.writeJSONError(w, http.StatusInternalServerError, "streaming_unsupported", "connection does not support streaming", incidentID)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger.Info("execution stream opened",
		"mission_id", req.MissionID,
		"play_id", req.PlayID,
		"tenant_id", ac.TenantID,
		"user_id", ac.UserID,
	)

	session := &relay.Session{
		MissionID:  req.MissionID,
		PlayID:     req.PlayID,
		Auth:       ac,
		IncidentID: incidentID,

		Writer:            sw,
		Upstream:          g.upstream,
		Telemetry:         g.telemetry,
		HeartbeatInterval: g.config.Relay.HeartbeatInterval,
		Logger:            logger.With("component", "relay"),
	}
	session.Run(r.Context())

	logger.Info("execution stream closed", "mission_id", req.MissionID)
}

// errorResponse is the JSON body for pre-stream refusals.
type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	IncidentID string `json:"incident_id"`
}

// writeJSONError writes a pre-stream HTTP error with its incident ID.
func (g *Gateway) writeJSONError(w http.ResponseWriter, status int, code, message, incidentID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: code, Message: message, IncidentID: incidentID}); err != nil {
		g.logger.Warn("failed to write error response", "error", err)
	}
}
