// ABOUTME: Control-plane CRUD handlers for missions, plays, safeguards, and feedback
// ABOUTME: All routes are tenant-scoped through the resolved auth context

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mission-gateway/internal/auth"
	"github.com/2389/mission-gateway/internal/store"
)

// CreateMissionRequest is the JSON request body for POST /api/missions.
type CreateMissionRequest struct {
	Name      string `json:"name"`
	Objective string `json:"objective,omitempty"`
}

// MissionResponse is the JSON shape for mission records.
type MissionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Objective string `json:"objective,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UpdateMissionStatusRequest is the JSON request body for POST /api/missions/{id}/status.
type UpdateMissionStatusRequest struct {
	Status string `json:"status"`
}

// CreatePlayRequest is the JSON request body for POST /api/plays.
type CreatePlayRequest struct {
	MissionID string `json:"mission_id"`
	Name      string `json:"name"`
	Sequence  int    `json:"sequence"`
}

// PlayResponse is the JSON shape for play records.
type PlayResponse struct {
	ID        string `json:"id"`
	MissionID string `json:"mission_id"`
	Name      string `json:"name"`
	Sequence  int    `json:"sequence"`
	CreatedAt string `json:"created_at"`
}

// CreateSafeguardRequest is the JSON request body for POST /api/safeguards.
type CreateSafeguardRequest struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// SafeguardResponse is the JSON shape for safeguard records.
type SafeguardResponse struct {
	ID        string `json:"id"`
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"created_at"`
}

// CreateFeedbackRequest is the JSON request body for POST /api/feedback.
type CreateFeedbackRequest struct {
	MissionID string `json:"mission_id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
}

// FeedbackResponse is the JSON shape for feedback records.
type FeedbackResponse struct {
	ID        string `json:"id"`
	MissionID string `json:"mission_id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

func missionResponse(m *store.Mission) MissionResponse {
	return MissionResponse{
		ID:        m.ID,
		Name:      m.Name,
		Objective: m.Objective,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
}

func playResponse(p *store.Play) PlayResponse {
	return PlayResponse{
		ID:        p.ID,
		MissionID: p.MissionID,
		Name:      p.Name,
		Sequence:  p.Sequence,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// handleMissions handles GET and POST /api/missions.
func (g *Gateway) handleMissions(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		missions, err := g.store.ListMissions(r.Context(), ac.TenantID)
		if err != nil {
			g.storeError(w, "listing missions", err)
			return
		}
		out := make([]MissionResponse, 0, len(missions))
		for _, m := range missions {
			out = append(out, missionResponse(m))
		}
		g.writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req CreateMissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, `{"error":"invalid_request","message":"name is required"}`, http.StatusBadRequest)
			return
		}

		now := time.Now().UTC()
		m := &store.Mission{
			ID:        uuid.New().String(),
			TenantID:  ac.TenantID,
			Name:      req.Name,
			Objective: req.Objective,
			Status:    store.MissionStatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := g.store.CreateMission(r.Context(), m); err != nil {
			g.storeError(w, "creating mission", err)
			return
		}
		g.writeJSON(w, http.StatusCreated, missionResponse(m))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleMissionRoutes dispatches /api/missions/{id}[/plays|/feedback|/status].
func (g *Gateway) handleMissionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/missions/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch sub {
	case "":
		g.handleGetMission(w, r, id)
	case "plays":
		g.handleListPlays(w, r, id)
	case "feedback":
		g.handleListFeedback(w, r, id)
	case "status":
		g.handleUpdateMissionStatus(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleGetMission handles GET /api/missions/{id}.
func (g *Gateway) handleGetMission(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ac := auth.FromContext(r.Context())

	m, err := g.store.GetMission(r.Context(), ac.TenantID, id)
	if err != nil {
		g.storeError(w, "getting mission", err)
		return
	}
	g.writeJSON(w, http.StatusOK, missionResponse(m))
}

// handleUpdateMissionStatus handles POST /api/missions/{id}/status.
func (g *Gateway) handleUpdateMissionStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ac := auth.FromContext(r.Context())

	var req UpdateMissionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	switch store.MissionStatus(req.Status) {
	case store.MissionStatusDraft, store.MissionStatusActive,
		store.MissionStatusCompleted, store.MissionStatusArchived:
	default:
		http.Error(w, `{"error":"invalid_request","message":"unknown status"}`, http.StatusBadRequest)
		return
	}

	if err := g.store.UpdateMissionStatus(r.Context(), ac.TenantID, id, store.MissionStatus(req.Status)); err != nil {
		g.storeError(w, "updating mission status", err)
		return
	}
	m, err := g.store.GetMission(r.Context(), ac.TenantID, id)
	if err != nil {
		g.storeError(w, "getting mission", err)
		return
	}
	g.writeJSON(w, http.StatusOK, missionResponse(m))
}

// handleListPlays handles GET /api/missions/{id}/plays.
func (g *Gateway) handleListPlays(w http.ResponseWriter, r *http.Request, missionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ac := auth.FromContext(r.Context())

	plays, err := g.store.ListPlays(r.Context(), ac.TenantID, missionID)
	if err != nil {
		g.storeError(w, "listing plays", err)
		return
	}
	out := make([]PlayResponse, 0, len(plays))
	for _, p := range plays {
		out = append(out, playResponse(p))
	}
	g.writeJSON(w, http.StatusOK, out)
}

// handleCreatePlay handles POST /api/plays.
func (g *Gateway) handleCreatePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ac := auth.FromContext(r.Context())

	var req CreatePlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	if req.MissionID == "" || strings.TrimSpace(req.Name) == "" {
		http.Error(w, `{"error":"invalid_request","message":"mission_id and name are required"}`, http.StatusBadRequest)
		return
	}

	p := &store.Play{
		ID:        uuid.New().String(),
		MissionID: req.MissionID,
		Name:      req.Name,
		Sequence:  req.Sequence,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.CreatePlay(r.Context(), ac.TenantID, p); err != nil {
		g.storeError(w, "creating play", err)
		return
	}
	g.writeJSON(w, http.StatusCreated, playResponse(p))
}

// handleSafeguards handles GET and POST /api/safeguards.
func (g *Gateway) handleSafeguards(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		safeguards, err := g.store.ListSafeguards(r.Context(), ac.TenantID)
		if err != nil {
			g.storeError(w, "listing safeguards", err)
			return
		}
		out := make([]SafeguardResponse, 0, len(safeguards))
		for _, s := range safeguards {
			out = append(out, SafeguardResponse{
				ID:        s.ID,
				Rule:      s.Rule,
				Severity:  s.Severity,
				Enabled:   s.Enabled,
				CreatedAt: s.CreatedAt.Format(time.RFC3339),
			})
		}
		g.writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req CreateSafeguardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Rule) == "" {
			http.Error(w, `{"error":"invalid_request","message":"rule is required"}`, http.StatusBadRequest)
			return
		}
		if req.Severity == "" {
			req.Severity = "info"
		}
		switch req.Severity {
		case "info", "warning", "critical":
		default:
			http.Error(w, `{"error":"invalid_request","message":"severity must be info, warning, or critical"}`, http.StatusBadRequest)
			return
		}
		enabled := true
		if req.Enabled != nil {
			enabled = *req.Enabled
		}

		s := &store.Safeguard{
			ID:        uuid.New().String(),
			TenantID:  ac.TenantID,
			Rule:      req.Rule,
			Severity:  req.Severity,
			Enabled:   enabled,
			CreatedAt: time.Now().UTC(),
		}
		if err := g.store.CreateSafeguard(r.Context(), s); err != nil {
			g.storeError(w, "creating safeguard", err)
			return
		}
		g.writeJSON(w, http.StatusCreated, SafeguardResponse{
			ID:        s.ID,
			Rule:      s.Rule,
			Severity:  s.Severity,
			Enabled:   s.Enabled,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListFeedback handles GET /api/missions/{id}/feedback.
func (g *Gateway) handleListFeedback(w http.ResponseWriter, r *http.Request, missionID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ac := auth.FromContext(r.Context())

	notes, err := g.store.ListFeedback(r.Context(), ac.TenantID, missionID)
	if err != nil {
		g.storeError(w, "listing feedback", err)
		return
	}
	out := make([]FeedbackResponse, 0, len(notes))
	for _, f := range notes {
		out = append(out, FeedbackResponse{
			ID:        f.ID,
			MissionID: f.MissionID,
			Author:    f.Author,
			Body:      f.Body,
			CreatedAt: f.CreatedAt.Format(time.RFC3339),
		})
	}
	g.writeJSON(w, http.StatusOK, out)
}

// handleCreateFeedback handles POST /api/feedback.
func (g *Gateway) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ac := auth.FromContext(r.Context())

	var req CreateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	if req.MissionID == "" || strings.TrimSpace(req.Body) == "" {
		http.Error(w, `{"error":"invalid_request","message":"mission_id and body are required"}`, http.StatusBadRequest)
		return
	}
	author := req.Author
	if author == "" {
		author = ac.UserID
	}

	f := &store.Feedback{
		ID:        uuid.New().String(),
		MissionID: req.MissionID,
		Author:    author,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.CreateFeedback(r.Context(), ac.TenantID, f); err != nil {
		g.storeError(w, "creating feedback", err)
		return
	}
	g.writeJSON(w, http.StatusCreated, FeedbackResponse{
		ID:        f.ID,
		MissionID: f.MissionID,
		Author:    f.Author,
		Body:      f.Body,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response body with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Warn("failed to encode response", "error", err)
	}
}

// storeError maps store failures to HTTP statuses. ErrNotFound covers both
// missing rows and rows owned by another tenant.
func (g *Gateway) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	g.logger.Error("store operation failed", "op", op, "error", err)
	http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
}
