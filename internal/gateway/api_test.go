// ABOUTME: Tests for the control-plane CRUD routes and health endpoints
// ABOUTME: Exercises the full mux including the bearer-auth middleware and tenant scoping

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (g *Gateway) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	g.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func apiRequest(method, path, body, authorization string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	return r
}

func TestHealthEndpoints(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")

	rec := g.serve(apiRequest(http.MethodGet, "/health", "", ""))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = g.serve(apiRequest(http.MethodGet, "/health/ready", "", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestAPIRequiresAuth(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")

	for _, path := range []string{"/api/missions", "/api/safeguards"} {
		rec := g.serve(apiRequest(http.MethodGet, path, "", ""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func createMission(t *testing.T, g *Gateway, authz, name string) MissionResponse {
	t.Helper()
	rec := g.serve(apiRequest(http.MethodPost, "/api/missions", `{"name":"`+name+`","objective":"obj"}`, authz))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var m MissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestMissionCreateAndGet(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")
	authz := bearerFor(t, "u1", "tenant-1")

	m := createMission(t, g, authz, "recon")
	assert.Equal(t, "draft", m.Status)
	assert.NotEmpty(t, m.ID)

	rec := g.serve(apiRequest(http.MethodGet, "/api/missions/"+m.ID, "", authz))
	require.Equal(t, http.StatusOK, rec.Code)

	var got MissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "recon", got.Name)
}

func TestMissionCreateRequiresName(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")

	rec := g.serve(apiRequest(http.MethodPost, "/api/missions", `{"objective":"obj"}`, bearerFor(t, "u1", "tenant-1")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissionTenantIsolation(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")
	alice := bearerFor(t, "alice", "tenant-a")
	bob := bearerFor(t, "bob", "tenant-b")

	m := createMission(t, g, alice, "secret-mission")

	// Bob cannot see Alice's mission by ID or in his list.
	rec := g.serve(apiRequest(http.MethodGet, "/api/missions/"+m.ID, "", bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = g.serve(apiRequest(http.MethodGet, "/api/missions", "", bob))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestMissionStatusUpdate(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")
	authz := bearerFor(t, "u1", "tenant-1")
	m := createMission(t, g, authz, "recon")

	rec := g.serve(apiRequest(http.MethodPost, "/api/missions/"+m.ID+"/status", `{"status":"active"}`, authz))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got MissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "active", got.Status)

	rec = g.serve(apiRequest(http.MethodPost, "/api/missions/"+m.ID+"/status", `{"status":"bogus"}`, authz))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayCreateAndList(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")
	authz := bearerFor(t, "u1", "tenant-1")
	m := createMission(t, g, authz, "recon")

	rec := g.serve(apiRequest(http.MethodPost, "/api/plays",
		`{"mission_id":"`+m.ID+`","name":"step one","sequence":1}`, authz))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = g.serve(apiRequest(http.MethodGet, "/api/missions/"+m.ID+"/plays", "", authz))
	require.Equal(t, http.StatusOK, rec.Code)

	var plays []PlayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plays))
	require.Len(t, plays, 1)
	assert.Equal(t, "step one", plays[0].Name)
	assert.Equal(t, 1, plays[0].Sequence)
}

func TestPlayCreateRejectsForeignMission(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")
	alice := bearerFor(t, "alice", "tenant-a")
	bob := bearerFor(t, "bob", "tenant-b")
	m := createMission(t, g, alice, "recon")

	rec := g.serve(apiRequest(http.MethodPost, "/api/plays",
		`{"mission_id":"`+m.ID+`","name":"steal","sequence":1}`, bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSafeguardCreateAndList(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")
	authz := bearerFor(t, "u1", "tenant-1")

	rec := g.serve(apiRequest(http.MethodPost, "/api/safeguards",
		`{"rule":"no-prod-writes","severity":"critical"}`, authz))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = g.serve(apiRequest(http.MethodGet, "/api/safeguards", "", authz))
	require.Equal(t, http.StatusOK, rec.Code)

	var safeguards []SafeguardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &safeguards))
	require.Len(t, safeguards, 1)
	assert.Equal(t, "no-prod-writes", safeguards[0].Rule)
	assert.True(t, safeguards[0].Enabled, "enabled defaults to true")
}

func TestFeedbackCreateAndList(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")
	authz := bearerFor(t, "u1", "tenant-1")
	m := createMission(t, g, authz, "recon")

	rec := g.serve(apiRequest(http.MethodPost, "/api/feedback",
		`{"mission_id":"`+m.ID+`","body":"went well"}`, authz))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created FeedbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "u1", created.Author, "author defaults to the caller")

	rec = g.serve(apiRequest(http.MethodGet, "/api/missions/"+m.ID+"/feedback", "", authz))
	require.Equal(t, http.StatusOK, rec.Code)

	var notes []FeedbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "went well", notes[0].Body)
}
