// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Covers CRUD operations and tenant isolation across all record types

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMission(tenantID string) *Mission {
	now := time.Now().UTC()
	return &Mission{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      "recon",
		Objective: "map the landscape",
		Status:    MissionStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMissionCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMission("tenant-1")
	require.NoError(t, s.CreateMission(ctx, m))

	got, err := s.GetMission(ctx, "tenant-1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, MissionStatusDraft, got.Status)

	require.NoError(t, s.UpdateMissionStatus(ctx, "tenant-1", m.ID, MissionStatusActive))
	got, err = s.GetMission(ctx, "tenant-1", m.ID)
	require.NoError(t, err)
	assert.Equal(t, MissionStatusActive, got.Status)

	missions, err := s.ListMissions(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Len(t, missions, 1)
}

func TestMissionTenantIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMission("tenant-1")
	require.NoError(t, s.CreateMission(ctx, m))

	// Another tenant must not see the row, not even as an existence signal
	_, err := s.GetMission(ctx, "tenant-2", m.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateMissionStatus(ctx, "tenant-2", m.ID, MissionStatusArchived)
	assert.ErrorIs(t, err, ErrNotFound)

	missions, err := s.ListMissions(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Empty(t, missions)
}

func TestGetMission_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetMission(context.Background(), "tenant-1", uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMission("tenant-1")
	require.NoError(t, s.CreateMission(ctx, m))

	for i, name := range []string{"scan", "probe", "report"} {
		p := &Play{
			ID:        uuid.New().String(),
			MissionID: m.ID,
			Name:      name,
			Sequence:  i + 1,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.CreatePlay(ctx, "tenant-1", p))
	}

	plays, err := s.ListPlays(ctx, "tenant-1", m.ID)
	require.NoError(t, err)
	require.Len(t, plays, 3)
	assert.Equal(t, "scan", plays[0].Name)
	assert.Equal(t, "report", plays[2].Name)

	got, err := s.GetPlay(ctx, "tenant-1", plays[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "probe", got.Name)

	// Play lookups are tenant-scoped through the mission
	_, err = s.GetPlay(ctx, "tenant-2", plays[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePlay_MissionMustExist(t *testing.T) {
	s := newTestStore(t)

	p := &Play{
		ID:        uuid.New().String(),
		MissionID: uuid.New().String(),
		Name:      "orphan",
		Sequence:  1,
		CreatedAt: time.Now().UTC(),
	}
	err := s.CreatePlay(context.Background(), "tenant-1", p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSafeguards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sg := &Safeguard{
		ID:        uuid.New().String(),
		TenantID:  "tenant-1",
		Rule:      "no destructive tool calls",
		Severity:  "critical",
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateSafeguard(ctx, sg))

	list, err := s.ListSafeguards(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Enabled)

	other, err := s.ListSafeguards(ctx, "tenant-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMission("tenant-1")
	require.NoError(t, s.CreateMission(ctx, m))

	f := &Feedback{
		ID:        uuid.New().String(),
		MissionID: m.ID,
		Author:    "user-1",
		Body:      "tighten step 2",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateFeedback(ctx, "tenant-1", f))

	list, err := s.ListFeedback(ctx, "tenant-1", m.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "tighten step 2", list[0].Body)

	_, err = s.ListFeedback(ctx, "tenant-2", m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTelemetryJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := &TelemetryEvent{
			ID:        uuid.New().String(),
			TenantID:  "tenant-1",
			EventType: "execution_step_completed",
			Payload:   `{"step":1}`,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, s.AppendTelemetry(ctx, e))
	}

	events, err := s.ListTelemetry(ctx, "tenant-1", 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = s.ListTelemetry(ctx, "tenant-1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
