// ABOUTME: Store interface and record types for mission control-plane data
// ABOUTME: Defines missions, plays, safeguards, feedback, and the telemetry journal

package store

import (
	"context"
	"errors"
	"time"
)

// Store errors
var (
	ErrNotFound = errors.New("not found")
)

// MissionStatus enumerates the lifecycle states of a mission.
type MissionStatus string

const (
	MissionStatusDraft     MissionStatus = "draft"
	MissionStatusActive    MissionStatus = "active"
	MissionStatusCompleted MissionStatus = "completed"
	MissionStatusArchived  MissionStatus = "archived"
)

// Mission is a tenant-scoped unit of work executed through the gateway.
type Mission struct {
	ID        string
	TenantID  string
	Name      string
	Objective string
	Status    MissionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Play is one executable step plan belonging to a mission.
type Play struct {
	ID        string
	MissionID string
	Name      string
	Sequence  int
	CreatedAt time.Time
}

// Safeguard is a tenant-scoped validation rule applied during execution.
type Safeguard struct {
	ID        string
	TenantID  string
	Rule      string
	Severity  string
	Enabled   bool
	CreatedAt time.Time
}

// Feedback is a free-form note attached to a mission.
type Feedback struct {
	ID        string
	MissionID string
	Author    string
	Body      string
	CreatedAt time.Time
}

// TelemetryEvent is one journaled telemetry record.
type TelemetryEvent struct {
	ID        string
	TenantID  string
	EventType string
	Payload   string
	CreatedAt time.Time
}

// Store is the persistence interface for control-plane records.
// All reads and writes are tenant-scoped; a lookup for a row owned by a
// different tenant returns ErrNotFound rather than leaking its existence.
type Store interface {
	CreateMission(ctx context.Context, m *Mission) error
	GetMission(ctx context.Context, tenantID, id string) (*Mission, error)
	ListMissions(ctx context.Context, tenantID string) ([]*Mission, error)
	UpdateMissionStatus(ctx context.Context, tenantID, id string, status MissionStatus) error

	CreatePlay(ctx context.Context, tenantID string, p *Play) error
	GetPlay(ctx context.Context, tenantID, id string) (*Play, error)
	ListPlays(ctx context.Context, tenantID, missionID string) ([]*Play, error)

	CreateSafeguard(ctx context.Context, s *Safeguard) error
	ListSafeguards(ctx context.Context, tenantID string) ([]*Safeguard, error)

	CreateFeedback(ctx context.Context, tenantID string, f *Feedback) error
	ListFeedback(ctx context.Context, tenantID, missionID string) ([]*Feedback, error)

	AppendTelemetry(ctx context.Context, e *TelemetryEvent) error
	ListTelemetry(ctx context.Context, tenantID string, limit int) ([]*TelemetryEvent, error)

	Close() error
}
