// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides mission/play/safeguard persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS missions (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL,
			name       TEXT NOT NULL,
			objective  TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,

			CHECK (status IN ('draft', 'active', 'completed', 'archived'))
		);

		CREATE INDEX IF NOT EXISTS idx_missions_tenant ON missions(tenant_id, created_at);

		CREATE TABLE IF NOT EXISTS plays (
			id         TEXT PRIMARY KEY,
			mission_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			sequence   INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (mission_id) REFERENCES missions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_plays_mission ON plays(mission_id, sequence);

		CREATE TABLE IF NOT EXISTS safeguards (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL,
			rule       TEXT NOT NULL,
			severity   TEXT NOT NULL,
			enabled    INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,

			CHECK (severity IN ('info', 'warning', 'critical'))
		);

		CREATE INDEX IF NOT EXISTS idx_safeguards_tenant ON safeguards(tenant_id);

		CREATE TABLE IF NOT EXISTS feedback (
			id         TEXT PRIMARY KEY,
			mission_id TEXT NOT NULL,
			author     TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (mission_id) REFERENCES missions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_feedback_mission ON feedback(mission_id, created_at);

		CREATE TABLE IF NOT EXISTS telemetry_events (
			id           TEXT PRIMARY KEY,
			tenant_id    TEXT NOT NULL,
			event_type   TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			created_at   DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_telemetry_tenant ON telemetry_events(tenant_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMission inserts a new mission row.
func (s *SQLiteStore) CreateMission(ctx context.Context, m *Mission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO missions (id, tenant_id, name, objective, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.TenantID, m.Name, m.Objective, m.Status, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting mission: %w", err)
	}
	return nil
}

// GetMission fetches a mission by ID within a tenant.
func (s *SQLiteStore) GetMission(ctx context.Context, tenantID, id string) (*Mission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, objective, status, created_at, updated_at
		 FROM missions WHERE id = ? AND tenant_id = ?`, id, tenantID)

	var m Mission
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Objective, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning mission: %w", err)
	}
	return &m, nil
}

// ListMissions returns all missions for a tenant, newest first.
func (s *SQLiteStore) ListMissions(ctx context.Context, tenantID string) ([]*Mission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, name, objective, status, created_at, updated_at
		 FROM missions WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying missions: %w", err)
	}
	defer rows.Close()

	var missions []*Mission
	for rows.Next() {
		var m Mission
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Name, &m.Objective, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning mission: %w", err)
		}
		missions = append(missions, &m)
	}
	return missions, rows.Err()
}

// UpdateMissionStatus transitions a mission to a new status.
func (s *SQLiteStore) UpdateMissionStatus(ctx context.Context, tenantID, id string, status MissionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE missions SET status = ?, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		status, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("updating mission status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePlay inserts a play after verifying its mission belongs to the tenant.
func (s *SQLiteStore) CreatePlay(ctx context.Context, tenantID string, p *Play) error {
	if _, err := s.GetMission(ctx, tenantID, p.MissionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plays (id, mission_id, name, sequence, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.MissionID, p.Name, p.Sequence, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting play: %w", err)
	}
	return nil
}

// GetPlay fetches a play by ID, tenant-scoped through its mission.
func (s *SQLiteStore) GetPlay(ctx context.Context, tenantID, id string) (*Play, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT p.id, p.mission_id, p.name, p.sequence, p.created_at
		 FROM plays p JOIN missions m ON m.id = p.mission_id
		 WHERE p.id = ? AND m.tenant_id = ?`, id, tenantID)

	var p Play
	err := row.Scan(&p.ID, &p.MissionID, &p.Name, &p.Sequence, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning play: %w", err)
	}
	return &p, nil
}

// ListPlays returns the plays of a mission in sequence order.
func (s *SQLiteStore) ListPlays(ctx context.Context, tenantID, missionID string) ([]*Play, error) {
	if _, err := s.GetMission(ctx, tenantID, missionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mission_id, name, sequence, created_at
		 FROM plays WHERE mission_id = ? ORDER BY sequence`, missionID)
	if err != nil {
		return nil, fmt.Errorf("querying plays: %w", err)
	}
	defer rows.Close()

	var plays []*Play
	for rows.Next() {
		var p Play
		if err := rows.Scan(&p.ID, &p.MissionID, &p.Name, &p.Sequence, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning play: %w", err)
		}
		plays = append(plays, &p)
	}
	return plays, rows.Err()
}

// CreateSafeguard inserts a safeguard rule.
func (s *SQLiteStore) CreateSafeguard(ctx context.Context, sg *Safeguard) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO safeguards (id, tenant_id, rule, severity, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.TenantID, sg.Rule, sg.Severity, sg.Enabled, sg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting safeguard: %w", err)
	}
	return nil
}

// ListSafeguards returns all safeguards for a tenant.
func (s *SQLiteStore) ListSafeguards(ctx context.Context, tenantID string) ([]*Safeguard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, rule, severity, enabled, created_at
		 FROM safeguards WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying safeguards: %w", err)
	}
	defer rows.Close()

	var safeguards []*Safeguard
	for rows.Next() {
		var sg Safeguard
		if err := rows.Scan(&sg.ID, &sg.TenantID, &sg.Rule, &sg.Severity, &sg.Enabled, &sg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning safeguard: %w", err)
		}
		safeguards = append(safeguards, &sg)
	}
	return safeguards, rows.Err()
}

// CreateFeedback inserts feedback after verifying the mission belongs to the tenant.
func (s *SQLiteStore) CreateFeedback(ctx context.Context, tenantID string, f *Feedback) error {
	if _, err := s.GetMission(ctx, tenantID, f.MissionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, mission_id, author, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.MissionID, f.Author, f.Body, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the feedback for a mission, oldest first.
func (s *SQLiteStore) ListFeedback(ctx context.Context, tenantID, missionID string) ([]*Feedback, error) {
	if _, err := s.GetMission(ctx, tenantID, missionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mission_id, author, body, created_at
		 FROM feedback WHERE mission_id = ? ORDER BY created_at`, missionID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var items []*Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.MissionID, &f.Author, &f.Body, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}

// AppendTelemetry journals one telemetry event.
func (s *SQLiteStore) AppendTelemetry(ctx context.Context, e *TelemetryEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO telemetry_events (id, tenant_id, event_type, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.EventType, e.Payload, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting telemetry event: %w", err)
	}
	return nil
}

// ListTelemetry returns the most recent telemetry events for a tenant.
func (s *SQLiteStore) ListTelemetry(ctx context.Context, tenantID string, limit int) ([]*TelemetryEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, event_type, payload_json, created_at
		 FROM telemetry_events WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?`,
		tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry events: %w", err)
	}
	defer rows.Close()

	var events []*TelemetryEvent
	for rows.Next() {
		var e TelemetryEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning telemetry event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
