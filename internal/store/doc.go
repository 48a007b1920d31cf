// Package store persists mission control-plane records in SQLite.
//
// Records: missions, plays, safeguards, feedback, and a telemetry journal.
// Every read and write is tenant-scoped; a lookup for a row owned by a
// different tenant returns ErrNotFound.
//
// The schema is created automatically on open (WAL mode, foreign keys on).
package store
