// Package history keeps a local SQLite ledger of encode and decode jobs so
// that request IDs and results can be looked up after a run has finished.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL DEFAULT '',
    kind          TEXT NOT NULL,
    media_id      TEXT NOT NULL,
    request_id    TEXT NOT NULL UNIQUE,
    source_path   TEXT NOT NULL DEFAULT '',
    output_path   TEXT NOT NULL DEFAULT '',
    outcome       TEXT NOT NULL,
    remote_status TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    attempts      INTEGER NOT NULL DEFAULT 0,
    started_at    TEXT NOT NULL,
    completed_at  TEXT NOT NULL,
    duration_ms   INTEGER NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_jobs_run_id ON jobs(run_id);
`

// ErrNotFound is returned when no job matches a lookup.
var ErrNotFound = errors.New("job not found")

// Store provides SQLite-backed storage for job records.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the ledger at dbPath and runs migrations.
func OpenStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Insert stores a job record. A second record for the same request ID
// replaces the first, so re-awaiting a job updates its outcome.
func (s *Store) Insert(r JobRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO jobs (
			run_id, kind, media_id, request_id,
			source_path, output_path,
			outcome, remote_status, error_message, attempts,
			started_at, completed_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			output_path   = excluded.output_path,
			outcome       = excluded.outcome,
			remote_status = excluded.remote_status,
			error_message = excluded.error_message,
			attempts      = excluded.attempts,
			completed_at  = excluded.completed_at,
			duration_ms   = excluded.duration_ms`,
		r.RunID, r.Kind, r.MediaID, r.RequestID,
		r.SourcePath, r.OutputPath,
		r.Outcome, r.RemoteStatus, r.ErrorMessage, r.Attempts,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.CompletedAt.UTC().Format(time.RFC3339Nano), r.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert job record: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, run_id, kind, media_id, request_id,
	       source_path, output_path,
	       outcome, remote_status, error_message, attempts,
	       started_at, completed_at, duration_ms
	FROM jobs`

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByRun returns the records of one workflow run in insertion order.
func (s *Store) ByRun(runID string) ([]JobRecord, error) {
	rows, err := s.db.Query(selectColumns+` WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByRequestID returns the record for a request ID or ErrNotFound.
func (s *Store) ByRequestID(requestID string) (*JobRecord, error) {
	rows, err := s.db.Query(selectColumns+` WHERE request_id = ?`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query request %s: %w", requestID, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

func scanRecords(rows *sql.Rows) ([]JobRecord, error) {
	var records []JobRecord
	for rows.Next() {
		var r JobRecord
		var startedAt, completedAt string
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Kind, &r.MediaID, &r.RequestID,
			&r.SourcePath, &r.OutputPath,
			&r.Outcome, &r.RemoteStatus, &r.ErrorMessage, &r.Attempts,
			&startedAt, &completedAt, &r.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, completedAt); err == nil {
			r.CompletedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
