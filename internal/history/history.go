// Package history keeps an audit trail of completed import runs in
// PostgreSQL. The wizard itself never reads this back during a run; it is
// an after-the-fact record for operators.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunRecord is one completed import run.
type RunRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	AssessmentID string    `json:"assessmentId"`
	Filename     string    `json:"filename"`
	TotalRows    int       `json:"totalRows"`
	Created      int       `json:"created"`
	EmailsSent   int       `json:"emailsSent"`
	EmailsFailed int       `json:"emailsFailed"`
	ErrorCount   int       `json:"errorCount"`
	StartedAt    time.Time `json:"startedAt"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Store writes and lists import runs against PostgreSQL.
type Store struct{ db *sql.DB }

// New creates a Postgres-backed run store.
func New(db *sql.DB) *Store { return &Store{db: db} }

// RecordRun inserts one completed run.
func (s *Store) RecordRun(ctx context.Context, r RunRecord) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, session_id, assessment_id, filename, total_rows, created_count, emails_sent, emails_failed, error_count, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, r.SessionID, r.AssessmentID, r.Filename, r.TotalRows, r.Created, r.EmailsSent, r.EmailsFailed, r.ErrorCount, r.StartedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("record import run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, assessment_id, filename, total_rows, created_count, emails_sent, emails_failed, error_count, started_at, completed_at
		FROM import_runs
		ORDER BY completed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.AssessmentID, &r.Filename, &r.TotalRows, &r.Created, &r.EmailsSent, &r.EmailsFailed, &r.ErrorCount, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
