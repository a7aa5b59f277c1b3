package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditRun represents a row in the audit_runs table.
type AuditRun struct {
	ID         int64
	RunID      string
	Dir        string
	Manager    string
	Command    string
	Status     string
	Verdict    string
	Low        int
	Moderate   int
	High       int
	Critical   int
	ExitCode   int
	DurationMs int
	Summary    string
	RecordedAt time.Time
}

const auditRunColumns = `id, run_id, dir, manager, command, status, verdict,
	low_count, moderate_count, high_count, critical_count, exit_code, duration_ms, summary, recorded_at`

// LogAuditRun inserts an audit run and returns its run ID. A missing RunID is
// generated and a zero RecordedAt is set to now.
func (d *DB) LogAuditRun(run AuditRun) (string, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.RecordedAt.IsZero() {
		run.RecordedAt = time.Now()
	}

	_, err := d.conn.Exec(d.rebind(
		`INSERT INTO audit_runs (run_id, dir, manager, command, status, verdict,
		 low_count, moderate_count, high_count, critical_count, exit_code, duration_ms, summary, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.RunID, run.Dir, run.Manager, run.Command, run.Status, run.Verdict,
		run.Low, run.Moderate, run.High, run.Critical, run.ExitCode, run.DurationMs, run.Summary,
		run.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("log audit run: %w", err)
	}
	return run.RunID, nil
}

// GetAuditHistory returns audit runs newest first. An empty dir returns runs
// for every directory; limit <= 0 means 50.
func (d *DB) GetAuditHistory(dir string, limit int) ([]AuditRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + auditRunColumns + ` FROM audit_runs`
	args := []any{}
	if dir != "" {
		query += ` WHERE dir = ?`
		args = append(args, dir)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.Query(d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("get audit history: %w", err)
	}
	defer rows.Close()

	var runs []AuditRun
	for rows.Next() {
		r, err := scanAuditRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetLatestAuditRun returns the most recent run for dir, or nil if none exist.
func (d *DB) GetLatestAuditRun(dir string) (*AuditRun, error) {
	row := d.conn.QueryRow(d.rebind(
		`SELECT `+auditRunColumns+` FROM audit_runs WHERE dir = ? ORDER BY id DESC LIMIT 1`),
		dir,
	)
	r, err := scanAuditRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest audit run: %w", err)
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditRun(s rowScanner) (*AuditRun, error) {
	var r AuditRun
	var durationMs sql.NullInt64
	var summary sql.NullString
	var recordedAt string
	if err := s.Scan(&r.ID, &r.RunID, &r.Dir, &r.Manager, &r.Command, &r.Status, &r.Verdict,
		&r.Low, &r.Moderate, &r.High, &r.Critical, &r.ExitCode, &durationMs, &summary, &recordedAt); err != nil {
		return nil, err
	}
	if durationMs.Valid {
		r.DurationMs = int(durationMs.Int64)
	}
	if summary.Valid {
		r.Summary = summary.String
	}
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	r.RecordedAt = t
	return &r, nil
}
