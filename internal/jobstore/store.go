package jobstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store backed by a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// Put stores a job. In ModeConflict an existing id is rejected with
// ErrConflict and the stored row is left untouched; in ModeReplace the
// row is overwritten.
func (s *SQLiteStore) Put(ctx context.Context, job Job, mode PutMode) error {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("jobstore: marshal payload: %w", err)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	verb := "INSERT OR IGNORE"
	if mode == ModeReplace {
		verb = "INSERT OR REPLACE"
	}

	result, err := s.db.ExecContext(ctx, verb+` INTO jobs
		(id, kind, trigger_kind, run_at, every_ns, cron_expr, payload, next_run, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Kind, string(job.Trigger.Kind),
		formatTime(job.Trigger.At), int64(job.Trigger.Every), job.Trigger.Cron,
		string(payloadJSON), formatTime(job.NextRun),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUnavailable, job.ID, err)
	}

	if mode == ModeConflict {
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: put %s: rows affected: %v", ErrUnavailable, job.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrConflict, job.ID)
		}
	}

	return nil
}

// Get returns the job with the given id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, trigger_kind, run_at, every_ns, cron_expr, payload, next_run, created_at
		FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, id, err)
	}
	return job, nil
}

// Delete removes a job by id. The bool reports whether a row existed.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", ErrUnavailable, id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: rows affected: %v", ErrUnavailable, id, err)
	}
	return n > 0, nil
}

// List returns all persisted jobs ordered by next activation time.
func (s *SQLiteStore) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, trigger_kind, run_at, every_ns, cron_expr, payload, next_run, created_at
		FROM jobs ORDER BY next_run`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("jobstore: scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list rows: %v", ErrUnavailable, err)
	}
	return jobs, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanJob(scan func(dest ...any) error) (*Job, error) {
	var (
		job          Job
		triggerKind  string
		runAtStr     string
		everyNS      int64
		payloadJSON  string
		nextRunStr   string
		createdAtStr string
	)

	if err := scan(&job.ID, &job.Kind, &triggerKind, &runAtStr, &everyNS,
		&job.Trigger.Cron, &payloadJSON, &nextRunStr, &createdAtStr); err != nil {
		return nil, err
	}

	job.Trigger.Kind = TriggerKind(triggerKind)
	job.Trigger.Every = time.Duration(everyNS)

	var err error
	if job.Trigger.At, err = parseTime(runAtStr); err != nil {
		return nil, fmt.Errorf("parse run_at %q: %w", runAtStr, err)
	}
	if job.NextRun, err = parseTime(nextRunStr); err != nil {
		return nil, fmt.Errorf("parse next_run %q: %w", nextRunStr, err)
	}
	if job.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAtStr, err)
	}

	if payloadJSON != "" && payloadJSON != "{}" && payloadJSON != "null" {
		// UseNumber keeps 64-bit chat and user ids exact.
		dec := json.NewDecoder(bytes.NewReader([]byte(payloadJSON)))
		dec.UseNumber()
		if err := dec.Decode(&job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}

	return &job, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
