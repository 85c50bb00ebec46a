// Package runlog keeps the history of job runs in PostgreSQL.
package runlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/store"
)

// Migrations creates the job_runs table.
var Migrations = []store.Migration{{
	Version: "001_create_job_runs",
	SQL: `
		CREATE TABLE IF NOT EXISTS job_runs (
			run_id           VARCHAR(64) PRIMARY KEY,
			job              VARCHAR(64) NOT NULL,
			status           VARCHAR(16) NOT NULL,
			fetched          INTEGER NOT NULL DEFAULT 0,
			added            INTEGER NOT NULL DEFAULT 0,
			replaced         INTEGER NOT NULL DEFAULT 0,
			skipped          INTEGER NOT NULL DEFAULT 0,
			fallbacks        INTEGER NOT NULL DEFAULT 0,
			errors           INTEGER NOT NULL DEFAULT 0,
			total            INTEGER NOT NULL DEFAULT 0,
			progress_current INTEGER NOT NULL DEFAULT 0,
			progress_total   INTEGER NOT NULL DEFAULT 0,
			last_error       TEXT,
			parts            JSONB,
			started_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at      TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS job_runs_job_started_idx ON job_runs (job, started_at DESC);
	`,
}}

// Run is a job_runs row.
type Run struct {
	RunID           string         `db:"run_id"`
	Job             string         `db:"job"`
	Status          jobs.Status    `db:"status"`
	Fetched         int            `db:"fetched"`
	Added           int            `db:"added"`
	Replaced        int            `db:"replaced"`
	Skipped         int            `db:"skipped"`
	Fallbacks       int            `db:"fallbacks"`
	Errors          int            `db:"errors"`
	Total           int            `db:"total"`
	ProgressCurrent int            `db:"progress_current"`
	ProgressTotal   int            `db:"progress_total"`
	LastError       sql.NullString `db:"last_error"`
	Parts           sql.NullString `db:"parts"`
	StartedAt       time.Time      `db:"started_at"`
	FinishedAt      sql.NullTime   `db:"finished_at"`
}

// FromSummary converts a finished run into a row.
func FromSummary(s jobs.Summary) (Run, error) {
	r := Run{
		RunID:     s.RunID,
		Job:       s.Job,
		Status:    s.Status,
		Fetched:   s.Fetched,
		Added:     s.Added,
		Replaced:  s.Replaced,
		Skipped:   s.Skipped,
		Fallbacks: s.Fallbacks,
		Errors:    s.Errors,
		Total:     s.Total,
		LastError: sql.NullString{String: s.LastError, Valid: s.LastError != ""},
		StartedAt: s.Started,
	}
	if !s.Finished.IsZero() {
		r.FinishedAt = sql.NullTime{Time: s.Finished, Valid: true}
	}
	if len(s.Parts) > 0 {
		raw, err := sonic.Marshal(s.Parts)
		if err != nil {
			return Run{}, errors.Wrap(err, "encode parts")
		}
		r.Parts = sql.NullString{String: string(raw), Valid: true}
	}
	return r, nil
}

// Summary converts the row back into a run summary.
func (r Run) Summary() jobs.Summary {
	s := jobs.Summary{
		RunID:     r.RunID,
		Job:       r.Job,
		Status:    r.Status,
		Fetched:   r.Fetched,
		Added:     r.Added,
		Replaced:  r.Replaced,
		Skipped:   r.Skipped,
		Fallbacks: r.Fallbacks,
		Errors:    r.Errors,
		Total:     r.Total,
		LastError: r.LastError.String,
		Started:   r.StartedAt,
	}
	if r.FinishedAt.Valid {
		s.Finished = r.FinishedAt.Time
	}
	if r.Parts.Valid {
		// a corrupt parts column only loses the breakdown
		_ = sonic.UnmarshalString(r.Parts.String, &s.Parts)
	}
	return s
}

// Repository handles persistence for job runs.
type Repository struct {
	db *store.Database
}

// NewRepository constructs a Repository.
func NewRepository(db *store.Database) *Repository {
	return &Repository{db: db}
}

// Migrate creates the schema.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.Migrate(ctx, Migrations...)
}

// Start records a running job.
func (r *Repository) Start(ctx context.Context, runID, job string, started time.Time) error {
	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO job_runs (run_id, job, status, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO NOTHING
	`, runID, job, string(jobs.StatusRunning), started)
	if err != nil {
		return errors.Wrap(err, "insert run")
	}
	return nil
}

// UpdateProgress updates the progress counters of a running job.
func (r *Repository) UpdateProgress(ctx context.Context, runID string, current, total int) error {
	_, err := r.db.DB().ExecContext(ctx, `
		UPDATE job_runs
		SET progress_current = $2,
			progress_total = $3
		WHERE run_id = $1 AND status = 'running'
	`, runID, current, total)
	if err != nil {
		return errors.Wrap(err, "update run progress")
	}
	return nil
}

// RecordError stores the last error of a running job.
func (r *Repository) RecordError(ctx context.Context, runID string, runErr error) error {
	if runErr == nil {
		return nil
	}
	_, err := r.db.DB().ExecContext(ctx, `UPDATE job_runs SET last_error = $2 WHERE run_id = $1`, runID, runErr.Error())
	if err != nil {
		return errors.Wrap(err, "record run error")
	}
	return nil
}

// Complete stores the final counters of a run, inserting the row when Start
// was never recorded.
func (r *Repository) Complete(ctx context.Context, s jobs.Summary) error {
	run, err := FromSummary(s)
	if err != nil {
		return err
	}
	_, err = r.db.DB().NamedExecContext(ctx, `
		INSERT INTO job_runs (
			run_id, job, status, fetched, added, replaced, skipped, fallbacks,
			errors, total, last_error, parts, started_at, finished_at
		)
		VALUES (
			:run_id, :job, :status, :fetched, :added, :replaced, :skipped, :fallbacks,
			:errors, :total, :last_error, :parts, :started_at, :finished_at
		)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			fetched = EXCLUDED.fetched,
			added = EXCLUDED.added,
			replaced = EXCLUDED.replaced,
			skipped = EXCLUDED.skipped,
			fallbacks = EXCLUDED.fallbacks,
			errors = EXCLUDED.errors,
			total = EXCLUDED.total,
			last_error = COALESCE(EXCLUDED.last_error, job_runs.last_error),
			parts = EXCLUDED.parts,
			finished_at = EXCLUDED.finished_at
	`, run)
	if err != nil {
		return errors.Wrap(err, "complete run")
	}
	return nil
}

// ResetStuckRuns marks runs left running by a previous process as
// interrupted.
func (r *Repository) ResetStuckRuns(ctx context.Context) (int64, error) {
	res, err := r.db.DB().ExecContext(ctx, `
		UPDATE job_runs
		SET status = 'interrupted',
			finished_at = NOW()
		WHERE status = 'running'
	`)
	if err != nil {
		return 0, errors.Wrap(err, "reset stuck runs")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Recent returns up to limit runs, newest first. An empty job matches
// every job.
func (r *Repository) Recent(ctx context.Context, job string, limit int) ([]jobs.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	if err := r.db.DB().SelectContext(ctx, &runs, `
		SELECT `+columns+`
		FROM job_runs
		WHERE ($1 = '' OR job = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`, job, limit); err != nil {
		return nil, errors.Wrap(err, "list recent runs")
	}
	out := make([]jobs.Summary, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.Summary())
	}
	return out, nil
}

const columns = `run_id, job, status, fetched, added, replaced, skipped, fallbacks, errors, total,
		progress_current, progress_total, last_error, parts, started_at, finished_at`
