// Package store persists jobs, applications and daily rollups.
// It is transport-agnostic business storage in the style of a service layer:
// raw SQL against a pgx pool, no ORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpilot/agent-service/internal/model"
)

// ErrNotFound is returned when a referenced job or row does not exist.
var ErrNotFound = errors.New("not found")

// Store encapsulates all job/application persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a configured Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UpsertJob inserts a job or, when the natural key already exists, replaces
// its mutable fields (score, status, text fields, updated_at). Last write
// wins — re-ingestion is an overwrite, not a merge.
func (s *Store) UpsertJob(ctx context.Context, job model.Job) error {
	if job.Key == "" {
		return fmt.Errorf("upsert job: empty job key")
	}
	if job.Status == "" {
		job.Status = model.JobDiscovered
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (job_key, title, company, location, description, requirements,
		                   salary_range, experience_text, posted_date, source, source_url,
		                   match_score, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		 ON CONFLICT (job_key) DO UPDATE SET
		   title           = EXCLUDED.title,
		   company         = EXCLUDED.company,
		   location        = EXCLUDED.location,
		   description     = EXCLUDED.description,
		   requirements    = EXCLUDED.requirements,
		   salary_range    = EXCLUDED.salary_range,
		   experience_text = EXCLUDED.experience_text,
		   posted_date     = EXCLUDED.posted_date,
		   match_score     = EXCLUDED.match_score,
		   status          = EXCLUDED.status,
		   updated_at      = NOW()`,
		job.Key, job.Title, job.Company, job.Location, job.Description, job.Requirements,
		job.SalaryRange, job.ExperienceText, job.PostedDate, job.Source, job.SourceURL,
		job.MatchScore, string(job.Status),
	)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.Key, err)
	}
	return nil
}

// ListJobs returns up to limit jobs, newest first. An empty status returns
// jobs in any status.
func (s *Store) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 10
	}

	const base = `
		SELECT job_key, title, company, location, description, requirements,
		       salary_range, experience_text, posted_date, source, source_url,
		       match_score, status, created_at, updated_at
		FROM jobs`

	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = s.pool.Query(ctx, base+` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`,
			string(status), limit)
	} else {
		rows, err = s.pool.Query(ctx, base+` ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0, limit)
	for rows.Next() {
		var (
			j      model.Job
			status string
		)
		if err := rows.Scan(
			&j.Key, &j.Title, &j.Company, &j.Location, &j.Description, &j.Requirements,
			&j.SalaryRange, &j.ExperienceText, &j.PostedDate, &j.Source, &j.SourceURL,
			&j.MatchScore, &status, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list jobs scan: %w", err)
		}
		j.Status = model.JobStatus(status)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// RecordApplication appends an application row. The referenced job must
// exist; a foreign-key violation surfaces as an error.
func (s *Store) RecordApplication(ctx context.Context, app model.Application) error {
	if app.ID == "" {
		return fmt.Errorf("record application: empty id")
	}
	if app.Status == "" {
		app.Status = model.AppPending
	}
	appliedAt := app.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO applications (id, job_key, status, cover_letter_path, applied_at,
		                           response_received_at, response_status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID, app.JobKey, string(app.Status), app.CoverLetterPath, appliedAt,
		app.ResponseReceivedAt, app.ResponseStatus, app.Notes,
	)
	if err != nil {
		return fmt.Errorf("record application for job %s: %w", app.JobKey, err)
	}
	return nil
}

// UpdateApplication sets the status and response fields of an existing
// application row, stamping response_received_at.
func (s *Store) UpdateApplication(ctx context.Context, id string, status model.ApplicationStatus, responseStatus string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE applications
		 SET status = $1, response_status = $2, response_received_at = NOW()
		 WHERE id = $3`,
		string(status), responseStatus, id,
	)
	if err != nil {
		return fmt.Errorf("update application %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionJob updates a job's status field. The caller (the agent) is
// responsible for only requesting sanctioned edges; the store merely
// validates the edge and rejects unknown jobs.
func (s *Store) TransitionJob(ctx context.Context, key string, from, to model.JobStatus) error {
	if !model.CanTransition(from, to) {
		return fmt.Errorf("transition %s → %s is not allowed", from, to)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = NOW()
		 WHERE job_key = $2 AND status = $3`,
		string(to), key, string(from),
	)
	if err != nil {
		return fmt.Errorf("transition job %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertDailyStats writes the rollup row for date (YYYY-MM-DD), replacing
// any existing row — idempotent per date.
func (s *Store) UpsertDailyStats(ctx context.Context, date string, jobsFound, applicationsSent int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO daily_stats (stat_date, jobs_found, applications_sent)
		 VALUES ($1::date, $2, $3)
		 ON CONFLICT (stat_date) DO UPDATE SET
		   jobs_found        = EXCLUDED.jobs_found,
		   applications_sent = EXCLUDED.applications_sent`,
		date, jobsFound, applicationsSent,
	)
	if err != nil {
		return fmt.Errorf("upsert daily stats %s: %w", date, err)
	}
	return nil
}

// RecentStats returns the rollup rows for the last days days, newest first.
func (s *Store) RecentStats(ctx context.Context, days int) ([]model.DailyStat, error) {
	if days <= 0 {
		days = 7
	}

	rows, err := s.pool.Query(ctx,
		`SELECT stat_date::text, jobs_found, applications_sent
		 FROM daily_stats
		 WHERE stat_date >= CURRENT_DATE - $1::int
		 ORDER BY stat_date DESC`,
		days,
	)
	if err != nil {
		return nil, fmt.Errorf("recent stats: %w", err)
	}
	defer rows.Close()

	stats := make([]model.DailyStat, 0, days)
	for rows.Next() {
		var st model.DailyStat
		if err := rows.Scan(&st.Date, &st.JobsFound, &st.ApplicationsSent); err != nil {
			return nil, fmt.Errorf("recent stats scan: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
