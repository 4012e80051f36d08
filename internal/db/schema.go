package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the full DDL for the agent's tables. Statements are
// idempotent so EnsureSchema can run unconditionally at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		job_key         TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		company         TEXT NOT NULL,
		location        TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		requirements    TEXT NOT NULL DEFAULT '',
		salary_range    TEXT NOT NULL DEFAULT '',
		experience_text TEXT NOT NULL DEFAULT '',
		posted_date     TEXT NOT NULL DEFAULT '',
		source          TEXT NOT NULL,
		source_url      TEXT NOT NULL,
		match_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
		status          TEXT NOT NULL DEFAULT 'discovered',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS applications (
		id                   TEXT PRIMARY KEY,
		job_key              TEXT NOT NULL REFERENCES jobs (job_key),
		status               TEXT NOT NULL DEFAULT 'pending',
		cover_letter_path    TEXT NOT NULL DEFAULT '',
		applied_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		response_received_at TIMESTAMPTZ,
		response_status      TEXT NOT NULL DEFAULT '',
		notes                TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS credentials (
		source      TEXT PRIMARY KEY,
		username_ct BYTEA,
		password_ct BYTEA,
		extra_ct    BYTEA,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS daily_stats (
		stat_date         DATE PRIMARY KEY,
		jobs_found        INTEGER NOT NULL DEFAULT 0,
		applications_sent INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_status_created
		ON jobs (status, created_at DESC)`,
}

// EnsureSchema creates the agent's tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
