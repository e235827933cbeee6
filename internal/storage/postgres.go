package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SreyaSrinidhi/Job-Retrieval-System-Backend/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id            BIGSERIAL PRIMARY KEY,
    source        TEXT        NOT NULL,
    source_job_id TEXT        NOT NULL,
    title         TEXT        NOT NULL,
    company       TEXT        NOT NULL,
    location      TEXT,
    url           TEXT        NOT NULL,
    apply_url     TEXT,
    slug          TEXT,
    company_logo  TEXT,
    tags          TEXT[]      NOT NULL DEFAULT '{}',
    description   TEXT,
    date_posted   TIMESTAMPTZ,
    epoch         BIGINT,
    salary_min    INTEGER,
    salary_max    INTEGER,
    is_active     BOOLEAN     NOT NULL DEFAULT TRUE,
    last_seen_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (source, source_job_id)
);

CREATE INDEX IF NOT EXISTS idx_jobs_source_last_seen ON jobs (source, last_seen_at);
CREATE INDEX IF NOT EXISTS idx_jobs_feed_order ON jobs ((COALESCE(date_posted, created_at)) DESC);
`

// Postgres implements Store on a pgxpool connection pool. Each call borrows
// one pooled connection for its duration; nothing is held across calls.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the jobs table and its indexes if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InTx runs fn inside a single transaction. Any error from fn (or commit)
// rolls back every write — the batch is all-or-nothing.
func (p *Postgres) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListJobs returns the unified feed ordered by posted date, falling back to
// creation time for records without one. limit <= 0 returns all records.
func (p *Postgres) ListJobs(ctx context.Context, limit int) ([]model.JobRecord, error) {
	const base = `
		SELECT source, source_job_id, title, company,
		       COALESCE(location, ''), url, COALESCE(apply_url, ''),
		       COALESCE(slug, ''), COALESCE(company_logo, ''), tags,
		       COALESCE(description, ''), date_posted, COALESCE(epoch, 0),
		       salary_min, salary_max, is_active, last_seen_at, created_at, updated_at
		FROM jobs
		ORDER BY COALESCE(date_posted, created_at) DESC`

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = p.pool.Query(ctx, base+` LIMIT $1`, limit)
	} else {
		rows, err = p.pool.Query(ctx, base)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.JobRecord, 0)
	for rows.Next() {
		var j model.JobRecord
		if err := rows.Scan(
			&j.Source, &j.SourceJobID, &j.Title, &j.Company,
			&j.Location, &j.URL, &j.ApplyURL,
			&j.Slug, &j.CompanyLogo, &j.Tags,
			&j.Description, &j.DatePosted, &j.Epoch,
			&j.SalaryMin, &j.SalaryMax, &j.IsActive, &j.LastSeenAt, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list jobs scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// pgTx adapts a pgx transaction to the Tx interface.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) UpsertJob(ctx context.Context, job *model.JobRecord) error {
	var epoch *int64
	if job.Epoch > 0 {
		epoch = &job.Epoch
	}
	tags := job.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := t.tx.Exec(ctx,
		`INSERT INTO jobs (source, source_job_id, title, company, location, url,
		                   apply_url, slug, company_logo, tags, description,
		                   date_posted, epoch, salary_min, salary_max,
		                   is_active, last_seen_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6,
		         NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''),
		         $12, $13, $14, $15,
		         TRUE, NOW(), NOW(), NOW())
		 ON CONFLICT (source, source_job_id) DO UPDATE SET
		     title        = EXCLUDED.title,
		     company      = EXCLUDED.company,
		     location     = EXCLUDED.location,
		     url          = EXCLUDED.url,
		     apply_url    = EXCLUDED.apply_url,
		     slug         = EXCLUDED.slug,
		     company_logo = EXCLUDED.company_logo,
		     tags         = EXCLUDED.tags,
		     description  = EXCLUDED.description,
		     date_posted  = EXCLUDED.date_posted,
		     epoch        = EXCLUDED.epoch,
		     salary_min   = EXCLUDED.salary_min,
		     salary_max   = EXCLUDED.salary_max,
		     is_active    = TRUE,
		     last_seen_at = NOW(),
		     updated_at   = NOW()`,
		job.Source, job.SourceJobID, job.Title, job.Company, job.Location, job.URL,
		job.ApplyURL, job.Slug, job.CompanyLogo, tags, job.Description,
		job.DatePosted, epoch, job.SalaryMin, job.SalaryMax,
	)
	if err != nil {
		return fmt.Errorf("upsert job %s/%s: %w", job.Source, job.SourceJobID, err)
	}
	return nil
}

func (t *pgTx) DeactivateStale(ctx context.Context, source string, cutoff time.Time) (int64, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE jobs
		 SET is_active = FALSE, updated_at = NOW()
		 WHERE source = $1 AND is_active AND last_seen_at < $2`,
		source, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale %s: %w", source, err)
	}
	return tag.RowsAffected(), nil
}
