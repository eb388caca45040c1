package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-jobsearch-agent/internal/models"
)

const SourceLinkedIn = "linkedin"

const schema = `
CREATE TABLE IF NOT EXISTS search_runs (
	id          UUID PRIMARY KEY,
	keywords    TEXT NOT NULL,
	location    TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	status      TEXT NOT NULL,
	total_found INTEGER NOT NULL DEFAULT 0,
	message     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	source          TEXT NOT NULL,
	external_id     TEXT NOT NULL,
	search_run_id   UUID REFERENCES search_runs(id) ON DELETE SET NULL,
	title           TEXT NOT NULL,
	company         TEXT NOT NULL,
	location        TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL,
	description_raw TEXT NOT NULL DEFAULT '',
	posted_text     TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, external_id)
);`

var ErrRunNotFound = errors.New("search run not found")

type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	// Transaction-mode poolers (PgBouncer, Supabase) reject prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// Migrate creates the tables the sink writes to.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ---------------- SEARCH RUNS ----------------

func (r *Repository) CreateSearchRun(ctx context.Context, id string, q models.SearchQuery, strategy string) (*models.SearchRun, error) {
	run := models.SearchRun{}
	query := `
		INSERT INTO search_runs (id, keywords, location, strategy, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, keywords, location, strategy, status, total_found, message, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, id, q.Keywords, q.Location, strategy, models.SearchRunning).
		Scan(&run.ID, &run.Keywords, &run.Location, &run.Strategy, &run.Status, &run.TotalFound, &run.Message, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create search run: %w", err)
	}
	return &run, nil
}

// FinishSearchRun records how a run ended. message may be empty.
func (r *Repository) FinishSearchRun(ctx context.Context, id string, status models.SearchStatus, total int, message string) error {
	var msg *string
	if message != "" {
		msg = &message
	}
	tag, err := r.db.Exec(ctx,
		"UPDATE search_runs SET status = $1, total_found = $2, message = $3, updated_at = now() WHERE id = $4",
		status, total, msg, id)
	if err != nil {
		return fmt.Errorf("failed to finish search run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// ---------------- JOBS ----------------

// StoredJobFrom maps an extracted job onto its stored row.
func StoredJobFrom(job models.Job, runID string) models.StoredJob {
	sj := models.StoredJob{
		Source:      SourceLinkedIn,
		ExternalID:  job.ID,
		SearchRunID: runID,
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		URL:         job.SourceURL,
		Description: job.Description,
	}
	if job.PostedTimeText != "" {
		posted := job.PostedTimeText
		sj.PostedText = &posted
	}
	return sj
}

// SaveJob inserts a job or refreshes the existing row with the same source and external_id.
func (r *Repository) SaveJob(ctx context.Context, job *models.StoredJob) (*models.StoredJob, error) {
	query := `
		INSERT INTO jobs (source, external_id, search_run_id, title, company, location, url, description_raw, posted_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, external_id)
		DO UPDATE SET title = EXCLUDED.title, company = EXCLUDED.company, location = EXCLUDED.location,
			description_raw = EXCLUDED.description_raw, posted_text = EXCLUDED.posted_text, search_run_id = EXCLUDED.search_run_id
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, job.Source, job.ExternalID, job.SearchRunID, job.Title, job.Company,
		job.Location, job.URL, job.Description, job.PostedText).
		Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	return job, nil
}

// JobsForRun lists the jobs last saved by run id, oldest first.
func (r *Repository) JobsForRun(ctx context.Context, runID string) ([]models.StoredJob, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, source, external_id, search_run_id, title, company, location, url, description_raw, posted_text, created_at
		FROM jobs WHERE search_run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StoredJob, error) {
		var j models.StoredJob
		err := row.Scan(&j.ID, &j.Source, &j.ExternalID, &j.SearchRunID, &j.Title, &j.Company, &j.Location,
			&j.URL, &j.Description, &j.PostedText, &j.CreatedAt)
		return j, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return jobs, nil
}
