package repositories

import (
	"context"
	"errors"

	"mockup/internal/httpkit"
	"mockup/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrJobNotFound = errors.New("job not found")
var ErrJobExists = errors.New("job id already exists")

type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, j *models.JobRecord) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO jobs (id, template_id, csv_path, mapping, rows, results,
		                  status, progress, skip_processed, identifier_column)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, j.ID, j.TemplateID, j.CSVPath, j.Mapping, j.Rows, j.Results,
		j.Status, j.Progress, j.SkipProcessed, j.IdentifierColumn,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrJobExists
		}
		return err
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	var j models.JobRecord
	err := r.db.QueryRow(ctx, `
		SELECT id, template_id, csv_path, mapping, rows, results,
		       status, progress, skip_processed, identifier_column,
		       created_at, updated_at
		FROM jobs
		WHERE id=$1
	`, id).Scan(
		&j.ID, &j.TemplateID, &j.CSVPath, &j.Mapping, &j.Rows, &j.Results,
		&j.Status, &j.Progress, &j.SkipProcessed, &j.IdentifierColumn,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *JobRepository) MarkRunning(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, models.JobRunning)
}

func (r *JobRepository) MarkDone(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs SET status=$2, progress=100, updated_at=now() WHERE id=$1
	`, id, models.JobDone)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// SetRowResult stores one row outcome and the new progress in a single
// statement, so a crash between rows never leaves the two out of sync.
func (r *JobRepository) SetRowResult(ctx context.Context, id string, idx int, res models.JobResult, progress int) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET results = jsonb_set(results, ARRAY[$2::text], $3::jsonb),
		    progress = $4,
		    updated_at = now()
		WHERE id=$1
	`, id, idx, res, progress)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Fail moves the job to its terminal status after a run-level failure.
// Rows still pending become errors carrying the reason; already stored
// outcomes are kept. One statement, so pollers never observe a done job
// with pending rows.
func (r *JobRepository) Fail(ctx context.Context, id, reason string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET results = (
		      SELECT COALESCE(jsonb_agg(
		               CASE WHEN elem->>'status' = 'pending'
		                    THEN jsonb_set(jsonb_set(elem, '{status}', '"error"'),
		                                   '{error}', to_jsonb($2::text))
		                    ELSE elem
		               END ORDER BY ord), '[]'::jsonb)
		      FROM jsonb_array_elements(results) WITH ORDINALITY AS t(elem, ord)
		    ),
		    status = 'done',
		    progress = 100,
		    updated_at = now()
		WHERE id = $1
	`, id, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) setStatus(ctx context.Context, id string, st models.JobStatus) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs SET status=$2, updated_at=now() WHERE id=$1
	`, id, st)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}
