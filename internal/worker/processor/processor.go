// Package processor renders every row of a queued batch job. Row
// failures are recorded on the job and never abort the run, and a
// run-level failure forces the remaining rows to error; either way the
// job reaches done so pollers stop.
package processor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mockup/internal/models"
	"mockup/internal/pkg/errors"
	"mockup/internal/pkg/logger"
	"mockup/internal/ports"
	"mockup/internal/render"
	"mockup/internal/repositories"
)

type Deps struct {
	Pool *pgxpool.Pool
	SP   ports.StorageProvider
	Log  *logger.Logger
}

// jobStore is the slice of the job repository the processor drives.
type jobStore interface {
	Get(ctx context.Context, id string) (*models.JobRecord, error)
	MarkRunning(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string) error
	SetRowResult(ctx context.Context, id string, idx int, res models.JobResult, progress int) error
	Fail(ctx context.Context, id, reason string) error
}

type templateStore interface {
	Get(ctx context.Context, id string) (*models.Template, error)
}

type processedStore interface {
	IsProcessed(ctx context.Context, identifier string) (bool, error)
	MarkProcessed(ctx context.Context, identifier string) error
}

type Processor struct {
	sp        ports.StorageProvider
	log       *logger.Logger
	jobs      jobStore
	templates templateStore
	processed processedStore
	comp      *render.Compositor
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	return &Processor{
		sp:        d.SP,
		log:       log.WithComponent("processor"),
		jobs:      repositories.NewJobRepository(d.Pool),
		templates: repositories.NewTemplateRepository(d.Pool),
		processed: repositories.NewProcessedRepository(d.Pool),
		comp:      render.NewCompositor(d.SP),
	}
}

// ProcessJob renders all rows of one job and marks it done. When the
// run itself fails the job is failed terminally instead of being left
// running forever.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		// The job row is unreadable; there is nothing to fail.
		return errors.Wrap(err, "processor.fetch", "fetch job")
	}
	if job.Status == models.JobDone {
		// Requeued duplicate, nothing to do.
		log.Info("job already done, skipping")
		return nil
	}

	if err := p.run(ctx, log, job); err != nil {
		p.failJob(ctx, log, jobID, err)
		return err
	}

	log.Info("all rows processed", "rows", len(job.Rows))
	return nil
}

func (p *Processor) run(ctx context.Context, log *logger.Logger, job *models.JobRecord) error {
	tpl, err := p.templates.Get(ctx, job.TemplateID)
	if err != nil {
		return errors.Wrap(err, "processor.template", "fetch template")
	}

	if err := p.jobs.MarkRunning(ctx, job.ID); err != nil {
		return errors.Wrap(err, "processor.status", "mark running")
	}

	total := len(job.Rows)
	for i, row := range job.Rows {
		res := p.processRow(ctx, job, tpl, i, row)

		progress := (i + 1) * 100 / total
		if err := p.jobs.SetRowResult(ctx, job.ID, i, res, progress); err != nil {
			// The render happened; losing the result row is worth a
			// retry of the whole job, so surface it.
			return errors.Wrap(err, "processor.result", fmt.Sprintf("store result for row %d", i))
		}

		if res.Status == models.RowError {
			log.Warn("row failed", "row", i, "error", res.Error)
		}
	}

	if err := p.jobs.MarkDone(ctx, job.ID); err != nil {
		return errors.Wrap(err, "processor.status", "mark done")
	}
	return nil
}

// failJob marks the job's unfinished rows as errored and the job done.
// Without a terminal status every poll chain on the job would wait
// forever.
func (p *Processor) failJob(ctx context.Context, log *logger.Logger, jobID string, cause error) {
	if err := p.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		log.Error("could not fail job terminally", "error", err.Error())
	}
}

func (p *Processor) processRow(ctx context.Context, job *models.JobRecord, tpl *models.Template, idx int, row map[string]string) models.JobResult {
	identifier := ""
	if job.SkipProcessed {
		identifier = row[job.IdentifierColumn]
		if identifier != "" {
			seen, err := p.processed.IsProcessed(ctx, identifier)
			if err != nil {
				return models.JobResult{Row: idx, Status: models.RowError, Error: "processed lookup: " + err.Error()}
			}
			if seen {
				return models.JobResult{Row: idx, Status: models.RowSkipped}
			}
		}
	}

	values := render.ResolveValues(tpl, job.Mapping, row)
	img, err := p.comp.Render(ctx, tpl, values, render.Options{})
	if err != nil {
		return models.JobResult{Row: idx, Status: models.RowError, Error: err.Error()}
	}

	var buf bytes.Buffer
	if err := render.EncodeJPEG(&buf, img); err != nil {
		return models.JobResult{Row: idx, Status: models.RowError, Error: "encode: " + err.Error()}
	}

	objectKey := fmt.Sprintf("renders/%s/row_%d.jpg", job.ID, idx)
	if _, err := p.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: "image/jpeg",
		Reader:      &buf,
		Size:        int64(buf.Len()),
	}); err != nil {
		return models.JobResult{Row: idx, Status: models.RowError, Error: "store: " + err.Error()}
	}

	if identifier != "" {
		if err := p.processed.MarkProcessed(ctx, identifier); err != nil {
			// The render shipped; a miss here only means the row may
			// render again on a future run.
			p.log.WithJobID(job.ID).Warn("mark processed failed", "identifier", identifier, "error", err.Error())
		}
	}

	return models.JobResult{Row: idx, Status: models.RowDone, URL: "/assets/" + objectKey}
}
