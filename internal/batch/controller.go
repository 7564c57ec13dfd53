// Package batch drives an asynchronous render job from submission
// through completion. Polls are chained, never interval-based: each
// response schedules at most one follow-up fetch, so a slow server
// delays the next poll instead of overlapping it.
package batch

import (
	"context"
	"sync"
	"time"

	"mockup/internal/apiclient"
	"mockup/internal/models"
	"mockup/internal/pkg/errors"
	"mockup/internal/pkg/logger"
)

// API is the slice of the service the controller needs.
type API interface {
	StartBatch(ctx context.Context, br apiclient.BatchRequest) (string, error)
	GetJob(ctx context.Context, jobID string) (models.Job, error)
}

// State of the controller's most recent submission.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateDone       State = "done"
)

// PollInterval is the delay between a poll response and the next fetch.
const PollInterval = 1500 * time.Millisecond

// Options tune a batch submission.
type Options struct {
	SkipProcessed    bool
	IdentifierColumn string
}

// Controller owns the active job and its polling chain. A new
// submission supersedes the previous one: the old chain's continuation
// notices its handle is no longer current and drops its result.
type Controller struct {
	api      API
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	state   State
	job     models.Job
	current *Handle
}

func NewController(api API, log *logger.Logger) *Controller {
	return &Controller{
		api:      api,
		log:      log.WithComponent("batch"),
		interval: PollInterval,
		state:    StateIdle,
	}
}

// SetPollInterval overrides the chain delay. Tests use this.
func (c *Controller) SetPollInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.interval = d
	}
}

// Handle identifies one submitted job and carries its cancellation.
type Handle struct {
	JobID string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the polling chain before its next continuation. The
// server keeps running the job; cancellation is purely client-side.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed when the chain stops: terminal status, error or
// cancellation.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Submit validates, starts a batch job and begins its polling chain.
// Validation failures are rejected before any network call.
func (c *Controller) Submit(ctx context.Context, br apiclient.BatchRequest, opts Options) (*Handle, error) {
	if opts.SkipProcessed && opts.IdentifierColumn == "" {
		return nil, errors.ValidationField("identifier_column", "identifier column is required when skipping processed rows")
	}
	br.SkipProcessed = opts.SkipProcessed
	br.IdentifierColumn = opts.IdentifierColumn

	c.mu.Lock()
	c.state = StateSubmitting
	c.mu.Unlock()

	jobID, err := c.api.StartBatch(ctx, br)
	if err != nil {
		c.mu.Lock()
		// A previous chain may still be live; its job keeps showing.
		switch {
		case c.current == nil:
			c.state = StateIdle
		case c.state == StateSubmitting:
			if c.job.Terminal() {
				c.state = StateDone
			} else {
				c.state = StatePolling
			}
		}
		c.mu.Unlock()
		return nil, errors.Wrap(err, "batch.submit", "start batch")
	}

	hctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		JobID:  jobID,
		ctx:    hctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	if prev := c.current; prev != nil {
		// Superseded: the old chain's next continuation will see it is
		// no longer current, but cancel it outright so it does not
		// sleep out its timer first.
		prev.cancel()
	}
	c.current = h
	c.state = StatePolling
	c.job = models.Job{JobID: jobID, Status: models.JobPending}
	c.mu.Unlock()

	c.log.Info("batch submitted", "job_id", jobID)
	go c.poll(h)
	return h, nil
}

// Job returns the latest stored job snapshot.
func (c *Controller) Job() models.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// poll runs the chained fetch loop for one handle. At most one fetch is
// in flight for the handle at any time.
func (c *Controller) poll(h *Handle) {
	defer close(h.done)
	log := c.log.WithJobID(h.JobID)

	for {
		if h.ctx.Err() != nil {
			log.Debug("poll chain cancelled")
			return
		}

		job, err := c.api.GetJob(h.ctx, h.JobID)
		if err != nil {
			// No automatic retry beyond the continuation already in
			// flight; the visible symptom is a stalled job display.
			log.Warn("job poll failed, chain stopped", "error", err.Error())
			return
		}

		if !c.store(h, job) {
			log.Debug("superseded, dropping poll result")
			return
		}

		if job.Terminal() {
			log.Info("job finished", "progress", job.Progress, "results", len(job.Results))
			return
		}

		select {
		case <-h.ctx.Done():
			log.Debug("poll chain cancelled during delay")
			return
		case <-time.After(c.pollInterval()):
		}
	}
}

// store writes the snapshot if h is still the current handle.
func (c *Controller) store(h *Handle, job models.Job) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != h {
		return false
	}
	c.job = job
	if job.Terminal() {
		c.state = StateDone
	}
	return true
}

func (c *Controller) pollInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}
