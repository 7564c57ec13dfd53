package models

import (
	"errors"
	"time"
)

// JobStatus is the lifecycle of a batch job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
)

// RowStatus is the per-row outcome inside a job.
type RowStatus string

const (
	RowPending RowStatus = "pending"
	RowDone    RowStatus = "done"
	RowError   RowStatus = "error"
	RowSkipped RowStatus = "skipped"
)

// JobResult is the outcome of rendering one CSV row.
type JobResult struct {
	Row    int       `json:"row"`
	Status RowStatus `json:"status"`
	URL    string    `json:"url,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Job is the polled view of a batch-rendering task.
type Job struct {
	JobID    string      `json:"job_id"`
	Status   JobStatus   `json:"status"`
	Progress int         `json:"progress"`
	Results  []JobResult `json:"results"`
}

// Terminal reports whether polling should stop.
func (j Job) Terminal() bool { return j.Status == JobDone }

// JobRecord is the server-side state of a batch job. Job is the slice
// of it that the polling endpoint exposes.
type JobRecord struct {
	ID               string
	TemplateID       string
	CSVPath          string
	Mapping          map[string]string
	Rows             []map[string]string
	Results          []JobResult
	Status           JobStatus
	Progress         int
	SkipProcessed    bool
	IdentifierColumn string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// View projects the record onto the wire shape the poller consumes.
func (r *JobRecord) View() Job {
	return Job{
		JobID:    r.ID,
		Status:   r.Status,
		Progress: r.Progress,
		Results:  r.Results,
	}
}

// PreviewItem is one rendered sample row, replaced wholesale on every
// preview request.
type PreviewItem struct {
	Row         int    `json:"row"`
	ImageBase64 string `json:"image_base64"`
}

// Validation errors shared by the editor and the HTTP surface.
var (
	ErrVariableIDEmpty     = errors.New("variable id is empty")
	ErrVariableIDDuplicate = errors.New("duplicate variable id")
	ErrVariableTypeUnknown = errors.New("unknown variable type")
	ErrVariableNotFound    = errors.New("variable not found")
)
