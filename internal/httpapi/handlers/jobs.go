package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mockup/internal/csvkit"
	"mockup/internal/httpkit"
	"mockup/internal/models"
	"mockup/internal/ports"
	"mockup/internal/repositories"
)

// StartBatch accepts the CSV plus mapping, persists the job and queues
// it for the worker. The response carries only the job id; everything
// else arrives through polling.
func (h *Handler) StartBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	templateID := r.FormValue("template_id")
	if templateID == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "template_id is required", map[string]any{"field": "template_id"})
		return
	}

	mapping := map[string]string{}
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "mapping is not valid json", map[string]any{"field": "mapping"})
			return
		}
	}

	skipProcessed := r.FormValue("skip_processed") == "true"
	identifierColumn := r.FormValue("identifier_column")
	if skipProcessed && identifierColumn == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR",
			"identifier_column is required when skip_processed is set",
			map[string]any{"field": "identifier_column"})
		return
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "csv_file is required", map[string]any{"field": "csv_file"})
		return
	}
	defer file.Close()

	if _, err := h.templates.Get(ctx, templateID); err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
			return
		}
		h.log.FromContext(ctx).LogError(ctx, "template get failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}

	// The CSV is both parsed now and kept as an object, so a job can be
	// audited after the fact.
	raw, err := io.ReadAll(file)
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "could not read csv_file", nil)
		return
	}

	headers, rows, err := csvkit.Rows(bytes.NewReader(raw))
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if len(rows) == 0 {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "csv has no data rows", nil)
		return
	}
	if skipProcessed && !contains(headers, identifierColumn) {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR",
			"identifier_column not present in csv",
			map[string]any{"field": "identifier_column", "column": identifierColumn})
		return
	}

	jobID := "job_" + uuid.NewString()
	csvKey := fmt.Sprintf("csv/%s.csv", jobID)
	if _, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   csvKey,
		ContentType: "text/csv",
		Reader:      bytes.NewReader(raw),
		Size:        int64(len(raw)),
	}); err != nil {
		h.log.FromContext(ctx).LogError(ctx, "csv store failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
		return
	}

	results := make([]models.JobResult, len(rows))
	for i := range results {
		results[i] = models.JobResult{Row: i, Status: models.RowPending}
	}

	job := &models.JobRecord{
		ID:               jobID,
		TemplateID:       templateID,
		CSVPath:          csvKey,
		Mapping:          mapping,
		Rows:             rows,
		Results:          results,
		Status:           models.JobPending,
		SkipProcessed:    skipProcessed,
		IdentifierColumn: identifierColumn,
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		h.log.FromContext(ctx).LogError(ctx, "job insert failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	if err := h.rdb.LPush(ctx, QueueKey, jobID).Err(); err != nil {
		h.log.FromContext(ctx).LogError(ctx, "queue push failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "queue push failed", nil)
		return
	}

	h.log.FromContext(ctx).Info("batch job queued",
		"job_id", jobID, "template_id", templateID,
		"rows", len(rows), "csv", header.Filename)

	httpkit.WriteJSON(w, 202, map[string]any{"job_id": jobID})
}

// GetJob is the polling endpoint.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
			return
		}
		h.log.FromContext(ctx).LogError(ctx, "job get failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}

	httpkit.WriteJSON(w, 200, job.View())
}

// DownloadResultCSV streams a manifest of row outcomes.
func (h *Handler) DownloadResultCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			httpkit.WriteErr(w, 404, "JOB_NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
			return
		}
		h.log.FromContext(ctx).LogError(ctx, "job get failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", jobID+"_results.csv"))

	if err := writeResultManifest(w, job.Results); err != nil {
		// Headers are already out; all that is left is the evidence.
		h.log.FromContext(ctx).Warn("result csv truncated",
			"job_id", jobID, "error", err.Error())
	}
}

// writeResultManifest streams the row outcomes as CSV. csv.Writer
// buffers, so write failures only surface through the final flush.
func writeResultManifest(w io.Writer, results []models.JobResult) error {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, []string{"row", "status", "url", "error"})
	for _, res := range results {
		rows = append(rows, []string{strconv.Itoa(res.Row), string(res.Status), res.URL, res.Error})
	}
	return csv.NewWriter(w).WriteAll(rows)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
