package handlers

import (
	"net/http"
	"strconv"

	"mockup/internal/csvkit"
	"mockup/internal/httpkit"
)

// InspectCSV returns the header row and up to sample_size sample rows,
// which the editor uses to build the column mapping UI.
func (h *Handler) InspectCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	file, _, err := r.FormFile("csv_file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "csv_file is required", map[string]any{"field": "csv_file"})
		return
	}
	defer file.Close()

	sampleSize := 0
	if raw := r.FormValue("sample_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			sampleSize = v
		}
	}

	insp, err := csvkit.Inspect(file, sampleSize)
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if insp.SampleRows == nil {
		insp.SampleRows = []map[string]string{}
	}

	httpkit.WriteJSON(w, 200, insp)
}
