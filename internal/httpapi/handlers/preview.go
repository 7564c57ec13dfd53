package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"mockup/internal/csvkit"
	"mockup/internal/httpkit"
	"mockup/internal/models"
	"mockup/internal/render"
	"mockup/internal/repositories"
)

// DefaultPreviewLimit bounds how many sample rows a preview renders.
const DefaultPreviewLimit = 3

// Preview renders up to limit sample rows through the same compositor
// the batch worker uses, so what the operator sees is what ships.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
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

	limit := DefaultPreviewLimit
	if raw := r.FormValue("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 10 {
			limit = v
		}
	}

	file, _, err := r.FormFile("csv_file")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "csv_file is required", map[string]any{"field": "csv_file"})
		return
	}
	defer file.Close()

	tpl, err := h.templates.Get(ctx, templateID)
	if err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
			return
		}
		h.log.FromContext(ctx).LogError(ctx, "template get failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}

	_, rows, err := csvkit.Rows(file)
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	previews := make([]models.PreviewItem, 0, len(rows))
	for i, row := range rows {
		img, err := h.comp.Render(ctx, tpl, render.ResolveValues(tpl, mapping, row), render.Options{Placeholders: true})
		if err != nil {
			h.log.FromContext(ctx).LogError(ctx, "preview render failed", err, "row", i)
			httpkit.WriteErr(w, 500, "RENDER_ERROR", "preview render failed", map[string]any{"row": i})
			return
		}
		b64, err := render.EncodeBase64JPEG(img)
		if err != nil {
			h.log.FromContext(ctx).LogError(ctx, "preview encode failed", err, "row", i)
			httpkit.WriteErr(w, 500, "RENDER_ERROR", "preview encode failed", map[string]any{"row": i})
			return
		}
		previews = append(previews, models.PreviewItem{Row: i, ImageBase64: b64})
	}

	httpkit.WriteJSON(w, 200, map[string]any{"previews": previews})
}
