package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mockup/internal/httpkit"
	"mockup/internal/models"
	"mockup/internal/ports"
	"mockup/internal/repositories"
)

const maxUploadBytes = 64 << 20

// PostTemplate creates or replaces a template. The editor saves the
// whole template on every change; there is no partial-field protocol.
func (h *Handler) PostTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var tpl models.Template
	if err := httpkit.DecodeJSON(r, &tpl); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	tpl.Name = strings.TrimSpace(tpl.Name)
	if tpl.Name == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}
	if tpl.ID == "" {
		tpl.ID = "tpl_" + uuid.NewString()
	}
	if err := tpl.Validate(); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	if err := h.templates.Upsert(ctx, &tpl); err != nil {
		h.log.FromContext(ctx).LogError(ctx, "template upsert failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db upsert failed", nil)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"template": tpl})
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	templates, err := h.templates.List(ctx)
	if err != nil {
		h.log.FromContext(ctx).LogError(ctx, "template list failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}

	httpkit.WriteJSON(w, 200, map[string]any{"templates": templates})
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateId")

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

	httpkit.WriteJSON(w, 200, map[string]any{"template": tpl})
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateId")

	if err := h.templates.Delete(ctx, templateID); err != nil {
		if errors.Is(err, repositories.ErrTemplateNotFound) {
			httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "template not found", map[string]any{"template_id": templateID})
			return
		}
		h.log.FromContext(ctx).LogError(ctx, "template delete failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage stores a base or variable image and returns its asset
// path, which the client writes into the template.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "image is required", map[string]any{"field": "image"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "unsupported image type", map[string]any{"ext": ext})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}

	objectKey := fmt.Sprintf("uploads/%s%s", uuid.NewString(), ext)
	if _, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Reader:      file,
		Size:        header.Size,
	}); err != nil {
		h.log.FromContext(ctx).LogError(ctx, "image upload failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"path": objectKey})
}

// UploadMask stores a serialized mask raster and returns the mask entry
// the client appends to the template.
func (h *Handler) UploadMask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	file, header, err := r.FormFile("mask")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "mask is required", map[string]any{"field": "mask"})
		return
	}
	defer file.Close()

	maskID := "mask_" + uuid.NewString()
	objectKey := fmt.Sprintf("masks/%s.png", maskID)
	if _, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: "image/png",
		Reader:      file,
		Size:        header.Size,
	}); err != nil {
		h.log.FromContext(ctx).LogError(ctx, "mask upload failed", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "storage put failed", nil)
		return
	}

	httpkit.WriteJSON(w, 200, models.Mask{ID: maskID, Path: objectKey})
}
