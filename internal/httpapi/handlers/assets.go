package handlers

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mockup/internal/httpkit"
)

// StreamAsset serves a stored object by key: uploaded images, masks and
// finished renders all come through here. Keys are flat relative paths
// like renders/job_x/row_0.jpg.
func (h *Handler) StreamAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	objectKey := chi.URLParam(r, "*")
	if objectKey == "" || strings.Contains(objectKey, "..") {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid asset key", nil)
		return
	}

	rc, ct, size, err := h.sp.GetObject(ctx, objectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "ASSET_NOT_FOUND", "asset not found", map[string]any{"object_key": objectKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(objectKey))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}
