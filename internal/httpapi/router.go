package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mockup/internal/httpapi/handlers"
	"mockup/internal/httpkit"
	"mockup/internal/pkg/logger"
	"mockup/internal/pkg/middleware"
	"mockup/internal/ports"
)

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Log  *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.Recovery(d.Log))

	// ---- CORS (editor frontend) ----
	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool: d.Pool,
		RDB:  d.RDB,
		SP:   d.SP,
		Log:  d.Log,
	})

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- TEMPLATES ----
	r.Post("/templates", h.PostTemplate)
	r.Get("/templates", h.ListTemplates)
	r.Get("/templates/{templateId}", h.GetTemplate)
	r.Delete("/templates/{templateId}", h.DeleteTemplate)
	r.Post("/templates/upload-image", h.UploadImage)
	r.Post("/templates/upload-mask", h.UploadMask)

	// ---- CSV / PREVIEW ----
	r.Post("/csv/inspect", h.InspectCSV)
	r.Post("/preview", h.Preview)

	// ---- BATCH JOBS ----
	r.Post("/batch", h.StartBatch)
	r.Get("/jobs/{jobId}", h.GetJob)
	r.Get("/jobs/{jobId}/csv", h.DownloadResultCSV)

	// ---- ASSETS ----
	r.Get("/assets/*", h.StreamAsset)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
