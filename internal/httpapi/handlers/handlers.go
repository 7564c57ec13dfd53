package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mockup/internal/pkg/logger"
	"mockup/internal/ports"
	"mockup/internal/render"
	"mockup/internal/repositories"
)

// QueueKey is the Redis list the worker pops batch job ids from.
const QueueKey = "mockup:batch"

type Deps struct {
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider
	Log  *logger.Logger
}

type Handler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	sp        ports.StorageProvider
	log       *logger.Logger
	templates *repositories.TemplateRepository
	jobs      *repositories.JobRepository
	comp      *render.Compositor
}

func New(d Deps) *Handler {
	return &Handler{
		pool:      d.Pool,
		rdb:       d.RDB,
		sp:        d.SP,
		log:       d.Log.WithComponent("httpapi"),
		templates: repositories.NewTemplateRepository(d.Pool),
		jobs:      repositories.NewJobRepository(d.Pool),
		comp:      render.NewCompositor(d.SP),
	}
}
