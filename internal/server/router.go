package server

import (
	"net/http"

	"github.com/citeline/citeline/internal/api"
	"github.com/citeline/citeline/internal/api/handlers"
	"github.com/citeline/citeline/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	ChatHandler      *handlers.ChatHandler
	EmbeddingHandler *handlers.EmbeddingHandler
	IngestHandler    *handlers.IngestHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/chat", cfg.ChatHandler.Post)
	r.Post("/embedding", cfg.EmbeddingHandler.Post)

	if cfg.IngestHandler != nil {
		r.Post("/ingest", cfg.IngestHandler.Post)
	}

	return r
}
