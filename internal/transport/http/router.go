package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"voltcli/internal/config"
	"voltcli/internal/middleware"
	"voltcli/internal/services"
)

// NewRouter assembles the HTTP surface: request-id tracing, structured
// logging, panic recovery and rate limiting around the analyzer API.
func NewRouter(cfg *config.Config, paths *config.Paths, service *services.AnalyzerService, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	r.Use(limiter.Handler)

	r.Mount("/healthz", NewHealthHandler(paths.ReferenceFile).Routes())
	r.Mount("/api/v1", NewAnalyzerHandler(service, logger).Routes())

	return r
}
