package http

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"voltcli/pkg/contracts"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	referencePath string
	started       time.Time
}

// NewHealthHandler creates a health handler checking the reference workbook.
func NewHealthHandler(referencePath string) *HealthHandler {
	return &HealthHandler{referencePath: referencePath, started: time.Now()}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Health)
	r.Get("/ready", h.Ready)
	return r
}

// Health reports process liveness.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":  "ok",
		"version": contracts.Version,
		"uptime":  time.Since(h.started).String(),
	})
}

// Ready reports whether the reference workbook is reachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if _, err := os.Stat(h.referencePath); err != nil {
		status = "reference workbook unavailable"
		code = http.StatusServiceUnavailable
	}
	render.Status(r, code)
	render.JSON(w, r, map[string]string{"status": status})
}
