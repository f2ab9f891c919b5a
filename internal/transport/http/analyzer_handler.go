package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "voltcli/internal/errors"
	"voltcli/internal/filter"
	"voltcli/internal/services"
)

// AnalyzerHandler exposes the reconciliation engine over HTTP.
type AnalyzerHandler struct {
	service *services.AnalyzerService
	logger  *slog.Logger
}

// NewAnalyzerHandler creates the analyzer handler.
func NewAnalyzerHandler(service *services.AnalyzerService, logger *slog.Logger) *AnalyzerHandler {
	return &AnalyzerHandler{
		service: service,
		logger:  logger.With(slog.String("component", "analyzer_handler")),
	}
}

// Routes returns the analyzer routes.
func (h *AnalyzerHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/dataset", func(r chi.Router) {
		r.Post("/ingest", h.Ingest)
		r.Post("/resolve", h.Resolve)
		r.Get("/stats", h.Stats)
		r.Get("/unresolved", h.Unresolved)
		r.Post("/filter", h.Filter)
		r.Post("/aggregate", h.Aggregate)
	})

	r.Route("/corrections", func(r chi.Router) {
		r.Get("/suggestions", h.Suggestions)
		r.Post("/", h.ApplyCorrection)
	})

	r.Route("/exports", func(r chi.Router) {
		r.Post("/unresolved", h.ExportUnresolved)
		r.Post("/report", h.ExportReport)
		r.Post("/filtered", h.ExportFiltered)
	})

	return r
}

// IngestRequest names the workbooks to load.
type IngestRequest struct {
	Paths []string `json:"paths"`
	// Merge keeps the current dataset and merges the new rows into it
	// instead of replacing it.
	Merge bool `json:"merge"`
}

// Ingest loads workbooks and re-resolves zones.
func (h *AnalyzerHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.service.Ingest(r.Context(), req.Paths, req.Merge)
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Resolve re-runs zone resolution against a fresh reference directory.
func (h *AnalyzerHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Reresolve(r.Context())
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Stats summarizes the loaded dataset.
func (h *AnalyzerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Stats(r.Context()))
}

// Unresolved lists the distinct stations without a zone label.
func (h *AnalyzerHandler) Unresolved(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"stations": h.service.UnresolvedStations(),
	})
}

// Filter applies the posted filter request and returns the view.
func (h *AnalyzerHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req filter.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.service.Filter(r.Context(), req)
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// AggregateRequest pairs a filter with the summary's top-N bound.
type AggregateRequest struct {
	Filter   filter.Request `json:"filter"`
	TopZones int            `json:"top_zones"`
}

// Aggregate filters the dataset and returns per-zone violation aggregates.
func (h *AnalyzerHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	summary, err := h.service.Aggregate(r.Context(), req.Filter, req.TopZones)
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Suggestions returns fuzzy candidates for an unresolved station.
func (h *AnalyzerHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	station := r.URL.Query().Get("station")
	if station == "" {
		h.renderError(w, r, apierrors.ErrValidation("station", "station query parameter is required"))
		return
	}

	suggestions, err := h.service.Suggestions(r.Context(), station)
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"station":     station,
		"suggestions": suggestions,
	})
}

// CorrectionRequest is one operator-confirmed correction pair.
type CorrectionRequest struct {
	Unresolved string `json:"unresolved"`
	Canonical  string `json:"canonical"`
}

// ApplyCorrection rewrites the reference directory for the confirmed pair.
func (h *AnalyzerHandler) ApplyCorrection(w http.ResponseWriter, r *http.Request) {
	var req CorrectionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	outcome, err := h.service.ApplyCorrection(r.Context(), req.Unresolved, req.Canonical)
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, outcome)
}

// ExportUnresolved writes the unresolved-station workbook.
func (h *AnalyzerHandler) ExportUnresolved(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.ExportUnresolved(r.Context())
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"path": path})
}

// ExportReport writes the four-table violation report.
func (h *AnalyzerHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	path, err := h.service.ExportReport(r.Context(), req.Filter, req.TopZones)
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"path": path})
}

// ExportFiltered writes the filtered view as a CSV.
func (h *AnalyzerHandler) ExportFiltered(w http.ResponseWriter, r *http.Request) {
	var req filter.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	path, err := h.service.ExportFiltered(r.Context(), req)
	if err != nil {
		h.renderAppError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"path": path})
}

// renderAppError maps engine errors onto API responses.
func (h *AnalyzerHandler) renderAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		h.renderError(w, r, apierrors.FromAppError(appErr))
		return
	}
	h.logger.ErrorContext(r.Context(), "unclassified error", "error", err)
	h.renderError(w, r, apierrors.ErrInternalServer)
}

func (h *AnalyzerHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	render.Status(r, apiErr.StatusCode)
	render.JSON(w, r, apierrors.NewErrorResponse(apiErr))
}
