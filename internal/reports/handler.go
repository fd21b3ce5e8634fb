// Package reports derives read-only aggregates over the incident store:
// the metrics snapshot, the operational dashboard and rendered per-incident
// text reports. Nothing here is cached; every request recomputes from the
// current store state.
package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bissquit/incident-forge/internal/pkg/httputil"
)

// Handler handles HTTP requests for the reports module.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/metrics", h.Metrics)
		r.Get("/dashboard", h.Dashboard)
	})
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, metrics)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, dashboard)
}
