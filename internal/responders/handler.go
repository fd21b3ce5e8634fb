// Package responders provides HTTP handlers and business logic for the
// response team registry.
package responders

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrResponderNotFound, Status: http.StatusNotFound, Message: "responder not found"},
	{Error: ErrEmailExists, Status: http.StatusConflict, Message: "responder email already registered"},
	{Error: ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid responder role"},
}

// Handler handles HTTP requests for the responders module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new responders handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the responders module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/responders", func(r chi.Router) {
		r.Get("/", h.ListResponders)
		r.Post("/", h.RegisterResponder)
		r.Get("/{id}", h.GetResponder)
		r.Patch("/{id}", h.UpdateResponder)
	})
}

// RegisterResponderRequest represents the request body for registering a
// responder.
type RegisterResponderRequest struct {
	Name      string            `json:"name" validate:"required,min=1,max=255"`
	Email     string            `json:"email" validate:"required,email"`
	Role      string            `json:"role" validate:"required,oneof=incident_commander investigator analyst communications legal forensics"`
	Skills    []string          `json:"skills"`
	Contact   map[string]string `json:"contact"`
	Available *bool             `json:"available"`
}

// ToInput converts the request to a service input.
func (r *RegisterResponderRequest) ToInput() RegisterResponderInput {
	return RegisterResponderInput{
		Name:      r.Name,
		Email:     r.Email,
		Role:      domain.ResponderRole(r.Role),
		Skills:    r.Skills,
		Contact:   r.Contact,
		Available: r.Available,
	}
}

// UpdateResponderRequest represents the request body for a partial responder
// update.
type UpdateResponderRequest struct {
	Name      *string           `json:"name" validate:"omitempty,min=1,max=255"`
	Email     *string           `json:"email" validate:"omitempty,email"`
	Role      *string           `json:"role" validate:"omitempty,oneof=incident_commander investigator analyst communications legal forensics"`
	Skills    []string          `json:"skills"`
	Contact   map[string]string `json:"contact"`
	Available *bool             `json:"available"`
}

// ToInput converts the request to a service input.
func (r *UpdateResponderRequest) ToInput() UpdateResponderInput {
	input := UpdateResponderInput{
		Name:      r.Name,
		Email:     r.Email,
		Skills:    r.Skills,
		Contact:   r.Contact,
		Available: r.Available,
	}
	if r.Role != nil {
		role := domain.ResponderRole(*r.Role)
		input.Role = &role
	}
	return input
}

// RegisterResponder handles POST /responders request.
func (h *Handler) RegisterResponder(w http.ResponseWriter, r *http.Request) {
	var req RegisterResponderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	responder, err := h.service.RegisterResponder(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, responder)
}

// GetResponder handles GET /responders/{id} request.
func (h *Handler) GetResponder(w http.ResponseWriter, r *http.Request) {
	responder, err := h.service.GetResponder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, responder)
}

// ListResponders handles GET /responders request.
func (h *Handler) ListResponders(w http.ResponseWriter, r *http.Request) {
	filters := ResponderFilters{}

	if v := r.URL.Query().Get("role"); v != "" {
		role := domain.ResponderRole(v)
		if !role.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid role filter")
			return
		}
		filters.Role = &role
	}
	if v := r.URL.Query().Get("available"); v != "" {
		if v != "true" && v != "false" {
			httputil.Error(w, http.StatusBadRequest, "available must be true or false")
			return
		}
		available := v == "true"
		filters.Available = &available
	}

	responders, err := h.service.ListResponders(r.Context(), filters)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, responders)
}

// UpdateResponder handles PATCH /responders/{id} request.
func (h *Handler) UpdateResponder(w http.ResponseWriter, r *http.Request) {
	var req UpdateResponderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	responder, err := h.service.UpdateResponder(r.Context(), chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, responder)
}
