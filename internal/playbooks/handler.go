// Package playbooks manages response playbook definitions and their
// executions against incidents, including the per-step progress tracking
// that drives an execution to completion.
package playbooks

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrPlaybookNotFound, Status: http.StatusNotFound, Message: "playbook not found"},
	{Error: ErrExecutionNotFound, Status: http.StatusNotFound, Message: "execution not found"},
	{Error: ErrStepNotFound, Status: http.StatusNotFound, Message: "step not found"},
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: "incident not found"},
	{Error: ErrNoSteps, Status: http.StatusBadRequest, Message: "playbook must define at least one step"},
	{Error: ErrInvalidCategory, Status: http.StatusBadRequest, Message: "invalid playbook category"},
	{Error: ErrInvalidSeverity, Status: http.StatusBadRequest, Message: "invalid severity threshold"},
	{Error: ErrInvalidRole, Status: http.StatusBadRequest, Message: "invalid required role"},
	{Error: ErrInvalidStepStatus, Status: http.StatusBadRequest, Message: "invalid step status"},
	{Error: ErrExecutionFinished, Status: http.StatusConflict, Message: "execution already finished"},
}

// Handler handles HTTP requests for the playbooks module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/playbooks", func(r chi.Router) {
		r.Get("/", h.ListPlaybooks)
		r.Post("/", h.CreatePlaybook)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetPlaybook)
			r.Post("/execute", h.ExecutePlaybook)
		})
	})

	r.Route("/executions", func(r chi.Router) {
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetExecution)
			r.Post("/cancel", h.CancelExecution)
			r.Patch("/steps/{stepID}", h.UpdateStepExecution)
		})
	})
}

// CreatePlaybookRequest represents the payload for registering a playbook.
type CreatePlaybookRequest struct {
	Name              string              `json:"name" validate:"required,min=1,max=255"`
	Description       string              `json:"description" validate:"max=4096"`
	Category          string              `json:"category" validate:"required,oneof=Malware Phishing DataBreach DenialOfService Unauthorized SystemCompromise NetworkIntrusion InsiderThreat PhysicalSecurity Compliance Other"`
	SeverityThreshold string              `json:"severity_threshold" validate:"required,oneof=Info Low Medium High Critical"`
	Tags              []string            `json:"tags" validate:"omitempty,dive,min=1,max=64"`
	Steps             []CreateStepRequest `json:"steps" validate:"required,min=1,dive"`
}

// CreateStepRequest represents one step definition inside a playbook.
type CreateStepRequest struct {
	Name              string `json:"name" validate:"required,min=1,max=255"`
	Instructions      string `json:"instructions" validate:"max=4096"`
	RequiredRole      string `json:"required_role" validate:"omitempty,oneof=incident_commander investigator analyst communications legal forensics"`
	EstimatedDuration int    `json:"estimated_duration" validate:"min=0"`
	Automated         bool   `json:"automated"`
}

func (r CreatePlaybookRequest) ToInput() CreatePlaybookInput {
	input := CreatePlaybookInput{
		Name:              r.Name,
		Description:       r.Description,
		Category:          domain.IncidentCategory(r.Category),
		SeverityThreshold: domain.IncidentSeverity(r.SeverityThreshold),
		Tags:              r.Tags,
	}

	for _, step := range r.Steps {
		input.Steps = append(input.Steps, StepInput{
			Name:              step.Name,
			Instructions:      step.Instructions,
			RequiredRole:      domain.ResponderRole(step.RequiredRole),
			EstimatedDuration: step.EstimatedDuration,
			Automated:         step.Automated,
		})
	}

	return input
}

// ExecutePlaybookRequest represents the payload for starting an execution.
type ExecutePlaybookRequest struct {
	IncidentID string `json:"incident_id" validate:"required,min=1"`
	Executor   string `json:"executor" validate:"required,min=1,max=255"`
}

// UpdateStepRequest represents a partial update of one step execution.
type UpdateStepRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=NotStarted InProgress Completed Skipped"`
	AssignedTo *string `json:"assigned_to" validate:"omitempty,max=255"`
	Notes      *string `json:"notes" validate:"omitempty,max=4096"`
}

func (r UpdateStepRequest) ToInput() UpdateStepInput {
	input := UpdateStepInput{
		AssignedTo: r.AssignedTo,
		Notes:      r.Notes,
	}

	if r.Status != nil {
		status := domain.StepStatus(*r.Status)
		input.Status = &status
	}

	return input
}

func (h *Handler) CreatePlaybook(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaybookRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	playbook, err := h.service.CreatePlaybook(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, playbook)
}

func (h *Handler) GetPlaybook(w http.ResponseWriter, r *http.Request) {
	playbook, err := h.service.GetPlaybook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, playbook)
}

func (h *Handler) ListPlaybooks(w http.ResponseWriter, r *http.Request) {
	var filters PlaybookFilters

	if raw := r.URL.Query().Get("category"); raw != "" {
		category := domain.IncidentCategory(raw)
		if !category.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid category filter")
			return
		}

		filters.Category = &category
	}

	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity := domain.IncidentSeverity(raw)
		if !severity.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid severity filter")
			return
		}

		filters.Severity = &severity
	}

	if raw := r.URL.Query().Get("tag"); raw != "" {
		filters.Tag = &raw
	}

	result, err := h.service.ListPlaybooks(r.Context(), filters)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, result)
}

func (h *Handler) ExecutePlaybook(w http.ResponseWriter, r *http.Request) {
	var req ExecutePlaybookRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	execution, err := h.service.ExecutePlaybook(r.Context(), chi.URLParam(r, "id"), ExecutePlaybookInput{
		IncidentID: req.IncidentID,
		Executor:   req.Executor,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, execution)
}

func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	execution, err := h.service.GetExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, execution)
}

func (h *Handler) UpdateStepExecution(w http.ResponseWriter, r *http.Request) {
	var req UpdateStepRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	execution, err := h.service.UpdateStepExecution(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "stepID"), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, execution)
}

func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	execution, err := h.service.CancelExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, execution)
}
