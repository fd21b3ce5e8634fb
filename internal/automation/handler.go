// Package automation runs condition/action rules against incidents and
// watches response SLAs, escalating incidents that sit unattended past
// their deadline.
package automation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrRuleNotFound, Status: http.StatusNotFound, Message: "automation rule not found"},
	{Error: ErrEscalationRuleNotFound, Status: http.StatusNotFound, Message: "escalation rule not found"},
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: "incident not found"},
	{Error: ErrRuleDisabled, Status: http.StatusConflict, Message: "automation rule is disabled"},
	{Error: ErrInvalidMatch, Status: http.StatusBadRequest, Message: "invalid rule match mode"},
	{Error: ErrInvalidCondition, Status: http.StatusBadRequest, Message: "invalid rule condition"},
	{Error: ErrInvalidAction, Status: http.StatusBadRequest, Message: "invalid rule action"},
	{Error: ErrInvalidEscalation, Status: http.StatusBadRequest, Message: "invalid escalation rule"},
}

// Handler handles HTTP requests for the automation module.
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
	r.Route("/automation", func(r chi.Router) {
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
			r.Get("/{id}", h.GetRule)
			r.Post("/{id}/execute", h.ExecuteRule)
		})

		r.Route("/escalations", func(r chi.Router) {
			r.Get("/", h.ListEscalationRules)
			r.Post("/", h.CreateEscalationRule)
		})
	})
}

// RuleConditionRequest is one equality test inside a rule payload.
type RuleConditionRequest struct {
	Field  string `json:"field" validate:"required,oneof=severity category"`
	Equals string `json:"equals" validate:"required,min=1"`
}

// RuleActionRequest is one action inside a rule payload.
type RuleActionRequest struct {
	Type   string            `json:"type" validate:"required,oneof=assign escalate add_tag notify"`
	Params map[string]string `json:"params"`
}

// CreateRuleRequest represents the payload for registering an automation
// rule.
type CreateRuleRequest struct {
	Name        string                 `json:"name" validate:"required,min=1,max=255"`
	Description string                 `json:"description" validate:"max=4096"`
	Enabled     *bool                  `json:"enabled"`
	Match       string                 `json:"match" validate:"omitempty,oneof=any all"`
	Conditions  []RuleConditionRequest `json:"conditions" validate:"omitempty,dive"`
	Actions     []RuleActionRequest    `json:"actions" validate:"required,min=1,dive"`
}

func (r CreateRuleRequest) ToInput() CreateRuleInput {
	input := CreateRuleInput{
		Name:        r.Name,
		Description: r.Description,
		Enabled:     r.Enabled,
		Match:       domain.RuleMatch(r.Match),
	}

	for _, condition := range r.Conditions {
		input.Conditions = append(input.Conditions, domain.RuleCondition{
			Field:  domain.RuleConditionField(condition.Field),
			Equals: condition.Equals,
		})
	}

	for _, action := range r.Actions {
		input.Actions = append(input.Actions, domain.RuleAction{
			Type:   domain.RuleActionType(action.Type),
			Params: action.Params,
		})
	}

	return input
}

// ExecuteRuleRequest represents the payload for running a rule against an
// incident.
type ExecuteRuleRequest struct {
	IncidentID string `json:"incident_id" validate:"required,min=1"`
}

// CreateEscalationRuleRequest represents the payload for registering an SLA
// escalation rule.
type CreateEscalationRuleRequest struct {
	Name               string   `json:"name" validate:"required,min=1,max=255"`
	Severity           string   `json:"severity" validate:"required,oneof=Info Low Medium High Critical"`
	MaxResponseMinutes int      `json:"max_response_minutes" validate:"required,min=1"`
	EscalateTo         string   `json:"escalate_to" validate:"required,oneof=Low Medium High Critical"`
	Notify             []string `json:"notify" validate:"omitempty,dive,min=1,max=255"`
	Enabled            *bool    `json:"enabled"`
}

func (r CreateEscalationRuleRequest) ToInput() CreateEscalationRuleInput {
	return CreateEscalationRuleInput{
		Name:               r.Name,
		Severity:           domain.IncidentSeverity(r.Severity),
		MaxResponseMinutes: r.MaxResponseMinutes,
		EscalateTo:         domain.IncidentSeverity(r.EscalateTo),
		Notify:             r.Notify,
		Enabled:            r.Enabled,
	}
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.CreateRule(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, rule)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.service.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, rule)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, rules)
}

func (h *Handler) ExecuteRule(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRuleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.ExecuteRule(r.Context(), chi.URLParam(r, "id"), req.IncidentID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, rule)
}

func (h *Handler) CreateEscalationRule(w http.ResponseWriter, r *http.Request) {
	var req CreateEscalationRuleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.CreateEscalationRule(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, rule)
}

func (h *Handler) ListEscalationRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListEscalationRules(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, rules)
}
