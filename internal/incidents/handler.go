// Package incidents provides HTTP handlers and business logic for the
// security incident lifecycle: declaration, assignment, evidence custody,
// response tasks, forensics and the per-incident audit timeline.
package incidents

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/pkg/httputil"
)

// ExecutionsReader interface for reading playbook executions (used by the
// incidents handler to expose an incident's executions).
type ExecutionsReader interface {
	ListExecutionsForIncident(ctx context.Context, incidentID string) ([]*domain.PlaybookExecution, error)
}

// RuleEvaluator matches automation rules against an incident without
// executing them.
type RuleEvaluator interface {
	EvaluateRulesForIncident(ctx context.Context, incidentID string) ([]*domain.AutomationRule, error)
}

// ReportRenderer produces the plain-text report for an incident.
type ReportRenderer interface {
	RenderIncidentReport(ctx context.Context, incidentID string) (string, error)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: "incident not found"},
	{Error: ErrEvidenceNotFound, Status: http.StatusNotFound, Message: "evidence not found"},
	{Error: ErrTaskNotFound, Status: http.StatusNotFound, Message: "task not found"},
	{Error: ErrChecklistItemNotFound, Status: http.StatusNotFound, Message: "checklist item not found"},
	{Error: ErrActionNotFound, Status: http.StatusNotFound, Message: "response action not found"},
	{Error: ErrInvestigationNotFound, Status: http.StatusNotFound, Message: "investigation not found"},
	{Error: ErrResponderNotFound, Status: http.StatusBadRequest, Message: "responder not found"},
	{Error: ErrInvalidCategory, Status: http.StatusBadRequest, Message: "invalid incident category"},
	{Error: ErrInvalidSeverity, Status: http.StatusBadRequest, Message: "invalid incident severity"},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest, Message: "invalid incident status"},
	{Error: ErrInvalidEvidenceType, Status: http.StatusBadRequest, Message: "invalid evidence type"},
	{Error: ErrInvalidTaskStatus, Status: http.StatusBadRequest, Message: "invalid task status"},
	{Error: ErrInvalidPhase, Status: http.StatusBadRequest, Message: "invalid action phase"},
	{Error: ErrInvalidActionStatus, Status: http.StatusBadRequest, Message: "invalid action status"},
	{Error: ErrInvalidTransition, Status: http.StatusConflict, Message: "illegal status transition"},
	{Error: ErrAlreadyClosed, Status: http.StatusConflict, Message: "incident already closed"},
	{Error: ErrNotReopenable, Status: http.StatusConflict, Message: "only resolved or closed incidents can be reopened"},
	{Error: ErrChecklistItemCompleted, Status: http.StatusConflict, Message: "checklist item already completed"},
	{Error: ErrInvestigationCompleted, Status: http.StatusConflict, Message: "investigation already completed"},
}

// Pagination constants.
const (
	DefaultIncidentsLimit = 50
	MaxIncidentsLimit     = 200
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service    *Service
	executions ExecutionsReader
	rules      RuleEvaluator
	reports    ReportRenderer
	validator  *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service, executions ExecutionsReader, rules RuleEvaluator, reports ReportRenderer) *Handler {
	return &Handler{
		service:    service,
		executions: executions,
		rules:      rules,
		reports:    reports,
		validator:  validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the incidents module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Get("/search", h.SearchIncidents)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetIncident)
			r.Patch("/", h.UpdateIncident)
			r.Get("/timeline", h.GetTimeline)
			r.Post("/assign", h.AssignIncident)
			r.Post("/commander", h.AssignCommander)
			r.Post("/escalate", h.EscalateIncident)
			r.Post("/close", h.CloseIncident)
			r.Post("/reopen", h.ReopenIncident)
			r.Post("/tags", h.TagIncident)
			r.Post("/responders", h.AssignResponder)
			r.Post("/communications", h.AddCommunication)
			r.Post("/lessons", h.AddLesson)
			r.Post("/notifications", h.RecordNotification)

			r.Route("/evidence", func(r chi.Router) {
				r.Get("/", h.ListEvidence)
				r.Post("/", h.AddEvidence)
				r.Post("/{evidenceID}/custody", h.AddCustodyRecord)
				r.Post("/{evidenceID}/analysis", h.AddAnalysisResult)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.ListTasks)
				r.Post("/", h.AddTask)
				r.Patch("/{taskID}", h.UpdateTask)
				r.Post("/{taskID}/checklist/{itemID}/complete", h.CompleteChecklistItem)
			})

			r.Route("/actions", func(r chi.Router) {
				r.Post("/", h.AddAction)
				r.Patch("/{actionID}", h.UpdateAction)
			})

			r.Route("/investigations", func(r chi.Router) {
				r.Get("/", h.ListInvestigations)
				r.Post("/", h.StartInvestigation)
			})

			r.Get("/executions", h.ListIncidentExecutions)
			r.Get("/report", h.RenderIncidentReport)
			r.Post("/automation/evaluate", h.EvaluateAutomationRules)
		})
	})

	r.Route("/investigations", func(r chi.Router) {
		r.Get("/{id}", h.GetInvestigation)
		r.Post("/{id}/findings", h.AddFinding)
		r.Post("/{id}/complete", h.CompleteInvestigation)
	})
}

// CreateIncidentRequest represents the request body for declaring an incident.
type CreateIncidentRequest struct {
	Title           string     `json:"title" validate:"required,min=1,max=500"`
	Description     string     `json:"description"`
	Category        string     `json:"category" validate:"required,oneof=Malware Phishing DataBreach DenialOfService Unauthorized SystemCompromise NetworkIntrusion InsiderThreat PhysicalSecurity Compliance Other"`
	Severity        string     `json:"severity" validate:"required,oneof=Info Low Medium High Critical"`
	Status          string     `json:"status" validate:"omitempty,oneof=New Assigned InProgress Investigating Contained Eradicated Recovering Resolved Closed Reopened"`
	Priority        int        `json:"priority" validate:"omitempty,min=1,max=5"`
	DetectedAt      *time.Time `json:"detected_at"`
	Reporter        string     `json:"reporter" validate:"required,min=1,max=255"`
	AffectedSystems []string   `json:"affected_systems"`
	AffectedUsers   []string   `json:"affected_users"`
	IOCs            []string   `json:"iocs"`
	Tags            []string   `json:"tags"`
	CostEstimate    float64    `json:"cost_estimate" validate:"omitempty,min=0"`
}

// ToInput converts the request to a service input.
func (r *CreateIncidentRequest) ToInput() CreateIncidentInput {
	return CreateIncidentInput{
		Title:           r.Title,
		Description:     r.Description,
		Category:        domain.IncidentCategory(r.Category),
		Severity:        domain.IncidentSeverity(r.Severity),
		Status:          domain.IncidentStatus(r.Status),
		Priority:        r.Priority,
		DetectedAt:      r.DetectedAt,
		Reporter:        r.Reporter,
		AffectedSystems: r.AffectedSystems,
		AffectedUsers:   r.AffectedUsers,
		IOCs:            r.IOCs,
		Tags:            r.Tags,
		CostEstimate:    r.CostEstimate,
	}
}

// UpdateIncidentRequest represents the request body for a partial incident
// update. Absent fields stay unchanged.
type UpdateIncidentRequest struct {
	Title           *string  `json:"title" validate:"omitempty,min=1,max=500"`
	Description     *string  `json:"description"`
	Category        *string  `json:"category" validate:"omitempty,oneof=Malware Phishing DataBreach DenialOfService Unauthorized SystemCompromise NetworkIntrusion InsiderThreat PhysicalSecurity Compliance Other"`
	Severity        *string  `json:"severity" validate:"omitempty,oneof=Info Low Medium High Critical"`
	Status          *string  `json:"status" validate:"omitempty,oneof=New Assigned InProgress Investigating Contained Eradicated Recovering Resolved Closed Reopened"`
	Priority        *int     `json:"priority" validate:"omitempty,min=1,max=5"`
	AffectedSystems []string `json:"affected_systems"`
	AffectedUsers   []string `json:"affected_users"`
	IOCs            []string `json:"iocs"`
	CostEstimate    *float64 `json:"cost_estimate" validate:"omitempty,min=0"`
	UpdatedBy       string   `json:"updated_by" validate:"required,min=1,max=255"`
}

// ToInput converts the request to a service input.
func (r *UpdateIncidentRequest) ToInput() UpdateIncidentInput {
	input := UpdateIncidentInput{
		Title:           r.Title,
		Description:     r.Description,
		Priority:        r.Priority,
		AffectedSystems: r.AffectedSystems,
		AffectedUsers:   r.AffectedUsers,
		IOCs:            r.IOCs,
		CostEstimate:    r.CostEstimate,
	}
	if r.Category != nil {
		category := domain.IncidentCategory(*r.Category)
		input.Category = &category
	}
	if r.Severity != nil {
		severity := domain.IncidentSeverity(*r.Severity)
		input.Severity = &severity
	}
	if r.Status != nil {
		status := domain.IncidentStatus(*r.Status)
		input.Status = &status
	}
	return input
}

// AssignIncidentRequest represents the request body for assigning an incident.
type AssignIncidentRequest struct {
	ResponderID string `json:"responder_id" validate:"required"`
	AssignedBy  string `json:"assigned_by" validate:"required,min=1,max=255"`
}

// EscalateIncidentRequest represents the request body for changing severity.
type EscalateIncidentRequest struct {
	Severity    string `json:"severity" validate:"required,oneof=Info Low Medium High Critical"`
	Reason      string `json:"reason" validate:"required"`
	EscalatedBy string `json:"escalated_by" validate:"required,min=1,max=255"`
}

// CloseIncidentRequest represents the request body for closing an incident.
type CloseIncidentRequest struct {
	Resolution string `json:"resolution"`
	ClosedBy   string `json:"closed_by" validate:"required,min=1,max=255"`
}

// ReopenIncidentRequest represents the request body for reopening an incident.
type ReopenIncidentRequest struct {
	Reason     string `json:"reason" validate:"required"`
	ReopenedBy string `json:"reopened_by" validate:"required,min=1,max=255"`
}

// TagIncidentRequest represents the request body for appending tags.
type TagIncidentRequest struct {
	Tags     []string `json:"tags" validate:"required,min=1,dive,required"`
	TaggedBy string   `json:"tagged_by" validate:"required,min=1,max=255"`
}

// AddEvidenceRequest represents the request body for registering evidence.
type AddEvidenceRequest struct {
	Type        string     `json:"type" validate:"omitempty,oneof=file log screenshot network memory artifact other"`
	Name        string     `json:"name" validate:"required,min=1,max=500"`
	Description string     `json:"description"`
	CollectedBy string     `json:"collected_by" validate:"required,min=1,max=255"`
	CollectedAt *time.Time `json:"collected_at"`
	ContentHash string     `json:"content_hash"`
}

// AddCustodyRequest represents the request body for a chain-of-custody entry.
type AddCustodyRequest struct {
	Actor  string `json:"actor" validate:"required,min=1,max=255"`
	Action string `json:"action" validate:"required,min=1,max=255"`
	Notes  string `json:"notes"`
}

// AddAnalysisRequest represents the request body for an analysis result.
type AddAnalysisRequest struct {
	Analyst string `json:"analyst" validate:"required,min=1,max=255"`
	Summary string `json:"summary" validate:"required"`
	Verdict string `json:"verdict"`
}

// AddTaskRequest represents the request body for creating a response task.
type AddTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=500"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
	Checklist   []string   `json:"checklist" validate:"omitempty,dive,required"`
	CreatedBy   string     `json:"created_by" validate:"required,min=1,max=255"`
}

// UpdateTaskRequest represents the request body for a partial task update.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=500"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
	UpdatedBy   string     `json:"updated_by" validate:"required,min=1,max=255"`
}

// CompleteChecklistItemRequest represents the request body for completing a
// checklist item.
type CompleteChecklistItemRequest struct {
	CompletedBy string `json:"completed_by" validate:"required,min=1,max=255"`
}

// AddCommunicationRequest represents the request body for logging a
// stakeholder communication.
type AddCommunicationRequest struct {
	Channel  string `json:"channel" validate:"required,min=1,max=255"`
	Audience string `json:"audience"`
	Subject  string `json:"subject"`
	Message  string `json:"message" validate:"required"`
	SentBy   string `json:"sent_by" validate:"required,min=1,max=255"`
}

// AddActionRequest represents the request body for planning a response action.
type AddActionRequest struct {
	Phase       string `json:"phase" validate:"required,oneof=containment eradication recovery"`
	Description string `json:"description" validate:"required"`
	Owner       string `json:"owner" validate:"required,min=1,max=255"`
}

// UpdateActionRequest represents the request body for a partial action update.
type UpdateActionRequest struct {
	Description *string `json:"description"`
	Owner       *string `json:"owner" validate:"omitempty,min=1,max=255"`
	Status      *string `json:"status" validate:"omitempty,oneof=planned in_progress completed"`
	UpdatedBy   string  `json:"updated_by" validate:"required,min=1,max=255"`
}

// AddLessonRequest represents the request body for a lesson-learned entry.
type AddLessonRequest struct {
	Area           string `json:"area"`
	Description    string `json:"description" validate:"required"`
	Recommendation string `json:"recommendation"`
	RecordedBy     string `json:"recorded_by" validate:"required,min=1,max=255"`
}

// RecordNotificationRequest represents the request body for recording an
// external notification.
type RecordNotificationRequest struct {
	Recipient  string `json:"recipient" validate:"required,min=1,max=255"`
	Channel    string `json:"channel" validate:"required,min=1,max=255"`
	Subject    string `json:"subject"`
	NotifiedBy string `json:"notified_by" validate:"required,min=1,max=255"`
}

// StartInvestigationRequest represents the request body for opening a
// forensic investigation.
type StartInvestigationRequest struct {
	Investigator string `json:"investigator" validate:"required,min=1,max=255"`
	Scope        string `json:"scope"`
}

// AddFindingRequest represents the request body for a forensic finding.
type AddFindingRequest struct {
	Category     string   `json:"category" validate:"required,min=1,max=255"`
	Description  string   `json:"description" validate:"required"`
	EvidenceRefs []string `json:"evidence_refs"`
	RecordedBy   string   `json:"recorded_by" validate:"required,min=1,max=255"`
}

// CompleteInvestigationRequest represents the request body for terminating
// an investigation.
type CompleteInvestigationRequest struct {
	ReportRef   string `json:"report_ref"`
	CompletedBy string `json:"completed_by" validate:"required,min=1,max=255"`
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseListFilters(w, r)
	if !ok {
		return
	}

	incidents, err := h.service.ListIncidents(r.Context(), filters)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	response := map[string]interface{}{
		"incidents": incidents,
		"total":     len(incidents),
		"limit":     filters.Limit,
		"offset":    filters.Offset,
	}
	httputil.Success(w, http.StatusOK, response)
}

// SearchIncidents handles GET /incidents/search request.
func (h *Handler) SearchIncidents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.Error(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	incidents, err := h.service.SearchIncidents(r.Context(), query)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	response := map[string]interface{}{
		"incidents": incidents,
		"total":     len(incidents),
	}
	httputil.Success(w, http.StatusOK, response)
}

// UpdateIncident handles PATCH /incidents/{id} request.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req UpdateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateIncident(r.Context(), chi.URLParam(r, "id"), req.ToInput(), req.UpdatedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// GetTimeline handles GET /incidents/{id}/timeline request.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := h.service.Timeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, timeline)
}

// AssignIncident handles POST /incidents/{id}/assign request.
func (h *Handler) AssignIncident(w http.ResponseWriter, r *http.Request) {
	var req AssignIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AssignIncident(r.Context(), chi.URLParam(r, "id"), req.ResponderID, req.AssignedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// AssignCommander handles POST /incidents/{id}/commander request.
func (h *Handler) AssignCommander(w http.ResponseWriter, r *http.Request) {
	var req AssignIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AssignCommander(r.Context(), chi.URLParam(r, "id"), req.ResponderID, req.AssignedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// EscalateIncident handles POST /incidents/{id}/escalate request.
func (h *Handler) EscalateIncident(w http.ResponseWriter, r *http.Request) {
	var req EscalateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.EscalateIncident(r.Context(), chi.URLParam(r, "id"), domain.IncidentSeverity(req.Severity), req.Reason, req.EscalatedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// CloseIncident handles POST /incidents/{id}/close request.
func (h *Handler) CloseIncident(w http.ResponseWriter, r *http.Request) {
	var req CloseIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CloseIncident(r.Context(), chi.URLParam(r, "id"), req.Resolution, req.ClosedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// ReopenIncident handles POST /incidents/{id}/reopen request.
func (h *Handler) ReopenIncident(w http.ResponseWriter, r *http.Request) {
	var req ReopenIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.ReopenIncident(r.Context(), chi.URLParam(r, "id"), req.Reason, req.ReopenedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// TagIncident handles POST /incidents/{id}/tags request.
func (h *Handler) TagIncident(w http.ResponseWriter, r *http.Request) {
	var req TagIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.TagIncident(r.Context(), chi.URLParam(r, "id"), req.Tags, req.TaggedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// AddEvidence handles POST /incidents/{id}/evidence request.
func (h *Handler) AddEvidence(w http.ResponseWriter, r *http.Request) {
	var req AddEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	evidence, err := h.service.AddEvidence(r.Context(), chi.URLParam(r, "id"), AddEvidenceInput{
		Type:        domain.EvidenceType(req.Type),
		Name:        req.Name,
		Description: req.Description,
		CollectedBy: req.CollectedBy,
		CollectedAt: req.CollectedAt,
		ContentHash: req.ContentHash,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, evidence)
}

// ListEvidence handles GET /incidents/{id}/evidence request.
func (h *Handler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	evidence, err := h.service.ListEvidence(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, evidence)
}

// AddCustodyRecord handles POST /incidents/{id}/evidence/{evidenceID}/custody request.
func (h *Handler) AddCustodyRecord(w http.ResponseWriter, r *http.Request) {
	var req AddCustodyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	entry, err := h.service.AddCustodyRecord(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "evidenceID"), AddCustodyInput{
		Actor:  req.Actor,
		Action: req.Action,
		Notes:  req.Notes,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, entry)
}

// AddAnalysisResult handles POST /incidents/{id}/evidence/{evidenceID}/analysis request.
func (h *Handler) AddAnalysisResult(w http.ResponseWriter, r *http.Request) {
	var req AddAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	result, err := h.service.AddAnalysisResult(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "evidenceID"), AddAnalysisInput{
		Analyst: req.Analyst,
		Summary: req.Summary,
		Verdict: req.Verdict,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, result)
}

// AddTask handles POST /incidents/{id}/tasks request.
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	task, err := h.service.AddTask(r.Context(), chi.URLParam(r, "id"), AddTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
		Checklist:   req.Checklist,
	}, req.CreatedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, task)
}

// ListTasks handles GET /incidents/{id}/tasks request.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, tasks)
}

// UpdateTask handles PATCH /incidents/{id}/tasks/{taskID} request.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		input.Status = &status
	}

	task, err := h.service.UpdateTask(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskID"), input, req.UpdatedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, task)
}

// CompleteChecklistItem handles POST /incidents/{id}/tasks/{taskID}/checklist/{itemID}/complete request.
func (h *Handler) CompleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req CompleteChecklistItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	task, err := h.service.CompleteChecklistItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskID"), chi.URLParam(r, "itemID"), req.CompletedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, task)
}

// AssignResponder handles POST /incidents/{id}/responders request.
func (h *Handler) AssignResponder(w http.ResponseWriter, r *http.Request) {
	var req AssignIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.AssignResponder(r.Context(), chi.URLParam(r, "id"), req.ResponderID, req.AssignedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// AddCommunication handles POST /incidents/{id}/communications request.
func (h *Handler) AddCommunication(w http.ResponseWriter, r *http.Request) {
	var req AddCommunicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	comm, err := h.service.AddCommunication(r.Context(), chi.URLParam(r, "id"), AddCommunicationInput{
		Channel:  req.Channel,
		Audience: req.Audience,
		Subject:  req.Subject,
		Message:  req.Message,
		SentBy:   req.SentBy,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, comm)
}

// AddAction handles POST /incidents/{id}/actions request.
func (h *Handler) AddAction(w http.ResponseWriter, r *http.Request) {
	var req AddActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	action, err := h.service.AddAction(r.Context(), chi.URLParam(r, "id"), AddActionInput{
		Phase:       domain.ActionPhase(req.Phase),
		Description: req.Description,
		Owner:       req.Owner,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, action)
}

// UpdateAction handles PATCH /incidents/{id}/actions/{actionID} request.
func (h *Handler) UpdateAction(w http.ResponseWriter, r *http.Request) {
	var req UpdateActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := UpdateActionInput{
		Description: req.Description,
		Owner:       req.Owner,
	}
	if req.Status != nil {
		status := domain.ActionStatus(*req.Status)
		input.Status = &status
	}

	action, err := h.service.UpdateAction(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "actionID"), input, req.UpdatedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, action)
}

// AddLesson handles POST /incidents/{id}/lessons request.
func (h *Handler) AddLesson(w http.ResponseWriter, r *http.Request) {
	var req AddLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	lesson, err := h.service.AddLesson(r.Context(), chi.URLParam(r, "id"), AddLessonInput{
		Area:           req.Area,
		Description:    req.Description,
		Recommendation: req.Recommendation,
		RecordedBy:     req.RecordedBy,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, lesson)
}

// RecordNotification handles POST /incidents/{id}/notifications request.
func (h *Handler) RecordNotification(w http.ResponseWriter, r *http.Request) {
	var req RecordNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	notification, err := h.service.RecordNotification(r.Context(), chi.URLParam(r, "id"), RecordNotificationInput{
		Recipient:  req.Recipient,
		Channel:    req.Channel,
		Subject:    req.Subject,
		NotifiedBy: req.NotifiedBy,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, notification)
}

// StartInvestigation handles POST /incidents/{id}/investigations request.
func (h *Handler) StartInvestigation(w http.ResponseWriter, r *http.Request) {
	var req StartInvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	investigation, err := h.service.StartInvestigation(r.Context(), chi.URLParam(r, "id"), StartInvestigationInput{
		Investigator: req.Investigator,
		Scope:        req.Scope,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, investigation)
}

// ListInvestigations handles GET /incidents/{id}/investigations request.
func (h *Handler) ListInvestigations(w http.ResponseWriter, r *http.Request) {
	investigations, err := h.service.ListInvestigations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, investigations)
}

// ListIncidentExecutions handles GET /incidents/{id}/executions request.
func (h *Handler) ListIncidentExecutions(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")

	// The incident must exist even when it has no executions.
	if _, err := h.service.GetIncident(r.Context(), incidentID); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	executions, err := h.executions.ListExecutionsForIncident(r.Context(), incidentID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, executions)
}

// EvaluateAutomationRules handles POST /incidents/{id}/automation/evaluate request.
// It reports which enabled rules match the incident without executing them.
func (h *Handler) EvaluateAutomationRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.EvaluateRulesForIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, rules)
}

// RenderIncidentReport handles GET /incidents/{id}/report request.
// The report is plain text, not JSON.
func (h *Handler) RenderIncidentReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.RenderIncidentReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Text(w, http.StatusOK, report)
}

// GetInvestigation handles GET /investigations/{id} request.
func (h *Handler) GetInvestigation(w http.ResponseWriter, r *http.Request) {
	investigation, err := h.service.GetInvestigation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, investigation)
}

// AddFinding handles POST /investigations/{id}/findings request.
func (h *Handler) AddFinding(w http.ResponseWriter, r *http.Request) {
	var req AddFindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	finding, err := h.service.AddFinding(r.Context(), chi.URLParam(r, "id"), AddFindingInput{
		Category:     req.Category,
		Description:  req.Description,
		EvidenceRefs: req.EvidenceRefs,
		RecordedBy:   req.RecordedBy,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, finding)
}

// CompleteInvestigation handles POST /investigations/{id}/complete request.
func (h *Handler) CompleteInvestigation(w http.ResponseWriter, r *http.Request) {
	var req CompleteInvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	investigation, err := h.service.CompleteInvestigation(r.Context(), chi.URLParam(r, "id"), req.ReportRef, req.CompletedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, investigation)
}

// parseListFilters parses filter and pagination query parameters, writing a
// 400 response and returning ok=false on invalid input.
func (h *Handler) parseListFilters(w http.ResponseWriter, r *http.Request) (IncidentFilters, bool) {
	filters := IncidentFilters{Limit: DefaultIncidentsLimit}

	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.IncidentStatus(v)
		if !status.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return filters, false
		}
		filters.Status = &status
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		severity := domain.IncidentSeverity(v)
		if !severity.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid severity filter")
			return filters, false
		}
		filters.Severity = &severity
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category := domain.IncidentCategory(v)
		if !category.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid category filter")
			return filters, false
		}
		filters.Category = &category
	}
	if v := r.URL.Query().Get("assigned_to"); v != "" {
		filters.AssignedTo = &v
	}
	if tags, ok := r.URL.Query()["tag"]; ok {
		filters.Tags = tags
	}
	if v := r.URL.Query().Get("created_from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "created_from must be RFC 3339")
			return filters, false
		}
		filters.CreatedFrom = &parsed
	}
	if v := r.URL.Query().Get("created_to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "created_to must be RFC 3339")
			return filters, false
		}
		filters.CreatedTo = &parsed
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return filters, false
		}
		if parsed > MaxIncidentsLimit {
			parsed = MaxIncidentsLimit
		}
		filters.Limit = parsed
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			httputil.Error(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return filters, false
		}
		filters.Offset = parsed
	}

	return filters, true
}
