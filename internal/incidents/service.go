package incidents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
)

// actorSystem is recorded on timeline events not attributable to a person.
const actorSystem = "system"

// SLAPolicy maps severities to initial response windows.
type SLAPolicy struct {
	ResponseMinutes map[domain.IncidentSeverity]int
}

// Deadline computes the response deadline for a severity, or nil when the
// policy carries no window for it.
func (p SLAPolicy) Deadline(severity domain.IncidentSeverity, from time.Time) *time.Time {
	minutes, ok := p.ResponseMinutes[severity]
	if !ok || minutes <= 0 {
		return nil
	}
	deadline := from.Add(time.Duration(minutes) * time.Minute)
	return &deadline
}

// Service implements incident business logic.
type Service struct {
	repo      Repository
	directory ResponderDirectory
	sla       SLAPolicy
}

// NewService creates a new incident service.
func NewService(repo Repository, directory ResponderDirectory, sla SLAPolicy) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		sla:       sla,
	}
}

// CreateIncidentInput holds data for declaring an incident.
type CreateIncidentInput struct {
	Title           string
	Description     string
	Category        domain.IncidentCategory
	Severity        domain.IncidentSeverity
	Status          domain.IncidentStatus // optional, defaults to New
	Priority        int                   // optional, defaults from severity
	DetectedAt      *time.Time            // optional, defaults to creation time
	Reporter        string
	AffectedSystems []string
	AffectedUsers   []string
	IOCs            []string
	Tags            []string
	CostEstimate    float64
}

// UpdateIncidentInput holds the mutable incident fields. Nil fields stay
// unchanged.
type UpdateIncidentInput struct {
	Title           *string
	Description     *string
	Category        *domain.IncidentCategory
	Severity        *domain.IncidentSeverity
	Status          *domain.IncidentStatus
	Priority        *int
	AffectedSystems []string
	AffectedUsers   []string
	IOCs            []string
	CostEstimate    *float64
}

// CreateIncident declares a new incident. The incident receives a generated
// ID, a sequential number, an initial timeline entry and, when the SLA
// policy has a window for the severity, a response deadline.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	if !input.Category.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, input.Category)
	}
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, input.Severity)
	}
	status := input.Status
	if status == "" {
		status = domain.StatusNew
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	seq, err := s.repo.NextSequence(ctx)
	if err != nil {
		return nil, fmt.Errorf("next sequence: %w", err)
	}

	now := time.Now().UTC()
	detectedAt := now
	if input.DetectedAt != nil {
		detectedAt = input.DetectedAt.UTC()
	}
	priority := input.Priority
	if priority == 0 {
		priority = input.Severity.DefaultPriority()
	}

	incident := &domain.Incident{
		ID:               uuid.New().String(),
		Number:           fmt.Sprintf("INC-%d-%04d", now.Year(), seq),
		Title:            input.Title,
		Description:      input.Description,
		Category:         input.Category,
		Severity:         input.Severity,
		Status:           status,
		Priority:         priority,
		DetectedAt:       detectedAt,
		CreatedAt:        now,
		UpdatedAt:        now,
		Reporter:         input.Reporter,
		AffectedSystems:  cloneOrEmpty(input.AffectedSystems),
		AffectedUsers:    cloneOrEmpty(input.AffectedUsers),
		IOCs:             cloneOrEmpty(input.IOCs),
		Tags:             cloneOrEmpty(input.Tags),
		CostEstimate:     input.CostEstimate,
		ResponseDeadline: s.sla.Deadline(input.Severity, now),
		Timeline:         []domain.TimelineEvent{},
		Responders:       []domain.Responder{},
		Evidence:         []domain.Evidence{},
		Tasks:            []domain.Task{},
		Communications:   []domain.Communication{},
		Actions:          []domain.ResponseAction{},
		LessonsLearned:   []domain.LessonLearned{},
		Notifications:    []domain.Notification{},
	}

	actor := input.Reporter
	if actor == "" {
		actor = actorSystem
	}
	incident.Timeline = append(incident.Timeline, newTimelineEvent(domain.TimelineIncidentCreated, actor, map[string]string{
		"title":    incident.Title,
		"severity": string(incident.Severity),
		"category": string(incident.Category),
	}, now))
	recordTimelineEvent(domain.TimelineIncidentCreated)

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	recordIncidentCreated(incident.Severity, incident.Category)
	return incident, nil
}

// GetIncident retrieves an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents retrieves incidents with optional filters.
func (s *Service) ListIncidents(ctx context.Context, filters IncidentFilters) ([]*domain.Incident, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *filters.Status)
	}
	if filters.Severity != nil && !filters.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, *filters.Severity)
	}
	if filters.Category != nil && !filters.Category.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, *filters.Category)
	}
	return s.repo.ListIncidents(ctx, filters)
}

// SearchIncidents finds incidents whose title, description, number, tags or
// IOCs contain the query, compared case-insensitively.
func (s *Service) SearchIncidents(ctx context.Context, query string) ([]*domain.Incident, error) {
	return s.repo.SearchIncidents(ctx, query)
}

// Timeline returns the audit trail of an incident in append order.
func (s *Service) Timeline(ctx context.Context, id string) ([]domain.TimelineEvent, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	return incident.Timeline, nil
}

// UpdateIncident applies a partial update to the incident's descriptive
// fields. Status changes go through the transition rules; every applied
// change lands in the timeline entry's details.
func (s *Service) UpdateIncident(ctx context.Context, id string, input UpdateIncidentInput, updatedBy string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]string{}
	if input.Title != nil && *input.Title != incident.Title {
		incident.Title = *input.Title
		changes["title"] = *input.Title
	}
	if input.Description != nil && *input.Description != incident.Description {
		incident.Description = *input.Description
		changes["description"] = *input.Description
	}
	if input.Category != nil && *input.Category != incident.Category {
		if !input.Category.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, *input.Category)
		}
		incident.Category = *input.Category
		changes["category"] = string(*input.Category)
	}
	if input.Severity != nil && *input.Severity != incident.Severity {
		if !input.Severity.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, *input.Severity)
		}
		incident.Severity = *input.Severity
		changes["severity"] = string(*input.Severity)
	}
	if input.Status != nil && *input.Status != incident.Status {
		if !input.Status.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *input.Status)
		}
		if !incident.Status.CanTransitionTo(*input.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, incident.Status, *input.Status)
		}
		incident.Status = *input.Status
		changes["status"] = string(*input.Status)
	}
	if input.Priority != nil && *input.Priority != incident.Priority {
		incident.Priority = *input.Priority
		changes["priority"] = strconv.Itoa(*input.Priority)
	}
	if input.AffectedSystems != nil {
		incident.AffectedSystems = cloneOrEmpty(input.AffectedSystems)
		changes["affected_systems"] = strings.Join(input.AffectedSystems, ",")
	}
	if input.AffectedUsers != nil {
		incident.AffectedUsers = cloneOrEmpty(input.AffectedUsers)
		changes["affected_users"] = strings.Join(input.AffectedUsers, ",")
	}
	if input.IOCs != nil {
		incident.IOCs = cloneOrEmpty(input.IOCs)
		changes["iocs"] = strings.Join(input.IOCs, ",")
	}
	if input.CostEstimate != nil && *input.CostEstimate != incident.CostEstimate {
		incident.CostEstimate = *input.CostEstimate
		changes["cost_estimate"] = strconv.FormatFloat(*input.CostEstimate, 'f', -1, 64)
	}

	if len(changes) == 0 {
		return incident, nil
	}

	s.record(incident, domain.TimelineIncidentUpdated, updatedBy, changes)
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

// AssignIncident assigns the incident to a registered responder. The
// responder is copied into the incident's responder list, and incidents
// still in New or Reopened move to Assigned.
func (s *Service) AssignIncident(ctx context.Context, id, responderID, assignedBy string) (*domain.Incident, error) {
	responder, err := s.lookupResponder(ctx, responderID)
	if err != nil {
		return nil, err
	}

	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	incident.AssignedTo = responder.ID
	if !incident.HasResponder(responder.ID) {
		incident.Responders = append(incident.Responders, *responder.Clone())
	}
	if incident.Status == domain.StatusNew || incident.Status == domain.StatusReopened {
		incident.Status = domain.StatusAssigned
	}

	s.record(incident, domain.TimelineIncidentAssigned, assignedBy, map[string]string{
		"responder_id":   responder.ID,
		"responder_name": responder.Name,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

// AssignCommander designates a registered responder as incident commander.
func (s *Service) AssignCommander(ctx context.Context, id, responderID, assignedBy string) (*domain.Incident, error) {
	responder, err := s.lookupResponder(ctx, responderID)
	if err != nil {
		return nil, err
	}

	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	incident.IncidentCommander = responder.ID
	if !incident.HasResponder(responder.ID) {
		incident.Responders = append(incident.Responders, *responder.Clone())
	}

	s.record(incident, domain.TimelineCommanderAssigned, assignedBy, map[string]string{
		"responder_id":   responder.ID,
		"responder_name": responder.Name,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

// EscalateIncident changes the incident severity outside the regular update
// path. Raising the severity restarts the response window from now.
func (s *Service) EscalateIncident(ctx context.Context, id string, severity domain.IncidentSeverity, reason, escalatedBy string) (*domain.Incident, error) {
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, severity)
	}

	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := incident.Severity
	incident.Severity = severity
	raised := severity.DefaultPriority() < previous.DefaultPriority()
	now := s.record(incident, domain.TimelineIncidentEscalated, escalatedBy, map[string]string{
		"old_severity": string(previous),
		"new_severity": string(severity),
		"reason":       reason,
	})
	if raised {
		incident.ResponseDeadline = s.sla.Deadline(severity, now)
	}

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	recordIncidentEscalated()
	return incident, nil
}

// CloseIncident closes the incident from any non-closed status.
func (s *Service) CloseIncident(ctx context.Context, id, resolution, closedBy string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident.Status == domain.StatusClosed {
		return nil, ErrAlreadyClosed
	}

	incident.Status = domain.StatusClosed
	s.record(incident, domain.TimelineIncidentClosed, closedBy, map[string]string{
		"resolution": resolution,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	recordIncidentClosed()
	return incident, nil
}

// ReopenIncident moves a resolved or closed incident back into Reopened.
func (s *Service) ReopenIncident(ctx context.Context, id, reason, reopenedBy string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if !incident.Status.IsResolved() {
		return nil, ErrNotReopenable
	}

	incident.Status = domain.StatusReopened
	s.record(incident, domain.TimelineIncidentReopened, reopenedBy, map[string]string{
		"reason": reason,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

// TagIncident appends the given tags to the incident, skipping ones already
// present. Calls that add nothing leave the incident untouched.
func (s *Service) TagIncident(ctx context.Context, id string, tags []string, taggedBy string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, tag := range tags {
		if tag == "" || incident.HasTag(tag) {
			continue
		}
		incident.Tags = append(incident.Tags, tag)
		added = append(added, tag)
	}
	if len(added) == 0 {
		return incident, nil
	}

	s.record(incident, domain.TimelineIncidentUpdated, taggedBy, map[string]string{
		"tags_added": strings.Join(added, ","),
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

// MarkSLABreach flags the incident as having missed its response deadline.
// Incidents already flagged are returned unchanged so that repeated watchdog
// sweeps record the breach only once.
func (s *Service) MarkSLABreach(ctx context.Context, id, reason string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if incident.SLABreach {
		return incident, nil
	}

	incident.SLABreach = true
	s.record(incident, domain.TimelineSLABreached, actorSystem, map[string]string{
		"reason": reason,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

// RecordPlaybookExecution writes a playbook execution marker into the
// incident timeline.
func (s *Service) RecordPlaybookExecution(ctx context.Context, incidentID, playbookID, playbookName, executionID, executedBy string) error {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return err
	}

	s.record(incident, domain.TimelinePlaybookExecuted, executedBy, map[string]string{
		"playbook_id":   playbookID,
		"playbook_name": playbookName,
		"execution_id":  executionID,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// RecordRuleExecution writes an automation rule marker into the incident
// timeline.
func (s *Service) RecordRuleExecution(ctx context.Context, incidentID, ruleID, ruleName string, actionsApplied int) error {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return err
	}

	s.record(incident, domain.TimelineRuleExecuted, actorSystem, map[string]string{
		"rule_id":         ruleID,
		"rule_name":       ruleName,
		"actions_applied": strconv.Itoa(actionsApplied),
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// lookupResponder resolves a responder through the directory, mapping
// missing entries to ErrResponderNotFound.
func (s *Service) lookupResponder(ctx context.Context, responderID string) (*domain.Responder, error) {
	responder, found, err := s.directory.FindResponder(ctx, responderID)
	if err != nil {
		return nil, fmt.Errorf("lookup responder: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrResponderNotFound, responderID)
	}
	return responder, nil
}

// record appends a timeline event and advances updated_at. The advance is
// strictly monotonic even when the clock has not moved since the previous
// mutation.
func (s *Service) record(incident *domain.Incident, eventType domain.TimelineEventType, actor string, details map[string]string) time.Time {
	if actor == "" {
		actor = actorSystem
	}
	now := touch(incident)
	incident.Timeline = append(incident.Timeline, newTimelineEvent(eventType, actor, details, now))
	recordTimelineEvent(eventType)
	return now
}

func newTimelineEvent(eventType domain.TimelineEventType, actor string, details map[string]string, at time.Time) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Actor:     actor,
		Details:   details,
		CreatedAt: at,
	}
}

func touch(incident *domain.Incident) time.Time {
	now := time.Now().UTC()
	if !now.After(incident.UpdatedAt) {
		now = incident.UpdatedAt.Add(time.Nanosecond)
	}
	incident.UpdatedAt = now
	return now
}

func cloneOrEmpty(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	return append([]string(nil), in...)
}
