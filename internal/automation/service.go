package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
	"github.com/bissquit/incident-forge/internal/pkg/ctxlog"
)

// actorAutomation is the actor recorded when the rule engine mutates an
// incident.
const actorAutomation = "automation"

type Service struct {
	repo    Repository
	actions IncidentActions
}

func NewService(repo Repository, actions IncidentActions) *Service {
	return &Service{
		repo:    repo,
		actions: actions,
	}
}

type CreateRuleInput struct {
	Name        string
	Description string
	Enabled     *bool
	Match       domain.RuleMatch
	Conditions  []domain.RuleCondition
	Actions     []domain.RuleAction
}

type CreateEscalationRuleInput struct {
	Name               string
	Severity           domain.IncidentSeverity
	MaxResponseMinutes int
	EscalateTo         domain.IncidentSeverity
	Notify             []string
	Enabled            *bool
}

// CreateRule registers an automation rule. Conditions and action parameters
// are validated eagerly so a rule never fails for shape reasons at execution
// time. The match mode defaults to "any".
func (s *Service) CreateRule(ctx context.Context, input CreateRuleInput) (*domain.AutomationRule, error) {
	match := input.Match
	if match == "" {
		match = domain.MatchAny
	}

	if !match.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMatch, input.Match)
	}

	for _, condition := range input.Conditions {
		if err := validateCondition(condition); err != nil {
			return nil, err
		}
	}

	for _, action := range input.Actions {
		if err := validateAction(action); err != nil {
			return nil, err
		}
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	now := time.Now().UTC()

	rule := &domain.AutomationRule{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Enabled:     enabled,
		Match:       match,
		Conditions:  append([]domain.RuleCondition{}, input.Conditions...),
		Actions:     append([]domain.RuleAction{}, input.Actions...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	return rule, nil
}

func (s *Service) GetRule(ctx context.Context, id string) (*domain.AutomationRule, error) {
	return s.repo.GetRule(ctx, id)
}

func (s *Service) ListRules(ctx context.Context) ([]*domain.AutomationRule, error) {
	return s.repo.ListRules(ctx)
}

// CreateEscalationRule registers an SLA escalation rule. The target severity
// must raise the incident, never hold or lower it.
func (s *Service) CreateEscalationRule(ctx context.Context, input CreateEscalationRuleInput) (*domain.EscalationRule, error) {
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidEscalation, input.Severity)
	}

	if !input.EscalateTo.IsValid() {
		return nil, fmt.Errorf("%w: unknown target severity %q", ErrInvalidEscalation, input.EscalateTo)
	}

	if input.MaxResponseMinutes <= 0 {
		return nil, fmt.Errorf("%w: max_response_minutes must be positive", ErrInvalidEscalation)
	}

	if input.EscalateTo.DefaultPriority() >= input.Severity.DefaultPriority() {
		return nil, fmt.Errorf("%w: escalate_to must raise severity", ErrInvalidEscalation)
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	rule := &domain.EscalationRule{
		ID:                 uuid.New().String(),
		Name:               input.Name,
		Severity:           input.Severity,
		MaxResponseMinutes: input.MaxResponseMinutes,
		EscalateTo:         input.EscalateTo,
		Notify:             append([]string{}, input.Notify...),
		Enabled:            enabled,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.repo.CreateEscalationRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("create escalation rule: %w", err)
	}

	return rule, nil
}

func (s *Service) ListEscalationRules(ctx context.Context) ([]*domain.EscalationRule, error) {
	return s.repo.ListEscalationRules(ctx)
}

// EvaluateRulesForIncident returns the enabled rules whose conditions match
// the incident. Evaluation has no side effects; pair it with ExecuteRule to
// apply a match.
func (s *Service) EvaluateRulesForIncident(ctx context.Context, incidentID string) ([]*domain.AutomationRule, error) {
	incident, err := s.lookupIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	matched := make([]*domain.AutomationRule, 0)

	for _, rule := range rules {
		if rule.Enabled && rule.Matches(incident.Severity, incident.Category) {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

// ExecuteRule applies the rule's actions to the incident. A failing action
// is logged and skipped rather than aborting the rest. Every run bumps the
// rule's execution counter and leaves a rule_executed event on the incident
// timeline, whether or not all actions applied.
func (s *Service) ExecuteRule(ctx context.Context, ruleID, incidentID string) (*domain.AutomationRule, error) {
	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if !rule.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrRuleDisabled, rule.Name)
	}

	if _, err := s.lookupIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	applied := 0

	for _, action := range rule.Actions {
		if err := s.applyAction(ctx, incidentID, action, rule.Name); err != nil {
			logger.Warn("rule action failed",
				"rule", rule.Name,
				"action", string(action.Type),
				"incident_id", incidentID,
				"error", err)
			recordActionFailure(string(action.Type))

			continue
		}

		applied++
	}

	now := time.Now().UTC()
	rule.ExecutionCount++
	rule.LastTriggeredAt = &now

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}

	if err := s.actions.RecordRuleExecution(ctx, incidentID, rule.ID, rule.Name, applied); err != nil {
		return nil, fmt.Errorf("record rule execution: %w", err)
	}

	recordRuleExecution(rule.Name)

	return rule, nil
}

func (s *Service) applyAction(ctx context.Context, incidentID string, action domain.RuleAction, ruleName string) error {
	switch action.Type {
	case domain.RuleActionAssign:
		_, err := s.actions.AssignIncident(ctx, incidentID, action.Params["responder_id"], actorAutomation)
		return err
	case domain.RuleActionEscalate:
		reason := action.Params["reason"]
		if reason == "" {
			reason = fmt.Sprintf("automation rule %q", ruleName)
		}

		_, err := s.actions.EscalateIncident(ctx, incidentID, domain.IncidentSeverity(action.Params["severity"]), reason, actorAutomation)
		return err
	case domain.RuleActionAddTag:
		_, err := s.actions.TagIncident(ctx, incidentID, []string{action.Params["tag"]}, actorAutomation)
		return err
	case domain.RuleActionNotify:
		subject := action.Params["subject"]
		if subject == "" {
			subject = fmt.Sprintf("automation rule %q triggered", ruleName)
		}

		_, err := s.actions.RecordNotification(ctx, incidentID, incidents.RecordNotificationInput{
			Recipient:  action.Params["recipient"],
			Channel:    action.Params["channel"],
			Subject:    subject,
			NotifiedBy: actorAutomation,
		})
		return err
	}

	return fmt.Errorf("%w: unknown type %q", ErrInvalidAction, action.Type)
}

func (s *Service) lookupIncident(ctx context.Context, incidentID string) (*domain.Incident, error) {
	incident, err := s.actions.GetIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, incidents.ErrIncidentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIncidentNotFound, incidentID)
		}

		return nil, fmt.Errorf("load incident: %w", err)
	}

	return incident, nil
}

func validateCondition(condition domain.RuleCondition) error {
	switch condition.Field {
	case domain.ConditionSeverity:
		if !domain.IncidentSeverity(condition.Equals).IsValid() {
			return fmt.Errorf("%w: unknown severity %q", ErrInvalidCondition, condition.Equals)
		}
	case domain.ConditionCategory:
		if !domain.IncidentCategory(condition.Equals).IsValid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidCondition, condition.Equals)
		}
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, condition.Field)
	}

	return nil
}

func validateAction(action domain.RuleAction) error {
	switch action.Type {
	case domain.RuleActionAssign:
		if action.Params["responder_id"] == "" {
			return fmt.Errorf("%w: assign requires responder_id", ErrInvalidAction)
		}
	case domain.RuleActionEscalate:
		if !domain.IncidentSeverity(action.Params["severity"]).IsValid() {
			return fmt.Errorf("%w: escalate requires a valid severity", ErrInvalidAction)
		}
	case domain.RuleActionAddTag:
		if action.Params["tag"] == "" {
			return fmt.Errorf("%w: add_tag requires tag", ErrInvalidAction)
		}
	case domain.RuleActionNotify:
		if action.Params["recipient"] == "" || action.Params["channel"] == "" {
			return fmt.Errorf("%w: notify requires recipient and channel", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAction, action.Type)
	}

	return nil
}
