package automation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-forge/internal/automation"
	"github.com/bissquit/incident-forge/internal/automation/memory"
	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
	incidentsmemory "github.com/bissquit/incident-forge/internal/incidents/memory"
)

type stubDirectory struct {
	responders map[string]*domain.Responder
}

func (d *stubDirectory) FindResponder(_ context.Context, id string) (*domain.Responder, bool, error) {
	responder, ok := d.responders[id]
	if !ok {
		return nil, false, nil
	}

	return responder.Clone(), true, nil
}

type harness struct {
	automation *automation.Service
	incidents  *incidents.Service
	repo       *incidentsmemory.Repository
}

func newTestHarness() *harness {
	directory := &stubDirectory{responders: map[string]*domain.Responder{
		"resp-1": {
			ID:    "resp-1",
			Name:  "Casey Morgan",
			Email: "casey@example.com",
			Role:  domain.RoleAnalyst,
		},
	}}

	incidentsRepo := incidentsmemory.NewRepository()

	incidentsService := incidents.NewService(incidentsRepo, directory, incidents.SLAPolicy{
		ResponseMinutes: map[domain.IncidentSeverity]int{
			domain.SeverityCritical: 15,
			domain.SeverityHigh:     60,
		},
	})

	return &harness{
		automation: automation.NewService(memory.NewRepository(), incidentsService),
		incidents:  incidentsService,
		repo:       incidentsRepo,
	}
}

func (h *harness) createIncident(t *testing.T, severity domain.IncidentSeverity, category domain.IncidentCategory) *domain.Incident {
	t.Helper()

	incident, err := h.incidents.CreateIncident(context.Background(), incidents.CreateIncidentInput{
		Title:    "suspicious outbound traffic",
		Category: category,
		Severity: severity,
		Reporter: "soc",
	})
	require.NoError(t, err)

	return incident
}

// seedOverdueIncident plants an incident whose clock already ran out,
// bypassing the service so created_at can sit in the past.
func (h *harness) seedOverdueIncident(t *testing.T, severity domain.IncidentSeverity, status domain.IncidentStatus, age time.Duration) *domain.Incident {
	t.Helper()

	created := time.Now().UTC().Add(-age)
	deadline := created.Add(5 * time.Minute)

	incident := &domain.Incident{
		ID:               uuid.New().String(),
		Number:           "INC-2026-9999",
		Title:            "stale incident",
		Category:         domain.CategoryMalware,
		Severity:         severity,
		Status:           status,
		Priority:         severity.DefaultPriority(),
		DetectedAt:       created,
		CreatedAt:        created,
		UpdatedAt:        created,
		Reporter:         "soc",
		ResponseDeadline: &deadline,
	}

	require.NoError(t, h.repo.CreateIncident(context.Background(), incident))

	return incident
}

func matchSeverity(value domain.IncidentSeverity) domain.RuleCondition {
	return domain.RuleCondition{Field: domain.ConditionSeverity, Equals: string(value)}
}

func matchCategory(value domain.IncidentCategory) domain.RuleCondition {
	return domain.RuleCondition{Field: domain.ConditionCategory, Equals: string(value)}
}

func TestService_CreateRule(t *testing.T) {
	h := newTestHarness()

	rule, err := h.automation.CreateRule(context.Background(), automation.CreateRuleInput{
		Name:       "tag critical malware",
		Conditions: []domain.RuleCondition{matchSeverity(domain.SeverityCritical), matchCategory(domain.CategoryMalware)},
		Actions: []domain.RuleAction{
			{Type: domain.RuleActionAddTag, Params: map[string]string{"tag": "malware"}},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.True(t, rule.Enabled, "rules default to enabled")
	assert.Equal(t, domain.MatchAny, rule.Match, "match mode defaults to any")
	assert.Zero(t, rule.ExecutionCount)
	assert.Nil(t, rule.LastTriggeredAt)
}

func TestService_CreateRule_Validation(t *testing.T) {
	h := newTestHarness()

	tests := []struct {
		name    string
		input   automation.CreateRuleInput
		wantErr error
	}{
		{
			name: "unknown match mode",
			input: automation.CreateRuleInput{
				Name:  "bad match",
				Match: "some",
			},
			wantErr: automation.ErrInvalidMatch,
		},
		{
			name: "unknown condition field",
			input: automation.CreateRuleInput{
				Name:       "bad field",
				Conditions: []domain.RuleCondition{{Field: "reporter", Equals: "soc"}},
			},
			wantErr: automation.ErrInvalidCondition,
		},
		{
			name: "unknown severity value",
			input: automation.CreateRuleInput{
				Name:       "bad severity",
				Conditions: []domain.RuleCondition{{Field: domain.ConditionSeverity, Equals: "Mild"}},
			},
			wantErr: automation.ErrInvalidCondition,
		},
		{
			name: "assign without responder",
			input: automation.CreateRuleInput{
				Name:    "bad assign",
				Actions: []domain.RuleAction{{Type: domain.RuleActionAssign}},
			},
			wantErr: automation.ErrInvalidAction,
		},
		{
			name: "escalate without severity",
			input: automation.CreateRuleInput{
				Name:    "bad escalate",
				Actions: []domain.RuleAction{{Type: domain.RuleActionEscalate, Params: map[string]string{"severity": "Huge"}}},
			},
			wantErr: automation.ErrInvalidAction,
		},
		{
			name: "unknown action type",
			input: automation.CreateRuleInput{
				Name:    "bad action",
				Actions: []domain.RuleAction{{Type: "reboot"}},
			},
			wantErr: automation.ErrInvalidAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.automation.CreateRule(context.Background(), tt.input)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_EvaluateRulesForIncident(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	incident := h.createIncident(t, domain.SeverityCritical, domain.CategoryMalware)

	mustCreateRule := func(name string, input automation.CreateRuleInput) {
		input.Name = name
		_, err := h.automation.CreateRule(ctx, input)
		require.NoError(t, err)
	}

	disabled := false
	tag := []domain.RuleAction{{Type: domain.RuleActionAddTag, Params: map[string]string{"tag": "x"}}}

	mustCreateRule("any severity hit", automation.CreateRuleInput{
		Conditions: []domain.RuleCondition{matchSeverity(domain.SeverityCritical), matchCategory(domain.CategoryPhishing)},
		Actions:    tag,
	})
	mustCreateRule("all conditions hit", automation.CreateRuleInput{
		Match:      domain.MatchAll,
		Conditions: []domain.RuleCondition{matchSeverity(domain.SeverityCritical), matchCategory(domain.CategoryMalware)},
		Actions:    tag,
	})
	mustCreateRule("all conditions miss", automation.CreateRuleInput{
		Match:      domain.MatchAll,
		Conditions: []domain.RuleCondition{matchSeverity(domain.SeverityCritical), matchCategory(domain.CategoryPhishing)},
		Actions:    tag,
	})
	mustCreateRule("category miss", automation.CreateRuleInput{
		Conditions: []domain.RuleCondition{matchCategory(domain.CategoryPhishing)},
		Actions:    tag,
	})
	mustCreateRule("disabled hit", automation.CreateRuleInput{
		Enabled:    &disabled,
		Conditions: []domain.RuleCondition{matchSeverity(domain.SeverityCritical)},
		Actions:    tag,
	})
	mustCreateRule("no conditions", automation.CreateRuleInput{
		Actions: tag,
	})

	matched, err := h.automation.EvaluateRulesForIncident(ctx, incident.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(matched))
	for _, rule := range matched {
		names = append(names, rule.Name)
	}

	assert.ElementsMatch(t, []string{"any severity hit", "all conditions hit"}, names)

	_, err = h.automation.EvaluateRulesForIncident(ctx, "ghost")
	assert.ErrorIs(t, err, automation.ErrIncidentNotFound)
}

func TestService_ExecuteRule(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	incident := h.createIncident(t, domain.SeverityHigh, domain.CategoryMalware)

	rule, err := h.automation.CreateRule(ctx, automation.CreateRuleInput{
		Name:       "critical malware response",
		Conditions: []domain.RuleCondition{matchCategory(domain.CategoryMalware)},
		Actions: []domain.RuleAction{
			{Type: domain.RuleActionAssign, Params: map[string]string{"responder_id": "resp-1"}},
			{Type: domain.RuleActionEscalate, Params: map[string]string{"severity": "Critical"}},
			{Type: domain.RuleActionAddTag, Params: map[string]string{"tag": "malware"}},
			{Type: domain.RuleActionNotify, Params: map[string]string{"recipient": "soc-lead", "channel": "pager"}},
		},
	})
	require.NoError(t, err)

	executed, err := h.automation.ExecuteRule(ctx, rule.ID, incident.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, executed.ExecutionCount)
	require.NotNil(t, executed.LastTriggeredAt)

	updated, err := h.incidents.GetIncident(ctx, incident.ID)
	require.NoError(t, err)

	assert.Equal(t, "resp-1", updated.AssignedTo)
	assert.Equal(t, domain.SeverityCritical, updated.Severity)
	assert.Contains(t, updated.Tags, "malware")
	require.Len(t, updated.Notifications, 1)
	assert.Equal(t, "soc-lead", updated.Notifications[0].Recipient)
	assert.Equal(t, "automation", updated.Notifications[0].NotifiedBy)

	last := updated.Timeline[len(updated.Timeline)-1]
	assert.Equal(t, domain.TimelineRuleExecuted, last.Type)
	assert.Equal(t, rule.ID, last.Details["rule_id"])
	assert.Equal(t, "4", last.Details["actions_applied"])

	again, err := h.automation.ExecuteRule(ctx, rule.ID, incident.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.ExecutionCount, "every run bumps the counter")
}

func TestService_ExecuteRule_Errors(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	incident := h.createIncident(t, domain.SeverityHigh, domain.CategoryMalware)

	_, err := h.automation.ExecuteRule(ctx, "ghost", incident.ID)
	assert.ErrorIs(t, err, automation.ErrRuleNotFound)

	disabled := false

	rule, err := h.automation.CreateRule(ctx, automation.CreateRuleInput{
		Name:    "disabled",
		Enabled: &disabled,
		Actions: []domain.RuleAction{{Type: domain.RuleActionAddTag, Params: map[string]string{"tag": "x"}}},
	})
	require.NoError(t, err)

	_, err = h.automation.ExecuteRule(ctx, rule.ID, incident.ID)
	assert.ErrorIs(t, err, automation.ErrRuleDisabled)

	enabledRule, err := h.automation.CreateRule(ctx, automation.CreateRuleInput{
		Name:    "enabled",
		Actions: []domain.RuleAction{{Type: domain.RuleActionAddTag, Params: map[string]string{"tag": "x"}}},
	})
	require.NoError(t, err)

	_, err = h.automation.ExecuteRule(ctx, enabledRule.ID, "ghost")
	assert.ErrorIs(t, err, automation.ErrIncidentNotFound)
}

func TestService_ExecuteRule_ContinuesOnActionFailure(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	incident := h.createIncident(t, domain.SeverityHigh, domain.CategoryMalware)

	rule, err := h.automation.CreateRule(ctx, automation.CreateRuleInput{
		Name: "half broken",
		Actions: []domain.RuleAction{
			{Type: domain.RuleActionAssign, Params: map[string]string{"responder_id": "nobody"}},
			{Type: domain.RuleActionAddTag, Params: map[string]string{"tag": "containment"}},
		},
	})
	require.NoError(t, err)

	executed, err := h.automation.ExecuteRule(ctx, rule.ID, incident.ID)
	require.NoError(t, err, "one failing action must not abort the rule")
	assert.Equal(t, 1, executed.ExecutionCount)

	updated, err := h.incidents.GetIncident(ctx, incident.ID)
	require.NoError(t, err)

	assert.Empty(t, updated.AssignedTo, "failed assign leaves the incident unassigned")
	assert.Contains(t, updated.Tags, "containment")

	last := updated.Timeline[len(updated.Timeline)-1]
	assert.Equal(t, domain.TimelineRuleExecuted, last.Type)
	assert.Equal(t, "1", last.Details["actions_applied"])
}

func TestService_CreateEscalationRule(t *testing.T) {
	h := newTestHarness()

	rule, err := h.automation.CreateEscalationRule(context.Background(), automation.CreateEscalationRuleInput{
		Name:               "high to critical",
		Severity:           domain.SeverityHigh,
		MaxResponseMinutes: 60,
		EscalateTo:         domain.SeverityCritical,
		Notify:             []string{"soc-lead"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.True(t, rule.Enabled)
	assert.Zero(t, rule.ExecutionCount)
}

func TestService_CreateEscalationRule_Validation(t *testing.T) {
	h := newTestHarness()

	tests := []struct {
		name  string
		input automation.CreateEscalationRuleInput
	}{
		{
			name: "unknown severity",
			input: automation.CreateEscalationRuleInput{
				Name: "bad", Severity: "Mild", MaxResponseMinutes: 60, EscalateTo: domain.SeverityCritical,
			},
		},
		{
			name: "zero window",
			input: automation.CreateEscalationRuleInput{
				Name: "bad", Severity: domain.SeverityHigh, MaxResponseMinutes: 0, EscalateTo: domain.SeverityCritical,
			},
		},
		{
			name: "target holds severity",
			input: automation.CreateEscalationRuleInput{
				Name: "bad", Severity: domain.SeverityHigh, MaxResponseMinutes: 60, EscalateTo: domain.SeverityHigh,
			},
		},
		{
			name: "target lowers severity",
			input: automation.CreateEscalationRuleInput{
				Name: "bad", Severity: domain.SeverityHigh, MaxResponseMinutes: 60, EscalateTo: domain.SeverityLow,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.automation.CreateEscalationRule(context.Background(), tt.input)

			require.Error(t, err)
			assert.ErrorIs(t, err, automation.ErrInvalidEscalation)
		})
	}
}

func TestService_SweepSLA(t *testing.T) {
	h := newTestHarness()
	ctx := context.Background()

	_, err := h.automation.CreateEscalationRule(ctx, automation.CreateEscalationRuleInput{
		Name:               "high to critical",
		Severity:           domain.SeverityHigh,
		MaxResponseMinutes: 60,
		EscalateTo:         domain.SeverityCritical,
		Notify:             []string{"soc-lead"},
	})
	require.NoError(t, err)

	overdue := h.seedOverdueIncident(t, domain.SeverityHigh, domain.StatusNew, 2*time.Hour)
	worked := h.seedOverdueIncident(t, domain.SeverityHigh, domain.StatusInProgress, 2*time.Hour)
	fresh := h.createIncident(t, domain.SeverityHigh, domain.CategoryMalware)

	touched, err := h.automation.SweepSLA(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, touched, "two breaches plus one escalation")

	escalated, err := h.incidents.GetIncident(ctx, overdue.ID)
	require.NoError(t, err)

	assert.True(t, escalated.SLABreach)
	assert.Equal(t, domain.SeverityCritical, escalated.Severity)
	require.Len(t, escalated.Notifications, 1)
	assert.Equal(t, "soc-lead", escalated.Notifications[0].Recipient)

	types := make([]domain.TimelineEventType, 0, len(escalated.Timeline))
	for _, event := range escalated.Timeline {
		types = append(types, event.Type)
	}

	assert.Contains(t, types, domain.TimelineSLABreached)
	assert.Contains(t, types, domain.TimelineIncidentEscalated)

	// Breach applies to in-flight incidents too, escalation does not.
	inFlight, err := h.incidents.GetIncident(ctx, worked.ID)
	require.NoError(t, err)
	assert.True(t, inFlight.SLABreach)
	assert.Equal(t, domain.SeverityHigh, inFlight.Severity)

	untouched, err := h.incidents.GetIncident(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, untouched.SLABreach)
	assert.Equal(t, domain.SeverityHigh, untouched.Severity)

	rules, err := h.automation.ListEscalationRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, rules[0].ExecutionCount)

	// Escalation moved the incident off the rule's severity, so a second
	// sweep finds nothing left to do.
	touched, err = h.automation.SweepSLA(ctx)
	require.NoError(t, err)
	assert.Zero(t, touched)
}

func TestWatchdog_MarksBreaches(t *testing.T) {
	h := newTestHarness()

	overdue := h.seedOverdueIncident(t, domain.SeverityHigh, domain.StatusInProgress, 2*time.Hour)

	watchdog := automation.NewWatchdog(automation.WatchdogConfig{Interval: 10 * time.Millisecond}, h.automation)
	watchdog.Start(context.Background())

	time.Sleep(100 * time.Millisecond)
	watchdog.Stop()

	updated, err := h.incidents.GetIncident(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.True(t, updated.SLABreach)
}
