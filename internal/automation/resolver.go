package automation

import (
	"context"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
)

// IncidentActions is the slice of the incidents service the rule engine and
// the SLA watchdog drive. Every mutation goes through it so rule activity
// lands on incident timelines like any other actor's.
type IncidentActions interface {
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filters incidents.IncidentFilters) ([]*domain.Incident, error)
	AssignIncident(ctx context.Context, id, responderID, assignedBy string) (*domain.Incident, error)
	EscalateIncident(ctx context.Context, id string, severity domain.IncidentSeverity, reason, escalatedBy string) (*domain.Incident, error)
	TagIncident(ctx context.Context, id string, tags []string, taggedBy string) (*domain.Incident, error)
	RecordNotification(ctx context.Context, incidentID string, input incidents.RecordNotificationInput) (*domain.Notification, error)
	MarkSLABreach(ctx context.Context, id, reason string) (*domain.Incident, error)
	RecordRuleExecution(ctx context.Context, incidentID, ruleID, ruleName string, actionsApplied int) error
}
