package reports

import (
	"context"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
)

// IncidentSource is the read-only slice of the incidents service the report
// aggregators consume.
type IncidentSource interface {
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filters incidents.IncidentFilters) ([]*domain.Incident, error)
	ListInvestigations(ctx context.Context, incidentID string) ([]*domain.ForensicInvestigation, error)
}

// ExecutionCounter reports how many playbook executions are still running.
type ExecutionCounter interface {
	CountActiveExecutions(ctx context.Context) (int, error)
}
