package playbooks

import (
	"context"

	"github.com/bissquit/incident-forge/internal/domain"
)

// PlaybookFilters narrows playbook listings. Severity selects playbooks
// applicable to incidents of that severity, i.e. whose threshold is at or
// below it.
type PlaybookFilters struct {
	Category *domain.IncidentCategory
	Severity *domain.IncidentSeverity
	Tag      *string
}

type Repository interface {
	CreatePlaybook(ctx context.Context, playbook *domain.ResponsePlaybook) error
	GetPlaybook(ctx context.Context, id string) (*domain.ResponsePlaybook, error)
	ListPlaybooks(ctx context.Context, filters PlaybookFilters) ([]*domain.ResponsePlaybook, error)

	CreateExecution(ctx context.Context, execution *domain.PlaybookExecution) error
	GetExecution(ctx context.Context, id string) (*domain.PlaybookExecution, error)
	ListExecutionsByIncident(ctx context.Context, incidentID string) ([]*domain.PlaybookExecution, error)
	UpdateExecution(ctx context.Context, execution *domain.PlaybookExecution) error
	CountActiveExecutions(ctx context.Context) (int, error)
}
