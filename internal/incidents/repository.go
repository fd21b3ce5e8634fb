package incidents

import (
	"context"
	"time"

	"github.com/bissquit/incident-forge/internal/domain"
)

// Repository defines the interface for incident storage.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filters IncidentFilters) ([]*domain.Incident, error)
	SearchIncidents(ctx context.Context, query string) ([]*domain.Incident, error)
	UpdateIncident(ctx context.Context, incident *domain.Incident) error

	// NextSequence hands out the next value of the monotonically increasing
	// counter behind incident numbers.
	NextSequence(ctx context.Context) (int, error)

	CreateInvestigation(ctx context.Context, investigation *domain.ForensicInvestigation) error
	GetInvestigation(ctx context.Context, id string) (*domain.ForensicInvestigation, error)
	ListInvestigations(ctx context.Context, incidentID string) ([]*domain.ForensicInvestigation, error)
	UpdateInvestigation(ctx context.Context, investigation *domain.ForensicInvestigation) error
}

// IncidentFilters holds filter options for listing incidents.
// Nil fields are ignored; Tags matches incidents carrying any listed tag.
type IncidentFilters struct {
	Status      *domain.IncidentStatus
	Severity    *domain.IncidentSeverity
	Category    *domain.IncidentCategory
	AssignedTo  *string
	Tags        []string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}
