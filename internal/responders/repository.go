package responders

import (
	"context"

	"github.com/bissquit/incident-forge/internal/domain"
)

// Repository defines the interface for responder storage.
type Repository interface {
	CreateResponder(ctx context.Context, responder *domain.Responder) error
	GetResponder(ctx context.Context, id string) (*domain.Responder, error)
	GetResponderByEmail(ctx context.Context, email string) (*domain.Responder, error)
	ListResponders(ctx context.Context, filters ResponderFilters) ([]*domain.Responder, error)
	UpdateResponder(ctx context.Context, responder *domain.Responder) error
}

// ResponderFilters holds filter options for listing responders. Nil fields
// are ignored.
type ResponderFilters struct {
	Role      *domain.ResponderRole
	Available *bool
}
