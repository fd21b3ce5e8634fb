package responders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
)

// Service implements responder registry business logic.
type Service struct {
	repo Repository
}

// NewService creates a new responder service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterResponderInput holds data for registering a responder.
type RegisterResponderInput struct {
	Name      string
	Email     string
	Role      domain.ResponderRole
	Skills    []string
	Contact   map[string]string
	Available *bool // optional, defaults to true
}

// UpdateResponderInput holds the mutable responder fields. Nil fields stay
// unchanged.
type UpdateResponderInput struct {
	Name      *string
	Email     *string
	Role      *domain.ResponderRole
	Skills    []string
	Contact   map[string]string
	Available *bool
}

// RegisterResponder adds a responder to the registry. Emails are unique
// across the registry; availability defaults to true.
func (s *Service) RegisterResponder(ctx context.Context, input RegisterResponderInput) (*domain.Responder, error) {
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, input.Role)
	}
	if err := s.checkEmailFree(ctx, input.Email, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	available := true
	if input.Available != nil {
		available = *input.Available
	}
	responder := &domain.Responder{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Email:     input.Email,
		Role:      input.Role,
		Skills:    input.Skills,
		Contact:   input.Contact,
		Available: available,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if responder.Skills == nil {
		responder.Skills = []string{}
	}
	if responder.Contact == nil {
		responder.Contact = map[string]string{}
	}

	if err := s.repo.CreateResponder(ctx, responder); err != nil {
		return nil, fmt.Errorf("create responder: %w", err)
	}
	return responder, nil
}

// GetResponder retrieves a responder by ID.
func (s *Service) GetResponder(ctx context.Context, id string) (*domain.Responder, error) {
	return s.repo.GetResponder(ctx, id)
}

// ListResponders retrieves responders with optional filters.
func (s *Service) ListResponders(ctx context.Context, filters ResponderFilters) ([]*domain.Responder, error) {
	if filters.Role != nil && !filters.Role.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, *filters.Role)
	}
	return s.repo.ListResponders(ctx, filters)
}

// UpdateResponder applies a partial update to a registry record. Updates
// never touch copies already embedded in incidents.
func (s *Service) UpdateResponder(ctx context.Context, id string, input UpdateResponderInput) (*domain.Responder, error) {
	responder, err := s.repo.GetResponder(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		responder.Name = *input.Name
	}
	if input.Email != nil && *input.Email != responder.Email {
		if err := s.checkEmailFree(ctx, *input.Email, responder.ID); err != nil {
			return nil, err
		}
		responder.Email = *input.Email
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, *input.Role)
		}
		responder.Role = *input.Role
	}
	if input.Skills != nil {
		responder.Skills = input.Skills
	}
	if input.Contact != nil {
		responder.Contact = input.Contact
	}
	if input.Available != nil {
		responder.Available = *input.Available
	}
	responder.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateResponder(ctx, responder); err != nil {
		return nil, fmt.Errorf("update responder: %w", err)
	}
	return responder, nil
}

// FindResponder implements the directory lookup consumed by the incidents
// service: a missing responder is reported through the found flag rather
// than an error.
func (s *Service) FindResponder(ctx context.Context, id string) (*domain.Responder, bool, error) {
	responder, err := s.repo.GetResponder(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResponderNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return responder, true, nil
}

func (s *Service) checkEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.GetResponderByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrResponderNotFound) {
			return nil
		}
		return fmt.Errorf("check email: %w", err)
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: %s", ErrEmailExists, email)
	}
	return nil
}
