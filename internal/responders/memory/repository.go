// Package memory provides the in-memory implementation of the responders
// repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/responders"
)

// Repository implements responders.Repository with in-process maps.
type Repository struct {
	mu         sync.RWMutex
	responders map[string]*domain.Responder
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		responders: make(map[string]*domain.Responder),
	}
}

// CreateResponder stores a copy of the responder.
func (r *Repository) CreateResponder(ctx context.Context, responder *domain.Responder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.responders[responder.ID] = responder.Clone()
	return nil
}

// GetResponder returns a copy of the responder.
func (r *Repository) GetResponder(ctx context.Context, id string) (*domain.Responder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	responder, ok := r.responders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", responders.ErrResponderNotFound, id)
	}
	return responder.Clone(), nil
}

// GetResponderByEmail returns a copy of the responder with the given email,
// compared case-insensitively.
func (r *Repository) GetResponderByEmail(ctx context.Context, email string) (*domain.Responder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, responder := range r.responders {
		if strings.EqualFold(responder.Email, email) {
			return responder.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: email %s", responders.ErrResponderNotFound, email)
}

// ListResponders returns copies of the responders matching the filters,
// sorted by name.
func (r *Repository) ListResponders(ctx context.Context, filters responders.ResponderFilters) ([]*domain.Responder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Responder, 0, len(r.responders))
	for _, responder := range r.responders {
		if filters.Role != nil && responder.Role != *filters.Role {
			continue
		}
		if filters.Available != nil && responder.Available != *filters.Available {
			continue
		}
		out = append(out, responder.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// UpdateResponder replaces the stored responder with a copy of the given one.
func (r *Repository) UpdateResponder(ctx context.Context, responder *domain.Responder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.responders[responder.ID]; !ok {
		return fmt.Errorf("%w: %s", responders.ErrResponderNotFound, responder.ID)
	}
	r.responders[responder.ID] = responder.Clone()
	return nil
}

// Len reports how many responders the registry holds.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.responders)
}
