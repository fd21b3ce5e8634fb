// Package memory provides the in-memory playbook store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/playbooks"
)

type Repository struct {
	mu         sync.RWMutex
	playbooks  map[string]*domain.ResponsePlaybook
	executions map[string]*domain.PlaybookExecution
}

func NewRepository() *Repository {
	return &Repository{
		playbooks:  make(map[string]*domain.ResponsePlaybook),
		executions: make(map[string]*domain.PlaybookExecution),
	}
}

func (r *Repository) CreatePlaybook(_ context.Context, playbook *domain.ResponsePlaybook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.playbooks[playbook.ID] = playbook.Clone()

	return nil
}

func (r *Repository) GetPlaybook(_ context.Context, id string) (*domain.ResponsePlaybook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	playbook, ok := r.playbooks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", playbooks.ErrPlaybookNotFound, id)
	}

	return playbook.Clone(), nil
}

func (r *Repository) ListPlaybooks(_ context.Context, filters playbooks.PlaybookFilters) ([]*domain.ResponsePlaybook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.ResponsePlaybook, 0, len(r.playbooks))

	for _, playbook := range r.playbooks {
		if !matchesFilters(playbook, filters) {
			continue
		}

		result = append(result, playbook.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}

		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *Repository) CreateExecution(_ context.Context, execution *domain.PlaybookExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executions[execution.ID] = execution.Clone()

	return nil
}

func (r *Repository) GetExecution(_ context.Context, id string) (*domain.PlaybookExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", playbooks.ErrExecutionNotFound, id)
	}

	return execution.Clone(), nil
}

func (r *Repository) ListExecutionsByIncident(_ context.Context, incidentID string) ([]*domain.PlaybookExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.PlaybookExecution, 0)

	for _, execution := range r.executions {
		if execution.IncidentID != incidentID {
			continue
		}

		result = append(result, execution.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.Before(result[j].StartedAt)
		}

		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *Repository) UpdateExecution(_ context.Context, execution *domain.PlaybookExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executions[execution.ID]; !ok {
		return fmt.Errorf("%w: %s", playbooks.ErrExecutionNotFound, execution.ID)
	}

	r.executions[execution.ID] = execution.Clone()

	return nil
}

func (r *Repository) CountActiveExecutions(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0

	for _, execution := range r.executions {
		if execution.Status == domain.ExecutionInProgress {
			count++
		}
	}

	return count, nil
}

// Len reports the number of stored playbooks.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.playbooks)
}

// ExecutionsLen reports the number of stored executions.
func (r *Repository) ExecutionsLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.executions)
}

func matchesFilters(playbook *domain.ResponsePlaybook, filters playbooks.PlaybookFilters) bool {
	if filters.Category != nil && playbook.Category != *filters.Category {
		return false
	}

	// A playbook applies to incidents at or above its severity threshold;
	// lower DefaultPriority means more urgent.
	if filters.Severity != nil && playbook.SeverityThreshold.DefaultPriority() < filters.Severity.DefaultPriority() {
		return false
	}

	if filters.Tag != nil {
		found := false

		for _, tag := range playbook.Tags {
			if tag == *filters.Tag {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
