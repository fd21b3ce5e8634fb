// Package memory provides the in-memory automation rule store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bissquit/incident-forge/internal/automation"
	"github.com/bissquit/incident-forge/internal/domain"
)

type Repository struct {
	mu          sync.RWMutex
	rules       map[string]*domain.AutomationRule
	escalations map[string]*domain.EscalationRule
}

func NewRepository() *Repository {
	return &Repository{
		rules:       make(map[string]*domain.AutomationRule),
		escalations: make(map[string]*domain.EscalationRule),
	}
}

func (r *Repository) CreateRule(_ context.Context, rule *domain.AutomationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules[rule.ID] = rule.Clone()

	return nil
}

func (r *Repository) GetRule(_ context.Context, id string) (*domain.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", automation.ErrRuleNotFound, id)
	}

	return rule.Clone(), nil
}

func (r *Repository) ListRules(_ context.Context) ([]*domain.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.AutomationRule, 0, len(r.rules))

	for _, rule := range r.rules {
		result = append(result, rule.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}

		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *Repository) UpdateRule(_ context.Context, rule *domain.AutomationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID]; !ok {
		return fmt.Errorf("%w: %s", automation.ErrRuleNotFound, rule.ID)
	}

	r.rules[rule.ID] = rule.Clone()

	return nil
}

func (r *Repository) CreateEscalationRule(_ context.Context, rule *domain.EscalationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.escalations[rule.ID] = rule.Clone()

	return nil
}

func (r *Repository) ListEscalationRules(_ context.Context) ([]*domain.EscalationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.EscalationRule, 0, len(r.escalations))

	for _, rule := range r.escalations {
		result = append(result, rule.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}

		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *Repository) UpdateEscalationRule(_ context.Context, rule *domain.EscalationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.escalations[rule.ID]; !ok {
		return fmt.Errorf("%w: %s", automation.ErrEscalationRuleNotFound, rule.ID)
	}

	r.escalations[rule.ID] = rule.Clone()

	return nil
}

// Len reports the number of stored automation rules.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rules)
}

// EscalationsLen reports the number of stored escalation rules.
func (r *Repository) EscalationsLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.escalations)
}
