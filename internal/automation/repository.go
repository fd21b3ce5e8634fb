package automation

import (
	"context"

	"github.com/bissquit/incident-forge/internal/domain"
)

type Repository interface {
	CreateRule(ctx context.Context, rule *domain.AutomationRule) error
	GetRule(ctx context.Context, id string) (*domain.AutomationRule, error)
	ListRules(ctx context.Context) ([]*domain.AutomationRule, error)
	UpdateRule(ctx context.Context, rule *domain.AutomationRule) error

	CreateEscalationRule(ctx context.Context, rule *domain.EscalationRule) error
	ListEscalationRules(ctx context.Context) ([]*domain.EscalationRule, error)
	UpdateEscalationRule(ctx context.Context, rule *domain.EscalationRule) error
}
