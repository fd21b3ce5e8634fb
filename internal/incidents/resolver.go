package incidents

import (
	"context"

	"github.com/bissquit/incident-forge/internal/domain"
)

// ResponderDirectory resolves responder IDs against the responder registry.
type ResponderDirectory interface {
	// FindResponder reports whether the responder exists and returns a copy
	// of it when it does.
	FindResponder(ctx context.Context, id string) (*domain.Responder, bool, error)
}
