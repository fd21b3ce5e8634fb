package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/playbooks"
)

func storedPlaybook(id, name string, category domain.IncidentCategory, threshold domain.IncidentSeverity) *domain.ResponsePlaybook {
	now := time.Now().UTC()

	return &domain.ResponsePlaybook{
		ID:                id,
		Name:              name,
		Category:          category,
		SeverityThreshold: threshold,
		Steps: []domain.PlaybookStep{
			{ID: id + "-step-1", Order: 1, Name: "first"},
		},
		Tags:      []string{"drill"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func storedExecution(id, playbookID, incidentID string, startedAt time.Time) *domain.PlaybookExecution {
	return &domain.PlaybookExecution{
		ID:         id,
		PlaybookID: playbookID,
		IncidentID: incidentID,
		Executor:   "casey",
		Status:     domain.ExecutionInProgress,
		StartedAt:  startedAt,
		StepExecutions: []domain.StepExecution{
			{StepID: playbookID + "-step-1", Status: domain.StepNotStarted},
		},
	}
}

func TestRepository_PlaybookCloneIsolation(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	playbook := storedPlaybook("pb-1", "Containment", domain.CategoryMalware, domain.SeverityHigh)
	require.NoError(t, repo.CreatePlaybook(ctx, playbook))

	// Mutating the caller's copy must not leak into the store.
	playbook.Name = "scribbled"
	playbook.Steps[0].Name = "scribbled"

	got, err := repo.GetPlaybook(ctx, "pb-1")
	require.NoError(t, err)
	assert.Equal(t, "Containment", got.Name)
	assert.Equal(t, "first", got.Steps[0].Name)

	// And mutating a fetched copy must not either.
	got.Tags[0] = "scribbled"

	again, err := repo.GetPlaybook(ctx, "pb-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"drill"}, again.Tags)
}

func TestRepository_GetPlaybook_NotFound(t *testing.T) {
	repo := NewRepository()

	_, err := repo.GetPlaybook(context.Background(), "ghost")
	assert.ErrorIs(t, err, playbooks.ErrPlaybookNotFound)
}

func TestRepository_ListPlaybooks_SeverityApplicability(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreatePlaybook(ctx, storedPlaybook("pb-1", "Critical Only", domain.CategoryMalware, domain.SeverityCritical)))
	require.NoError(t, repo.CreatePlaybook(ctx, storedPlaybook("pb-2", "Any Severity", domain.CategoryMalware, domain.SeverityInfo)))

	high := domain.SeverityHigh
	result, err := repo.ListPlaybooks(ctx, playbooks.PlaybookFilters{Severity: &high})
	require.NoError(t, err)

	require.Len(t, result, 1)
	assert.Equal(t, "Any Severity", result[0].Name)

	critical := domain.SeverityCritical
	result, err = repo.ListPlaybooks(ctx, playbooks.PlaybookFilters{Severity: &critical})
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestRepository_ExecutionLifecycle(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	base := time.Now().UTC()

	require.NoError(t, repo.CreateExecution(ctx, storedExecution("ex-2", "pb-1", "inc-1", base.Add(time.Minute))))
	require.NoError(t, repo.CreateExecution(ctx, storedExecution("ex-1", "pb-1", "inc-1", base)))
	require.NoError(t, repo.CreateExecution(ctx, storedExecution("ex-3", "pb-1", "inc-2", base)))

	result, err := repo.ListExecutionsByIncident(ctx, "inc-1")
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, "ex-1", result[0].ID, "oldest execution first")
	assert.Equal(t, "ex-2", result[1].ID)

	execution, err := repo.GetExecution(ctx, "ex-1")
	require.NoError(t, err)

	now := time.Now().UTC()
	execution.Status = domain.ExecutionCompleted
	execution.CompletedAt = &now
	require.NoError(t, repo.UpdateExecution(ctx, execution))

	active, err := repo.CountActiveExecutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, active)

	assert.Equal(t, 3, repo.ExecutionsLen())

	err = repo.UpdateExecution(ctx, storedExecution("ghost", "pb-1", "inc-1", base))
	assert.ErrorIs(t, err, playbooks.ErrExecutionNotFound)

	_, err = repo.GetExecution(ctx, "ghost")
	assert.ErrorIs(t, err, playbooks.ErrExecutionNotFound)
}
