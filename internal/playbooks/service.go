package playbooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
)

type Service struct {
	repo     Repository
	recorder IncidentRecorder
}

func NewService(repo Repository, recorder IncidentRecorder) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
	}
}

type CreatePlaybookInput struct {
	Name              string
	Description       string
	Category          domain.IncidentCategory
	SeverityThreshold domain.IncidentSeverity
	Tags              []string
	Steps             []StepInput
}

type StepInput struct {
	Name              string
	Instructions      string
	RequiredRole      domain.ResponderRole
	EstimatedDuration int
	Automated         bool
}

type ExecutePlaybookInput struct {
	IncidentID string
	Executor   string
}

type UpdateStepInput struct {
	Status     *domain.StepStatus
	AssignedTo *string
	Notes      *string
}

func (s *Service) CreatePlaybook(ctx context.Context, input CreatePlaybookInput) (*domain.ResponsePlaybook, error) {
	if !input.Category.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, input.Category)
	}

	if !input.SeverityThreshold.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, input.SeverityThreshold)
	}

	if len(input.Steps) == 0 {
		return nil, ErrNoSteps
	}

	steps := make([]domain.PlaybookStep, 0, len(input.Steps))

	for i, step := range input.Steps {
		if step.RequiredRole != "" && !step.RequiredRole.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, step.RequiredRole)
		}

		steps = append(steps, domain.PlaybookStep{
			ID:                uuid.New().String(),
			Order:             i + 1,
			Name:              step.Name,
			Instructions:      step.Instructions,
			RequiredRole:      step.RequiredRole,
			EstimatedDuration: step.EstimatedDuration,
			Automated:         step.Automated,
		})
	}

	now := time.Now().UTC()

	playbook := &domain.ResponsePlaybook{
		ID:                uuid.New().String(),
		Name:              input.Name,
		Description:       input.Description,
		Category:          input.Category,
		SeverityThreshold: input.SeverityThreshold,
		Steps:             steps,
		Tags:              cloneOrEmpty(input.Tags),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreatePlaybook(ctx, playbook); err != nil {
		return nil, fmt.Errorf("create playbook: %w", err)
	}

	return playbook, nil
}

func (s *Service) GetPlaybook(ctx context.Context, id string) (*domain.ResponsePlaybook, error) {
	return s.repo.GetPlaybook(ctx, id)
}

func (s *Service) ListPlaybooks(ctx context.Context, filters PlaybookFilters) ([]*domain.ResponsePlaybook, error) {
	if filters.Category != nil && !filters.Category.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, *filters.Category)
	}

	if filters.Severity != nil && !filters.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, *filters.Severity)
	}

	return s.repo.ListPlaybooks(ctx, filters)
}

// ExecutePlaybook starts a run of the playbook against an incident. Every
// step gets a NotStarted tracking record and the incident timeline receives
// a playbook_executed event before the execution is stored, so an unknown
// incident aborts the run without leaving an orphan.
func (s *Service) ExecutePlaybook(ctx context.Context, playbookID string, input ExecutePlaybookInput) (*domain.PlaybookExecution, error) {
	playbook, err := s.repo.GetPlaybook(ctx, playbookID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	stepExecutions := make([]domain.StepExecution, 0, len(playbook.Steps))
	for _, step := range playbook.Steps {
		stepExecutions = append(stepExecutions, domain.StepExecution{
			StepID: step.ID,
			Status: domain.StepNotStarted,
		})
	}

	execution := &domain.PlaybookExecution{
		ID:             uuid.New().String(),
		PlaybookID:     playbook.ID,
		IncidentID:     input.IncidentID,
		Executor:       input.Executor,
		Status:         domain.ExecutionInProgress,
		StartedAt:      now,
		StepExecutions: stepExecutions,
	}

	if err := s.recorder.RecordPlaybookExecution(ctx, input.IncidentID, playbook.ID, playbook.Name, execution.ID, input.Executor); err != nil {
		if errors.Is(err, incidents.ErrIncidentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIncidentNotFound, input.IncidentID)
		}

		return nil, fmt.Errorf("record execution on incident: %w", err)
	}

	if err := s.repo.CreateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	recordExecutionStarted(playbook.Name)

	return execution, nil
}

func (s *Service) GetExecution(ctx context.Context, id string) (*domain.PlaybookExecution, error) {
	return s.repo.GetExecution(ctx, id)
}

// ListExecutionsForIncident returns every run recorded against the incident,
// oldest first.
func (s *Service) ListExecutionsForIncident(ctx context.Context, incidentID string) ([]*domain.PlaybookExecution, error) {
	return s.repo.ListExecutionsByIncident(ctx, incidentID)
}

// CountActiveExecutions reports how many runs are still in progress.
func (s *Service) CountActiveExecutions(ctx context.Context) (int, error) {
	return s.repo.CountActiveExecutions(ctx)
}

// UpdateStepExecution merges the given fields into one step of a running
// execution. Moving a step to InProgress stamps started_at once; Completed
// stamps completed_at. Steps may be revisited while the run is open, but once
// every step is terminal the execution itself completes and freezes.
func (s *Service) UpdateStepExecution(ctx context.Context, executionID, stepID string, input UpdateStepInput) (*domain.PlaybookExecution, error) {
	execution, err := s.repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != domain.ExecutionInProgress {
		return nil, fmt.Errorf("%w: %s", ErrExecutionFinished, execution.Status)
	}

	step := findStep(execution, stepID)
	if step == nil {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}

	now := time.Now().UTC()

	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStepStatus, *input.Status)
		}

		step.Status = *input.Status

		switch *input.Status {
		case domain.StepInProgress:
			if step.StartedAt == nil {
				step.StartedAt = &now
			}
		case domain.StepCompleted:
			if step.StartedAt == nil {
				step.StartedAt = &now
			}

			step.CompletedAt = &now
		}

		recordStepUpdate(string(*input.Status))
	}

	if input.AssignedTo != nil {
		step.AssignedTo = *input.AssignedTo
	}

	if input.Notes != nil {
		step.Notes = *input.Notes
	}

	if execution.AllStepsTerminal() {
		execution.Status = domain.ExecutionCompleted
		execution.CompletedAt = &now

		recordExecutionFinished(string(domain.ExecutionCompleted))
	}

	if err := s.repo.UpdateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}

	return execution, nil
}

// CancelExecution abandons a running execution. Pending steps keep whatever
// state they were in; the execution itself becomes terminal.
func (s *Service) CancelExecution(ctx context.Context, executionID string) (*domain.PlaybookExecution, error) {
	execution, err := s.repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != domain.ExecutionInProgress {
		return nil, fmt.Errorf("%w: %s", ErrExecutionFinished, execution.Status)
	}

	now := time.Now().UTC()
	execution.Status = domain.ExecutionCancelled
	execution.CompletedAt = &now

	if err := s.repo.UpdateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("cancel execution: %w", err)
	}

	recordExecutionFinished(string(domain.ExecutionCancelled))

	return execution, nil
}

func findStep(execution *domain.PlaybookExecution, stepID string) *domain.StepExecution {
	for i := range execution.StepExecutions {
		if execution.StepExecutions[i].StepID == stepID {
			return &execution.StepExecutions[i]
		}
	}

	return nil
}

func cloneOrEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	return append(out, values...)
}
