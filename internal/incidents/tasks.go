package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
)

// AddTaskInput holds data for creating a response task. Checklist entries
// are created in pending state from the given texts.
type AddTaskInput struct {
	Title       string
	Description string
	AssignedTo  string
	DueDate     *time.Time
	Checklist   []string
}

// UpdateTaskInput holds the mutable task fields. Nil fields stay unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	AssignedTo  *string
	DueDate     *time.Time
}

// AddTask attaches a response task to the incident.
func (s *Service) AddTask(ctx context.Context, incidentID string, input AddTaskInput, createdBy string) (*domain.Task, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := domain.Task{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TaskStatusPending,
		AssignedTo:  input.AssignedTo,
		DueDate:     input.DueDate,
		Checklist:   make([]domain.ChecklistItem, 0, len(input.Checklist)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, text := range input.Checklist {
		task.Checklist = append(task.Checklist, domain.ChecklistItem{
			ID:     uuid.New().String(),
			Text:   text,
			Status: domain.ChecklistItemPending,
		})
	}
	incident.Tasks = append(incident.Tasks, task)

	s.record(incident, domain.TimelineTaskAdded, createdBy, map[string]string{
		"task_id": task.ID,
		"title":   task.Title,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	out := task.Clone()
	return &out, nil
}

// UpdateTask applies a partial update to a task. Moving a task to completed
// stamps the completion fields.
func (s *Service) UpdateTask(ctx context.Context, incidentID, taskID string, input UpdateTaskInput, updatedBy string) (*domain.Task, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	task := findTask(incident, taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	changes := map[string]string{"task_id": task.ID}
	if input.Title != nil && *input.Title != task.Title {
		task.Title = *input.Title
		changes["title"] = *input.Title
	}
	if input.Description != nil && *input.Description != task.Description {
		task.Description = *input.Description
		changes["description"] = *input.Description
	}
	if input.AssignedTo != nil && *input.AssignedTo != task.AssignedTo {
		task.AssignedTo = *input.AssignedTo
		changes["assigned_to"] = *input.AssignedTo
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
		changes["due_date"] = input.DueDate.Format(time.RFC3339)
	}
	if input.Status != nil && *input.Status != task.Status {
		if !input.Status.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTaskStatus, *input.Status)
		}
		task.Status = *input.Status
		changes["status"] = string(*input.Status)
		if task.Status == domain.TaskStatusCompleted {
			now := time.Now().UTC()
			task.CompletedBy = updatedBy
			task.CompletedAt = &now
		}
	}

	if len(changes) == 1 {
		out := task.Clone()
		return &out, nil
	}

	task.UpdatedAt = s.record(incident, domain.TimelineTaskUpdated, updatedBy, changes)
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	out := task.Clone()
	return &out, nil
}

// CompleteChecklistItem marks one checklist entry of a task as completed,
// recording who did it and when.
func (s *Service) CompleteChecklistItem(ctx context.Context, incidentID, taskID, itemID, completedBy string) (*domain.Task, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	task := findTask(incident, taskID)
	if task == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	var item *domain.ChecklistItem
	for i := range task.Checklist {
		if task.Checklist[i].ID == itemID {
			item = &task.Checklist[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrChecklistItemNotFound, itemID)
	}
	if item.Status == domain.ChecklistItemCompleted {
		return nil, ErrChecklistItemCompleted
	}

	now := time.Now().UTC()
	item.Status = domain.ChecklistItemCompleted
	item.CompletedBy = completedBy
	item.CompletedAt = &now

	task.UpdatedAt = s.record(incident, domain.TimelineChecklistItemCompleted, completedBy, map[string]string{
		"task_id": task.ID,
		"item_id": item.ID,
		"text":    item.Text,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	out := task.Clone()
	return &out, nil
}

// ListTasks returns the incident's tasks.
func (s *Service) ListTasks(ctx context.Context, incidentID string) ([]domain.Task, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	return incident.Tasks, nil
}

func findTask(incident *domain.Incident, taskID string) *domain.Task {
	for i := range incident.Tasks {
		if incident.Tasks[i].ID == taskID {
			return &incident.Tasks[i]
		}
	}
	return nil
}
