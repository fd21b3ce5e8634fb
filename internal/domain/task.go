package domain

import "time"

// TaskStatus represents the progress of a response task.
type TaskStatus string

// Task statuses.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValid checks if the task status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// ChecklistItemStatus represents the state of a single checklist item.
type ChecklistItemStatus string

// Checklist item statuses.
const (
	ChecklistItemPending   ChecklistItemStatus = "pending"
	ChecklistItemCompleted ChecklistItemStatus = "completed"
)

// ChecklistItem is one independently completable step inside a task.
// Completion stamps completed_by and completed_at on that item only.
type ChecklistItem struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	Status      ChecklistItemStatus `json:"status"`
	CompletedBy string              `json:"completed_by,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// Task is a unit of response work owned by an incident.
type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      TaskStatus      `json:"status"`
	AssignedTo  string          `json:"assigned_to,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Checklist   []ChecklistItem `json:"checklist"`
	CompletedBy string          `json:"completed_by,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	out.DueDate = cloneTime(t.DueDate)
	out.CompletedAt = cloneTime(t.CompletedAt)
	out.Checklist = make([]ChecklistItem, len(t.Checklist))
	for n, item := range t.Checklist {
		c := item
		c.CompletedAt = cloneTime(item.CompletedAt)
		out.Checklist[n] = c
	}
	return out
}
