package domain

import "time"

// ResponsePlaybook is a reusable ordered sequence of response steps for a
// category of incidents.
type ResponsePlaybook struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Category          IncidentCategory `json:"category"`
	SeverityThreshold IncidentSeverity `json:"severity_threshold"`
	Steps             []PlaybookStep   `json:"steps"`
	Tags              []string         `json:"tags"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Clone returns a deep copy of the playbook.
func (p *ResponsePlaybook) Clone() *ResponsePlaybook {
	out := *p
	out.Steps = cloneSlice(p.Steps)
	out.Tags = cloneSlice(p.Tags)
	return &out
}

// PlaybookStep is one step definition inside a playbook.
type PlaybookStep struct {
	ID                string        `json:"id"`
	Order             int           `json:"order"`
	Name              string        `json:"name"`
	Instructions      string        `json:"instructions"`
	RequiredRole      ResponderRole `json:"required_role,omitempty"`
	EstimatedDuration int           `json:"estimated_duration"`
	Automated         bool          `json:"automated"`
}

// ExecutionStatus represents the state of a playbook execution as a whole.
// The execution is InProgress from the moment it is created, while its child
// steps individually start at NotStarted.
type ExecutionStatus string

// Execution statuses.
const (
	ExecutionInProgress ExecutionStatus = "InProgress"
	ExecutionCompleted  ExecutionStatus = "Completed"
	ExecutionCancelled  ExecutionStatus = "Cancelled"
)

// IsValid checks if the execution status is one of the known values.
func (s ExecutionStatus) IsValid() bool {
	return s == ExecutionInProgress || s == ExecutionCompleted || s == ExecutionCancelled
}

// StepStatus represents the state of a single step execution.
type StepStatus string

// Step statuses.
const (
	StepNotStarted StepStatus = "NotStarted"
	StepInProgress StepStatus = "InProgress"
	StepCompleted  StepStatus = "Completed"
	StepSkipped    StepStatus = "Skipped"
)

// IsValid checks if the step status is one of the known values.
func (s StepStatus) IsValid() bool {
	return s == StepNotStarted || s == StepInProgress || s == StepCompleted || s == StepSkipped
}

// IsTerminal checks if the step needs no further work.
func (s StepStatus) IsTerminal() bool {
	return s == StepCompleted || s == StepSkipped
}

// PlaybookExecution is one run of a playbook against a specific incident. It
// owns one StepExecution per playbook step, in step order.
type PlaybookExecution struct {
	ID             string          `json:"id"`
	PlaybookID     string          `json:"playbook_id"`
	IncidentID     string          `json:"incident_id"`
	Executor       string          `json:"executor"`
	Status         ExecutionStatus `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	StepExecutions []StepExecution `json:"step_executions"`
}

// AllStepsTerminal checks whether every step is Completed or Skipped.
func (e *PlaybookExecution) AllStepsTerminal() bool {
	for _, s := range e.StepExecutions {
		if !s.Status.IsTerminal() {
			return false
		}
	}
	return len(e.StepExecutions) > 0
}

// Clone returns a deep copy of the execution.
func (e *PlaybookExecution) Clone() *PlaybookExecution {
	out := *e
	out.CompletedAt = cloneTime(e.CompletedAt)
	out.StepExecutions = make([]StepExecution, len(e.StepExecutions))
	for n, s := range e.StepExecutions {
		c := s
		c.StartedAt = cloneTime(s.StartedAt)
		c.CompletedAt = cloneTime(s.CompletedAt)
		out.StepExecutions[n] = c
	}
	return &out
}

// StepExecution tracks the progress of one playbook step within an execution.
type StepExecution struct {
	StepID      string     `json:"step_id"`
	Status      StepStatus `json:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
