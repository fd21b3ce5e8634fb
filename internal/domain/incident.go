// Package domain contains the core incident response model shared by all modules.
package domain

import "time"

// IncidentCategory classifies the kind of security incident.
type IncidentCategory string

// Incident categories.
const (
	CategoryMalware          IncidentCategory = "Malware"
	CategoryPhishing         IncidentCategory = "Phishing"
	CategoryDataBreach       IncidentCategory = "DataBreach"
	CategoryDenialOfService  IncidentCategory = "DenialOfService"
	CategoryUnauthorized     IncidentCategory = "Unauthorized"
	CategorySystemCompromise IncidentCategory = "SystemCompromise"
	CategoryNetworkIntrusion IncidentCategory = "NetworkIntrusion"
	CategoryInsiderThreat    IncidentCategory = "InsiderThreat"
	CategoryPhysicalSecurity IncidentCategory = "PhysicalSecurity"
	CategoryCompliance       IncidentCategory = "Compliance"
	CategoryOther            IncidentCategory = "Other"
)

// IsValid checks if the category is one of the known values.
func (c IncidentCategory) IsValid() bool {
	switch c {
	case CategoryMalware, CategoryPhishing, CategoryDataBreach, CategoryDenialOfService,
		CategoryUnauthorized, CategorySystemCompromise, CategoryNetworkIntrusion,
		CategoryInsiderThreat, CategoryPhysicalSecurity, CategoryCompliance, CategoryOther:
		return true
	}
	return false
}

// IncidentSeverity represents the severity level of an incident.
type IncidentSeverity string

// Severity levels, lowest to highest.
const (
	SeverityInfo     IncidentSeverity = "Info"
	SeverityLow      IncidentSeverity = "Low"
	SeverityMedium   IncidentSeverity = "Medium"
	SeverityHigh     IncidentSeverity = "High"
	SeverityCritical IncidentSeverity = "Critical"
)

// IsValid checks if the severity is one of the known values.
func (s IncidentSeverity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// DefaultPriority maps severity to a numeric priority, 1 being most urgent.
func (s IncidentSeverity) DefaultPriority() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 4
	default:
		return 5
	}
}

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	StatusNew           IncidentStatus = "New"
	StatusAssigned      IncidentStatus = "Assigned"
	StatusInProgress    IncidentStatus = "InProgress"
	StatusInvestigating IncidentStatus = "Investigating"
	StatusContained     IncidentStatus = "Contained"
	StatusEradicated    IncidentStatus = "Eradicated"
	StatusRecovering    IncidentStatus = "Recovering"
	StatusResolved      IncidentStatus = "Resolved"
	StatusClosed        IncidentStatus = "Closed"
	StatusReopened      IncidentStatus = "Reopened"
)

// IsValid checks if the status is one of the known values.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusInvestigating,
		StatusContained, StatusEradicated, StatusRecovering, StatusResolved,
		StatusClosed, StatusReopened:
		return true
	}
	return false
}

// IsResolved checks if the status represents a finished incident.
// Both Resolved and Closed count toward resolution-time metrics.
func (s IncidentStatus) IsResolved() bool {
	return s == StatusResolved || s == StatusClosed
}

// IsOpen checks if the incident still requires response work.
func (s IncidentStatus) IsOpen() bool {
	return !s.IsResolved()
}

// legalTransitions defines the incident lifecycle state graph.
// Closing is allowed from every non-Closed state.
var legalTransitions = map[IncidentStatus][]IncidentStatus{
	StatusNew:           {StatusAssigned, StatusInProgress, StatusInvestigating, StatusClosed},
	StatusAssigned:      {StatusInProgress, StatusInvestigating, StatusClosed},
	StatusInProgress:    {StatusInvestigating, StatusContained, StatusResolved, StatusClosed},
	StatusInvestigating: {StatusInProgress, StatusContained, StatusResolved, StatusClosed},
	StatusContained:     {StatusEradicated, StatusRecovering, StatusResolved, StatusClosed},
	StatusEradicated:    {StatusRecovering, StatusResolved, StatusClosed},
	StatusRecovering:    {StatusResolved, StatusClosed},
	StatusResolved:      {StatusClosed, StatusReopened},
	StatusClosed:        {StatusReopened},
	StatusReopened:      {StatusAssigned, StatusInProgress, StatusInvestigating, StatusClosed},
}

// CanTransitionTo checks if moving from the current status to next is a legal
// lifecycle transition.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Incident is the root aggregate tracking a security event from detection
// through closure. All nested collections are owned by the incident; the
// responder list holds copies of registry records, keyed by responder id.
type Incident struct {
	ID                string           `json:"id"`
	Number            string           `json:"number"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Category          IncidentCategory `json:"category"`
	Severity          IncidentSeverity `json:"severity"`
	Status            IncidentStatus   `json:"status"`
	Priority          int              `json:"priority"`
	DetectedAt        time.Time        `json:"detected_at"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Reporter          string           `json:"reporter"`
	AssignedTo        string           `json:"assigned_to"`
	IncidentCommander string           `json:"incident_commander"`
	AffectedSystems   []string         `json:"affected_systems"`
	AffectedUsers     []string         `json:"affected_users"`
	IOCs              []string         `json:"iocs"`
	Tags              []string         `json:"tags"`
	CostEstimate      float64          `json:"cost_estimate"`
	SLABreach         bool             `json:"sla_breach"`
	ResponseDeadline  *time.Time       `json:"response_deadline,omitempty"`
	Timeline          []TimelineEvent  `json:"timeline"`
	Responders        []Responder      `json:"responders"`
	Evidence          []Evidence       `json:"evidence"`
	Tasks             []Task           `json:"tasks"`
	Communications    []Communication  `json:"communications"`
	Actions           []ResponseAction `json:"actions"`
	LessonsLearned    []LessonLearned  `json:"lessons_learned"`
	Notifications     []Notification   `json:"notifications"`
}

// HasResponder checks whether a responder id is already in the incident's
// responder list.
func (i *Incident) HasResponder(responderID string) bool {
	for _, r := range i.Responders {
		if r.ID == responderID {
			return true
		}
	}
	return false
}

// HasTag checks whether the incident carries the given tag.
func (i *Incident) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the incident.
func (i *Incident) Clone() *Incident {
	out := *i
	out.AffectedSystems = cloneSlice(i.AffectedSystems)
	out.AffectedUsers = cloneSlice(i.AffectedUsers)
	out.IOCs = cloneSlice(i.IOCs)
	out.Tags = cloneSlice(i.Tags)
	out.ResponseDeadline = cloneTime(i.ResponseDeadline)

	out.Timeline = make([]TimelineEvent, len(i.Timeline))
	for n, e := range i.Timeline {
		out.Timeline[n] = e.Clone()
	}
	out.Responders = make([]Responder, len(i.Responders))
	for n, r := range i.Responders {
		out.Responders[n] = *r.Clone()
	}
	out.Evidence = make([]Evidence, len(i.Evidence))
	for n, e := range i.Evidence {
		out.Evidence[n] = e.Clone()
	}
	out.Tasks = make([]Task, len(i.Tasks))
	for n, t := range i.Tasks {
		out.Tasks[n] = t.Clone()
	}
	out.Communications = cloneSlice(i.Communications)
	out.Actions = make([]ResponseAction, len(i.Actions))
	for n, a := range i.Actions {
		out.Actions[n] = a.Clone()
	}
	out.LessonsLearned = cloneSlice(i.LessonsLearned)
	out.Notifications = cloneSlice(i.Notifications)
	return &out
}

// Communication is an internal or external status communication sent during
// the response.
type Communication struct {
	ID       string    `json:"id"`
	Channel  string    `json:"channel"`
	Audience string    `json:"audience"`
	Subject  string    `json:"subject"`
	Message  string    `json:"message"`
	SentBy   string    `json:"sent_by"`
	SentAt   time.Time `json:"sent_at"`
}

// ActionPhase identifies which response phase an action belongs to.
type ActionPhase string

// Response action phases.
const (
	PhaseContainment ActionPhase = "containment"
	PhaseEradication ActionPhase = "eradication"
	PhaseRecovery    ActionPhase = "recovery"
)

// IsValid checks if the phase is one of the known values.
func (p ActionPhase) IsValid() bool {
	return p == PhaseContainment || p == PhaseEradication || p == PhaseRecovery
}

// ActionStatus represents the progress of a response action.
type ActionStatus string

// Response action statuses.
const (
	ActionPlanned    ActionStatus = "planned"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
)

// IsValid checks if the action status is one of the known values.
func (s ActionStatus) IsValid() bool {
	return s == ActionPlanned || s == ActionInProgress || s == ActionCompleted
}

// ResponseAction is a containment, eradication, or recovery measure taken
// against the incident.
type ResponseAction struct {
	ID          string       `json:"id"`
	Phase       ActionPhase  `json:"phase"`
	Description string       `json:"description"`
	Owner       string       `json:"owner"`
	Status      ActionStatus `json:"status"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Clone returns a copy of the action.
func (a ResponseAction) Clone() ResponseAction {
	out := a
	out.StartedAt = cloneTime(a.StartedAt)
	out.CompletedAt = cloneTime(a.CompletedAt)
	return out
}

// LessonLearned is a post-incident improvement observation.
type LessonLearned struct {
	ID             string    `json:"id"`
	Area           string    `json:"area"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
	RecordedBy     string    `json:"recorded_by"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// Notification records an external notification sent about the incident,
// e.g. to a regulator or affected customer.
type Notification struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Channel    string    `json:"channel"`
	Subject    string    `json:"subject"`
	NotifiedBy string    `json:"notified_by"`
	NotifiedAt time.Time `json:"notified_at"`
}

// cloneSlice copies a slice of plain values, keeping nil nil and empty
// empty so boundary clones never change the JSON shape.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
