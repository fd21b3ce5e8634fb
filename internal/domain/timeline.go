package domain

import "time"

// TimelineEventType names the action recorded by a timeline event.
type TimelineEventType string

// Timeline event types.
const (
	TimelineIncidentCreated        TimelineEventType = "incident_created"
	TimelineIncidentUpdated        TimelineEventType = "incident_updated"
	TimelineIncidentAssigned       TimelineEventType = "incident_assigned"
	TimelineIncidentEscalated      TimelineEventType = "incident_escalated"
	TimelineIncidentClosed         TimelineEventType = "incident_closed"
	TimelineIncidentReopened       TimelineEventType = "incident_reopened"
	TimelineCommanderAssigned      TimelineEventType = "commander_assigned"
	TimelineResponderAssigned      TimelineEventType = "responder_assigned"
	TimelineEvidenceAdded          TimelineEventType = "evidence_added"
	TimelineTaskAdded              TimelineEventType = "task_added"
	TimelineTaskUpdated            TimelineEventType = "task_updated"
	TimelineChecklistItemCompleted TimelineEventType = "checklist_item_completed"
	TimelineCommunicationAdded     TimelineEventType = "communication_added"
	TimelineActionAdded            TimelineEventType = "action_added"
	TimelineActionUpdated          TimelineEventType = "action_updated"
	TimelineLessonAdded            TimelineEventType = "lesson_added"
	TimelineNotificationRecorded   TimelineEventType = "notification_recorded"
	TimelinePlaybookExecuted       TimelineEventType = "playbook_executed"
	TimelineInvestigationStarted   TimelineEventType = "investigation_started"
	TimelineFindingAdded           TimelineEventType = "finding_added"
	TimelineInvestigationCompleted TimelineEventType = "investigation_completed"
	TimelineRuleExecuted           TimelineEventType = "rule_executed"
	TimelineSLABreached            TimelineEventType = "sla_breached"
)

// TimelineEvent is an immutable audit trail entry on an incident. Events are
// append-only and ordered by insertion; they are never reordered or deleted.
type TimelineEvent struct {
	ID        string            `json:"id"`
	Type      TimelineEventType `json:"type"`
	Actor     string            `json:"actor"`
	Details   map[string]string `json:"details"`
	CreatedAt time.Time         `json:"created_at"`
}

// Clone returns a copy of the event with its own detail map.
func (e TimelineEvent) Clone() TimelineEvent {
	out := e
	if e.Details != nil {
		out.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			out.Details[k] = v
		}
	}
	return out
}
