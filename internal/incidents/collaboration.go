package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
)

// AddCommunicationInput holds data for logging a stakeholder communication.
type AddCommunicationInput struct {
	Channel  string
	Audience string
	Subject  string
	Message  string
	SentBy   string
}

// AddActionInput holds data for planning a response action.
type AddActionInput struct {
	Phase       domain.ActionPhase
	Description string
	Owner       string
}

// UpdateActionInput holds the mutable response action fields. Nil fields
// stay unchanged.
type UpdateActionInput struct {
	Description *string
	Owner       *string
	Status      *domain.ActionStatus
}

// AddLessonInput holds data for a lesson-learned entry.
type AddLessonInput struct {
	Area           string
	Description    string
	Recommendation string
	RecordedBy     string
}

// RecordNotificationInput holds data for an external notification record.
type RecordNotificationInput struct {
	Recipient  string
	Channel    string
	Subject    string
	NotifiedBy string
}

// AssignResponder copies a registered responder into the incident's
// responder list. Responders already on the incident are left alone, so the
// list never holds duplicates.
func (s *Service) AssignResponder(ctx context.Context, incidentID, responderID, assignedBy string) (*domain.Incident, error) {
	responder, err := s.lookupResponder(ctx, responderID)
	if err != nil {
		return nil, err
	}

	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if incident.HasResponder(responder.ID) {
		return incident, nil
	}

	incident.Responders = append(incident.Responders, *responder.Clone())
	s.record(incident, domain.TimelineResponderAssigned, assignedBy, map[string]string{
		"responder_id":   responder.ID,
		"responder_name": responder.Name,
		"role":           string(responder.Role),
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return incident, nil
}

// AddCommunication logs a stakeholder communication on the incident.
func (s *Service) AddCommunication(ctx context.Context, incidentID string, input AddCommunicationInput) (*domain.Communication, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	comm := domain.Communication{
		ID:       uuid.New().String(),
		Channel:  input.Channel,
		Audience: input.Audience,
		Subject:  input.Subject,
		Message:  input.Message,
		SentBy:   input.SentBy,
		SentAt:   time.Now().UTC(),
	}
	incident.Communications = append(incident.Communications, comm)

	s.record(incident, domain.TimelineCommunicationAdded, input.SentBy, map[string]string{
		"communication_id": comm.ID,
		"channel":          comm.Channel,
		"audience":         comm.Audience,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return &comm, nil
}

// AddAction plans a response action in the given phase.
func (s *Service) AddAction(ctx context.Context, incidentID string, input AddActionInput) (*domain.ResponseAction, error) {
	if !input.Phase.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhase, input.Phase)
	}

	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	action := domain.ResponseAction{
		ID:          uuid.New().String(),
		Phase:       input.Phase,
		Description: input.Description,
		Owner:       input.Owner,
		Status:      domain.ActionPlanned,
		CreatedAt:   time.Now().UTC(),
	}
	incident.Actions = append(incident.Actions, action)

	s.record(incident, domain.TimelineActionAdded, input.Owner, map[string]string{
		"action_id": action.ID,
		"phase":     string(action.Phase),
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	out := action.Clone()
	return &out, nil
}

// UpdateAction applies a partial update to a response action. Moving the
// action into in_progress stamps started_at, completing it stamps
// completed_at.
func (s *Service) UpdateAction(ctx context.Context, incidentID, actionID string, input UpdateActionInput, updatedBy string) (*domain.ResponseAction, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	var action *domain.ResponseAction
	for i := range incident.Actions {
		if incident.Actions[i].ID == actionID {
			action = &incident.Actions[i]
			break
		}
	}
	if action == nil {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}

	changes := map[string]string{"action_id": action.ID}
	if input.Description != nil && *input.Description != action.Description {
		action.Description = *input.Description
		changes["description"] = *input.Description
	}
	if input.Owner != nil && *input.Owner != action.Owner {
		action.Owner = *input.Owner
		changes["owner"] = *input.Owner
	}
	if input.Status != nil && *input.Status != action.Status {
		if !input.Status.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidActionStatus, *input.Status)
		}
		action.Status = *input.Status
		changes["status"] = string(*input.Status)
		now := time.Now().UTC()
		switch action.Status {
		case domain.ActionInProgress:
			if action.StartedAt == nil {
				action.StartedAt = &now
			}
		case domain.ActionCompleted:
			if action.StartedAt == nil {
				action.StartedAt = &now
			}
			action.CompletedAt = &now
		}
	}

	if len(changes) == 1 {
		out := action.Clone()
		return &out, nil
	}

	s.record(incident, domain.TimelineActionUpdated, updatedBy, changes)
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	out := action.Clone()
	return &out, nil
}

// AddLesson records a post-incident lesson learned.
func (s *Service) AddLesson(ctx context.Context, incidentID string, input AddLessonInput) (*domain.LessonLearned, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	lesson := domain.LessonLearned{
		ID:             uuid.New().String(),
		Area:           input.Area,
		Description:    input.Description,
		Recommendation: input.Recommendation,
		RecordedBy:     input.RecordedBy,
		RecordedAt:     time.Now().UTC(),
	}
	incident.LessonsLearned = append(incident.LessonsLearned, lesson)

	s.record(incident, domain.TimelineLessonAdded, input.RecordedBy, map[string]string{
		"lesson_id": lesson.ID,
		"area":      lesson.Area,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return &lesson, nil
}

// RecordNotification records that an external party was notified about the
// incident.
func (s *Service) RecordNotification(ctx context.Context, incidentID string, input RecordNotificationInput) (*domain.Notification, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	notification := domain.Notification{
		ID:         uuid.New().String(),
		Recipient:  input.Recipient,
		Channel:    input.Channel,
		Subject:    input.Subject,
		NotifiedBy: input.NotifiedBy,
		NotifiedAt: time.Now().UTC(),
	}
	incident.Notifications = append(incident.Notifications, notification)

	s.record(incident, domain.TimelineNotificationRecorded, input.NotifiedBy, map[string]string{
		"notification_id": notification.ID,
		"recipient":       notification.Recipient,
		"channel":         notification.Channel,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return &notification, nil
}
