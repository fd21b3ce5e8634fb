package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
)

// StartInvestigationInput holds data for opening a forensic investigation.
type StartInvestigationInput struct {
	Investigator string
	Scope        string
}

// AddFindingInput holds data for a forensic finding.
type AddFindingInput struct {
	Category     string
	Description  string
	EvidenceRefs []string
	RecordedBy   string
}

// StartInvestigation opens a forensic investigation against an existing
// incident. An incident may run several investigations concurrently.
func (s *Service) StartInvestigation(ctx context.Context, incidentID string, input StartInvestigationInput) (*domain.ForensicInvestigation, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	investigation := &domain.ForensicInvestigation{
		ID:           uuid.New().String(),
		IncidentID:   incident.ID,
		Investigator: input.Investigator,
		Scope:        input.Scope,
		Status:       domain.InvestigationOpen,
		StartedAt:    time.Now().UTC(),
		Findings:     []domain.ForensicFinding{},
	}
	if err := s.repo.CreateInvestigation(ctx, investigation); err != nil {
		return nil, fmt.Errorf("create investigation: %w", err)
	}

	s.record(incident, domain.TimelineInvestigationStarted, input.Investigator, map[string]string{
		"investigation_id": investigation.ID,
		"scope":            investigation.Scope,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return investigation, nil
}

// GetInvestigation retrieves a forensic investigation by ID.
func (s *Service) GetInvestigation(ctx context.Context, id string) (*domain.ForensicInvestigation, error) {
	return s.repo.GetInvestigation(ctx, id)
}

// ListInvestigations returns the investigations attached to an incident.
func (s *Service) ListInvestigations(ctx context.Context, incidentID string) ([]*domain.ForensicInvestigation, error) {
	if _, err := s.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.repo.ListInvestigations(ctx, incidentID)
}

// AddFinding appends a finding to an open investigation.
func (s *Service) AddFinding(ctx context.Context, investigationID string, input AddFindingInput) (*domain.ForensicFinding, error) {
	investigation, err := s.repo.GetInvestigation(ctx, investigationID)
	if err != nil {
		return nil, err
	}
	if investigation.Status == domain.InvestigationCompleted {
		return nil, ErrInvestigationCompleted
	}

	finding := domain.ForensicFinding{
		ID:           uuid.New().String(),
		Category:     input.Category,
		Description:  input.Description,
		EvidenceRefs: append([]string(nil), input.EvidenceRefs...),
		RecordedBy:   input.RecordedBy,
		RecordedAt:   time.Now().UTC(),
	}
	investigation.Findings = append(investigation.Findings, finding)
	if err := s.repo.UpdateInvestigation(ctx, investigation); err != nil {
		return nil, fmt.Errorf("update investigation: %w", err)
	}

	incident, err := s.repo.GetIncident(ctx, investigation.IncidentID)
	if err != nil {
		return nil, err
	}
	s.record(incident, domain.TimelineFindingAdded, input.RecordedBy, map[string]string{
		"investigation_id": investigation.ID,
		"finding_id":       finding.ID,
		"category":         finding.Category,
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return &finding, nil
}

// CompleteInvestigation terminates an open investigation, stamping the
// completion time and an optional report reference. Completed
// investigations reject further findings.
func (s *Service) CompleteInvestigation(ctx context.Context, investigationID, reportRef, completedBy string) (*domain.ForensicInvestigation, error) {
	investigation, err := s.repo.GetInvestigation(ctx, investigationID)
	if err != nil {
		return nil, err
	}
	if investigation.Status == domain.InvestigationCompleted {
		return nil, ErrInvestigationCompleted
	}

	now := time.Now().UTC()
	investigation.Status = domain.InvestigationCompleted
	investigation.CompletedAt = &now
	investigation.ReportRef = reportRef
	if err := s.repo.UpdateInvestigation(ctx, investigation); err != nil {
		return nil, fmt.Errorf("update investigation: %w", err)
	}

	incident, err := s.repo.GetIncident(ctx, investigation.IncidentID)
	if err != nil {
		return nil, err
	}
	s.record(incident, domain.TimelineInvestigationCompleted, completedBy, map[string]string{
		"investigation_id": investigation.ID,
		"findings":         fmt.Sprintf("%d", len(investigation.Findings)),
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return investigation, nil
}
