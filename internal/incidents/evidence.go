package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/incident-forge/internal/domain"
)

// AddEvidenceInput holds data for registering an evidence item.
type AddEvidenceInput struct {
	Type        domain.EvidenceType // optional, defaults to "other"
	Name        string
	Description string
	CollectedBy string
	CollectedAt *time.Time // optional, defaults to now
	ContentHash string
}

// AddCustodyInput holds data for a chain-of-custody entry.
type AddCustodyInput struct {
	Actor  string
	Action string
	Notes  string
}

// AddAnalysisInput holds data for an evidence analysis result.
type AddAnalysisInput struct {
	Analyst string
	Summary string
	Verdict string
}

// AddEvidence registers an evidence item on the incident. Custody and
// analysis lists start empty; custody entries are appended separately so the
// chain reflects actual handling.
func (s *Service) AddEvidence(ctx context.Context, incidentID string, input AddEvidenceInput) (*domain.Evidence, error) {
	evidenceType := input.Type
	if evidenceType == "" {
		evidenceType = domain.EvidenceTypeOther
	}
	if !evidenceType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEvidenceType, evidenceType)
	}

	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	collectedAt := now
	if input.CollectedAt != nil {
		collectedAt = input.CollectedAt.UTC()
	}
	evidence := domain.Evidence{
		ID:              uuid.New().String(),
		Type:            evidenceType,
		Name:            input.Name,
		Description:     input.Description,
		CollectedBy:     input.CollectedBy,
		CollectedAt:     collectedAt,
		ContentHash:     input.ContentHash,
		ChainOfCustody:  []domain.CustodyRecord{},
		AnalysisResults: []domain.AnalysisResult{},
	}
	incident.Evidence = append(incident.Evidence, evidence)

	s.record(incident, domain.TimelineEvidenceAdded, input.CollectedBy, map[string]string{
		"evidence_id": evidence.ID,
		"name":        evidence.Name,
		"type":        string(evidence.Type),
	})
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	out := evidence.Clone()
	return &out, nil
}

// AddCustodyRecord appends a chain-of-custody entry to an evidence item.
// Custody entries are handling records, not response activity, so they skip
// the incident timeline.
func (s *Service) AddCustodyRecord(ctx context.Context, incidentID, evidenceID string, input AddCustodyInput) (*domain.CustodyRecord, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	evidence := findEvidence(incident, evidenceID)
	if evidence == nil {
		return nil, fmt.Errorf("%w: %s", ErrEvidenceNotFound, evidenceID)
	}

	entry := domain.CustodyRecord{
		ID:         uuid.New().String(),
		Actor:      input.Actor,
		Action:     input.Action,
		Notes:      input.Notes,
		RecordedAt: time.Now().UTC(),
	}
	evidence.ChainOfCustody = append(evidence.ChainOfCustody, entry)

	touch(incident)
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return &entry, nil
}

// AddAnalysisResult appends an analysis result to an evidence item. Like
// custody entries, analysis results skip the incident timeline.
func (s *Service) AddAnalysisResult(ctx context.Context, incidentID, evidenceID string, input AddAnalysisInput) (*domain.AnalysisResult, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	evidence := findEvidence(incident, evidenceID)
	if evidence == nil {
		return nil, fmt.Errorf("%w: %s", ErrEvidenceNotFound, evidenceID)
	}

	result := domain.AnalysisResult{
		ID:         uuid.New().String(),
		Analyst:    input.Analyst,
		Summary:    input.Summary,
		Verdict:    input.Verdict,
		RecordedAt: time.Now().UTC(),
	}
	evidence.AnalysisResults = append(evidence.AnalysisResults, result)

	touch(incident)
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return &result, nil
}

// ListEvidence returns the incident's evidence items.
func (s *Service) ListEvidence(ctx context.Context, incidentID string) ([]domain.Evidence, error) {
	incident, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	return incident.Evidence, nil
}

func findEvidence(incident *domain.Incident, evidenceID string) *domain.Evidence {
	for i := range incident.Evidence {
		if incident.Evidence[i].ID == evidenceID {
			return &incident.Evidence[i]
		}
	}
	return nil
}
