// Package memory provides the in-memory implementation of the incidents
// repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
)

// Repository implements incidents.Repository with in-process maps. All
// reads and writes go through deep copies, so callers can never mutate
// stored state behind the lock's back.
type Repository struct {
	mu             sync.RWMutex
	incidents      map[string]*domain.Incident
	investigations map[string]*domain.ForensicInvestigation
	sequence       int
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		incidents:      make(map[string]*domain.Incident),
		investigations: make(map[string]*domain.ForensicInvestigation),
	}
}

// CreateIncident stores a copy of the incident.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.incidents[incident.ID] = incident.Clone()
	return nil
}

// GetIncident returns a copy of the incident.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	incident, ok := r.incidents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", incidents.ErrIncidentNotFound, id)
	}
	return incident.Clone(), nil
}

// ListIncidents returns copies of the incidents matching the filters,
// newest first.
func (r *Repository) ListIncidents(ctx context.Context, filters incidents.IncidentFilters) ([]*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Incident, 0, len(r.incidents))
	for _, incident := range r.incidents {
		if matchesFilters(incident, filters) {
			matched = append(matched, incident)
		}
	}
	sortNewestFirst(matched)
	matched = paginate(matched, filters.Limit, filters.Offset)

	out := make([]*domain.Incident, 0, len(matched))
	for _, incident := range matched {
		out = append(out, incident.Clone())
	}
	return out, nil
}

// SearchIncidents returns copies of the incidents whose title, description,
// number, tags or IOCs contain the query. Matching folds case and
// diacritics.
func (r *Repository) SearchIncidents(ctx context.Context, query string) ([]*domain.Incident, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Incident{}, nil
	}
	pattern := search.New(language.Und, search.Loose).CompileString(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Incident
	for _, incident := range r.incidents {
		if matchesQuery(incident, pattern) {
			matched = append(matched, incident)
		}
	}
	sortNewestFirst(matched)

	out := make([]*domain.Incident, 0, len(matched))
	for _, incident := range matched {
		out = append(out, incident.Clone())
	}
	return out, nil
}

// UpdateIncident replaces the stored incident with a copy of the given one.
func (r *Repository) UpdateIncident(ctx context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.incidents[incident.ID]; !ok {
		return fmt.Errorf("%w: %s", incidents.ErrIncidentNotFound, incident.ID)
	}
	r.incidents[incident.ID] = incident.Clone()
	return nil
}

// NextSequence returns the next value of the incident number counter.
func (r *Repository) NextSequence(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	return r.sequence, nil
}

// CreateInvestigation stores a copy of the investigation.
func (r *Repository) CreateInvestigation(ctx context.Context, investigation *domain.ForensicInvestigation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.investigations[investigation.ID] = investigation.Clone()
	return nil
}

// GetInvestigation returns a copy of the investigation.
func (r *Repository) GetInvestigation(ctx context.Context, id string) (*domain.ForensicInvestigation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	investigation, ok := r.investigations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", incidents.ErrInvestigationNotFound, id)
	}
	return investigation.Clone(), nil
}

// ListInvestigations returns copies of the investigations attached to an
// incident, oldest first.
func (r *Repository) ListInvestigations(ctx context.Context, incidentID string) ([]*domain.ForensicInvestigation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ForensicInvestigation, 0)
	for _, investigation := range r.investigations {
		if investigation.IncidentID == incidentID {
			out = append(out, investigation.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// UpdateInvestigation replaces the stored investigation with a copy of the
// given one.
func (r *Repository) UpdateInvestigation(ctx context.Context, investigation *domain.ForensicInvestigation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.investigations[investigation.ID]; !ok {
		return fmt.Errorf("%w: %s", incidents.ErrInvestigationNotFound, investigation.ID)
	}
	r.investigations[investigation.ID] = investigation.Clone()
	return nil
}

// Len reports how many incidents the repository holds.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.incidents)
}

// InvestigationsLen reports how many investigations the repository holds.
func (r *Repository) InvestigationsLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.investigations)
}

func matchesFilters(incident *domain.Incident, filters incidents.IncidentFilters) bool {
	if filters.Status != nil && incident.Status != *filters.Status {
		return false
	}
	if filters.Severity != nil && incident.Severity != *filters.Severity {
		return false
	}
	if filters.Category != nil && incident.Category != *filters.Category {
		return false
	}
	if filters.AssignedTo != nil && incident.AssignedTo != *filters.AssignedTo {
		return false
	}
	if len(filters.Tags) > 0 {
		matched := false
		for _, tag := range filters.Tags {
			if incident.HasTag(tag) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if filters.CreatedFrom != nil && incident.CreatedAt.Before(*filters.CreatedFrom) {
		return false
	}
	if filters.CreatedTo != nil && incident.CreatedAt.After(*filters.CreatedTo) {
		return false
	}
	return true
}

func matchesQuery(incident *domain.Incident, pattern *search.Pattern) bool {
	candidates := make([]string, 0, 3+len(incident.Tags)+len(incident.IOCs))
	candidates = append(candidates, incident.Title, incident.Description, incident.Number)
	candidates = append(candidates, incident.Tags...)
	candidates = append(candidates, incident.IOCs...)
	for _, candidate := range candidates {
		if start, _ := pattern.IndexString(candidate); start >= 0 {
			return true
		}
	}
	return false
}

func sortNewestFirst(list []*domain.Incident) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Number > list[j].Number
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func paginate(list []*domain.Incident, limit, offset int) []*domain.Incident {
	if offset > 0 {
		if offset >= len(list) {
			return []*domain.Incident{}
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
