package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
)

// Limits for dashboard listings.
const (
	maxUpcomingDeadlines = 10
	maxRecentIncidents   = 10
)

type Service struct {
	source     IncidentSource
	executions ExecutionCounter
	renderer   *Renderer
}

func NewService(source IncidentSource, executions ExecutionCounter, renderer *Renderer) *Service {
	return &Service{
		source:     source,
		executions: executions,
		renderer:   renderer,
	}
}

// Metrics recomputes the aggregate snapshot over every incident. Resolution
// time averages updated_at minus created_at over Closed and Resolved
// incidents only; cost figures fall back to zero rather than dividing by
// nothing.
func (s *Service) Metrics(ctx context.Context) (*domain.IncidentMetrics, error) {
	all, err := s.source.ListIncidents(ctx, incidents.IncidentFilters{})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	metrics := &domain.IncidentMetrics{
		ByStatus:    make(map[domain.IncidentStatus]int),
		BySeverity:  make(map[domain.IncidentSeverity]int),
		ByCategory:  make(map[domain.IncidentCategory]int),
		GeneratedAt: time.Now().UTC(),
	}

	resolvedHours := 0.0
	resolvedCount := 0

	for _, incident := range all {
		metrics.TotalIncidents++
		metrics.ByStatus[incident.Status]++
		metrics.BySeverity[incident.Severity]++
		metrics.ByCategory[incident.Category]++
		metrics.TotalCost += incident.CostEstimate

		if incident.Status.IsResolved() {
			resolvedHours += incident.UpdatedAt.Sub(incident.CreatedAt).Hours()
			resolvedCount++
		}
	}

	if resolvedCount > 0 {
		metrics.AverageResolutionHours = resolvedHours / float64(resolvedCount)
	}

	if metrics.TotalIncidents > 0 {
		metrics.CostPerIncident = metrics.TotalCost / float64(metrics.TotalIncidents)
	}

	return metrics, nil
}

// Dashboard builds the operational overview. Distribution maps cover open
// incidents only; upcoming deadlines hold the ten soonest due dates of
// still-active tasks, sorted ascending before truncation; recent incidents
// are the ten most recently updated, regardless of status.
func (s *Service) Dashboard(ctx context.Context) (*domain.IncidentDashboard, error) {
	all, err := s.source.ListIncidents(ctx, incidents.IncidentFilters{})
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	active, err := s.executions.CountActiveExecutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active executions: %w", err)
	}

	now := time.Now().UTC()

	dashboard := &domain.IncidentDashboard{
		BySeverity:        make(map[domain.IncidentSeverity]int),
		ByStatus:          make(map[domain.IncidentStatus]int),
		ActiveExecutions:  active,
		UpcomingDeadlines: make([]domain.UpcomingDeadline, 0),
		RecentIncidents:   make([]domain.IncidentSummary, 0, maxRecentIncidents),
		GeneratedAt:       now,
	}

	deadlines := make([]domain.UpcomingDeadline, 0)

	for _, incident := range all {
		if incident.Status.IsResolved() {
			continue
		}

		dashboard.OpenIncidents++
		dashboard.BySeverity[incident.Severity]++
		dashboard.ByStatus[incident.Status]++

		if incident.Severity == domain.SeverityCritical {
			dashboard.CriticalIncidents++
		}

		if incident.SLABreach {
			dashboard.SLABreaches++
		}

		for _, task := range incident.Tasks {
			if task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusCancelled {
				continue
			}

			if task.DueDate == nil || task.DueDate.Before(now) {
				continue
			}

			deadlines = append(deadlines, domain.UpcomingDeadline{
				IncidentID:     incident.ID,
				IncidentNumber: incident.Number,
				TaskID:         task.ID,
				TaskTitle:      task.Title,
				AssignedTo:     task.AssignedTo,
				DueDate:        *task.DueDate,
			})
		}
	}

	sort.Slice(deadlines, func(i, j int) bool {
		if !deadlines[i].DueDate.Equal(deadlines[j].DueDate) {
			return deadlines[i].DueDate.Before(deadlines[j].DueDate)
		}

		return deadlines[i].TaskID < deadlines[j].TaskID
	})

	if len(deadlines) > maxUpcomingDeadlines {
		deadlines = deadlines[:maxUpcomingDeadlines]
	}

	dashboard.UpcomingDeadlines = deadlines

	// Recency means last touched, not last created: any mutation bumps
	// updated_at, so re-sort before capping.
	recent := make([]domain.IncidentSummary, 0, len(all))
	for _, incident := range all {
		recent = append(recent, domain.IncidentSummary{
			ID:        incident.ID,
			Number:    incident.Number,
			Title:     incident.Title,
			Severity:  incident.Severity,
			Status:    incident.Status,
			UpdatedAt: incident.UpdatedAt,
		})
	}

	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].UpdatedAt.Equal(recent[j].UpdatedAt) {
			return recent[i].UpdatedAt.After(recent[j].UpdatedAt)
		}

		return recent[i].ID < recent[j].ID
	})

	if len(recent) > maxRecentIncidents {
		recent = recent[:maxRecentIncidents]
	}

	dashboard.RecentIncidents = recent

	return dashboard, nil
}

// RenderIncidentReport produces the plain-text report for one incident,
// including its investigations.
func (s *Service) RenderIncidentReport(ctx context.Context, incidentID string) (string, error) {
	incident, err := s.source.GetIncident(ctx, incidentID)
	if err != nil {
		return "", err
	}

	investigations, err := s.source.ListInvestigations(ctx, incidentID)
	if err != nil {
		return "", err
	}

	return s.renderer.Render(incident, investigations)
}
