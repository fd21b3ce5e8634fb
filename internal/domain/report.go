package domain

import "time"

// IncidentMetrics is a derived, read-only aggregate over all incidents.
// It is recomputed in full on every request, never cached.
type IncidentMetrics struct {
	TotalIncidents         int                      `json:"total_incidents"`
	ByStatus               map[IncidentStatus]int   `json:"by_status"`
	BySeverity             map[IncidentSeverity]int `json:"by_severity"`
	ByCategory             map[IncidentCategory]int `json:"by_category"`
	AverageResolutionHours float64                  `json:"average_resolution_hours"`
	TotalCost              float64                  `json:"total_cost"`
	CostPerIncident        float64                  `json:"cost_per_incident"`
	GeneratedAt            time.Time                `json:"generated_at"`
}

// UpcomingDeadline is a task due date surfaced on the dashboard.
type UpcomingDeadline struct {
	IncidentID     string    `json:"incident_id"`
	IncidentNumber string    `json:"incident_number"`
	TaskID         string    `json:"task_id"`
	TaskTitle      string    `json:"task_title"`
	AssignedTo     string    `json:"assigned_to,omitempty"`
	DueDate        time.Time `json:"due_date"`
}

// IncidentSummary is a compact incident view for dashboard listings.
type IncidentSummary struct {
	ID        string           `json:"id"`
	Number    string           `json:"number"`
	Title     string           `json:"title"`
	Severity  IncidentSeverity `json:"severity"`
	Status    IncidentStatus   `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// IncidentDashboard is the operational overview served to response teams.
// Upcoming deadlines hold the ten soonest due incomplete tasks, sorted by
// due date ascending.
type IncidentDashboard struct {
	OpenIncidents      int                      `json:"open_incidents"`
	CriticalIncidents  int                      `json:"critical_incidents"`
	SLABreaches        int                      `json:"sla_breaches"`
	BySeverity         map[IncidentSeverity]int `json:"by_severity"`
	ByStatus           map[IncidentStatus]int   `json:"by_status"`
	ActiveExecutions   int                      `json:"active_playbook_executions"`
	UpcomingDeadlines  []UpcomingDeadline       `json:"upcoming_deadlines"`
	RecentIncidents    []IncidentSummary        `json:"recent_incidents"`
	GeneratedAt        time.Time                `json:"generated_at"`
}
