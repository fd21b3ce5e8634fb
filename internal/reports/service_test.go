package reports_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
	incidentsmemory "github.com/bissquit/incident-forge/internal/incidents/memory"
	"github.com/bissquit/incident-forge/internal/reports"
)

type stubDirectory struct {
	responders map[string]*domain.Responder
}

func (d *stubDirectory) FindResponder(_ context.Context, id string) (*domain.Responder, bool, error) {
	responder, ok := d.responders[id]
	if !ok {
		return nil, false, nil
	}

	return responder.Clone(), true, nil
}

type stubExecutions struct {
	active int
}

func (e *stubExecutions) CountActiveExecutions(_ context.Context) (int, error) {
	return e.active, nil
}

type harness struct {
	reports    *reports.Service
	incidents  *incidents.Service
	repo       *incidentsmemory.Repository
	executions *stubExecutions
}

func newTestHarness(t *testing.T) *harness {
	t.Helper()

	directory := &stubDirectory{responders: map[string]*domain.Responder{
		"resp-1": {
			ID:    "resp-1",
			Name:  "Casey Morgan",
			Email: "casey@example.com",
			Role:  domain.RoleForensics,
		},
	}}

	repo := incidentsmemory.NewRepository()

	incidentsService := incidents.NewService(repo, directory, incidents.SLAPolicy{
		ResponseMinutes: map[domain.IncidentSeverity]int{
			domain.SeverityCritical: 15,
		},
	})

	renderer, err := reports.NewRenderer()
	require.NoError(t, err)

	executions := &stubExecutions{}

	return &harness{
		reports:    reports.NewService(incidentsService, executions, renderer),
		incidents:  incidentsService,
		repo:       repo,
		executions: executions,
	}
}

func (h *harness) createIncident(t *testing.T, title string, severity domain.IncidentSeverity, category domain.IncidentCategory, cost float64) *domain.Incident {
	t.Helper()

	incident, err := h.incidents.CreateIncident(context.Background(), incidents.CreateIncidentInput{
		Title:        title,
		Category:     category,
		Severity:     severity,
		Reporter:     "soc",
		CostEstimate: cost,
	})
	require.NoError(t, err)

	return incident
}

// seedResolvedIncident plants a finished incident with a known resolution
// span, bypassing the service so created_at can sit in the past.
func (h *harness) seedResolvedIncident(t *testing.T, age time.Duration, cost float64) *domain.Incident {
	t.Helper()

	now := time.Now().UTC()
	created := now.Add(-age)

	incident := &domain.Incident{
		ID:           uuid.New().String(),
		Number:       "INC-2026-9998",
		Title:        "resolved credential stuffing",
		Category:     domain.CategoryDataBreach,
		Severity:     domain.SeverityMedium,
		Status:       domain.StatusResolved,
		Priority:     domain.SeverityMedium.DefaultPriority(),
		DetectedAt:   created,
		CreatedAt:    created,
		UpdatedAt:    now,
		Reporter:     "soc",
		CostEstimate: cost,
	}

	require.NoError(t, h.repo.CreateIncident(context.Background(), incident))

	return incident
}

func TestService_Metrics(t *testing.T) {
	h := newTestHarness(t)

	h.createIncident(t, "ransomware on file server", domain.SeverityCritical, domain.CategoryMalware, 2500)
	h.createIncident(t, "spearphishing wave", domain.SeverityHigh, domain.CategoryPhishing, 500)
	h.seedResolvedIncident(t, 4*time.Hour, 1000)

	closed := h.createIncident(t, "lost badge", domain.SeverityLow, domain.CategoryPhysicalSecurity, 0)
	_, err := h.incidents.CloseIncident(context.Background(), closed.ID, "badge recovered", "soc")
	require.NoError(t, err)

	metrics, err := h.reports.Metrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, metrics.TotalIncidents)
	assert.Equal(t, 2, metrics.ByStatus[domain.StatusNew])
	assert.Equal(t, 1, metrics.ByStatus[domain.StatusResolved])
	assert.Equal(t, 1, metrics.ByStatus[domain.StatusClosed])
	assert.Equal(t, 1, metrics.BySeverity[domain.SeverityCritical])
	assert.Equal(t, 1, metrics.BySeverity[domain.SeverityHigh])
	assert.Equal(t, 1, metrics.BySeverity[domain.SeverityMedium])
	assert.Equal(t, 1, metrics.BySeverity[domain.SeverityLow])
	assert.Equal(t, 1, metrics.ByCategory[domain.CategoryMalware])
	assert.Equal(t, 1, metrics.ByCategory[domain.CategoryDataBreach])

	assert.InDelta(t, 4000.0, metrics.TotalCost, 0.001)
	assert.InDelta(t, 1000.0, metrics.CostPerIncident, 0.001)

	// The seeded incident ran 4h, the closed one finished within the test.
	assert.InDelta(t, 2.0, metrics.AverageResolutionHours, 0.05)
	assert.False(t, metrics.GeneratedAt.IsZero())
}

func TestService_Metrics_NoIncidents(t *testing.T) {
	h := newTestHarness(t)

	metrics, err := h.reports.Metrics(context.Background())
	require.NoError(t, err)

	assert.Zero(t, metrics.TotalIncidents)
	assert.Zero(t, metrics.AverageResolutionHours)
	assert.Zero(t, metrics.TotalCost)
	assert.Zero(t, metrics.CostPerIncident)
	assert.NotNil(t, metrics.ByStatus)
	assert.Empty(t, metrics.ByStatus)
}

func TestService_Dashboard(t *testing.T) {
	h := newTestHarness(t)
	h.executions.active = 3

	ctx := context.Background()
	now := time.Now().UTC()

	critical := h.createIncident(t, "domain controller compromise", domain.SeverityCritical, domain.CategorySystemCompromise, 0)
	_, err := h.incidents.MarkSLABreach(ctx, critical.ID, "response deadline exceeded")
	require.NoError(t, err)

	high := h.createIncident(t, "phishing campaign", domain.SeverityHigh, domain.CategoryPhishing, 0)

	closed := h.createIncident(t, "old scanner noise", domain.SeverityLow, domain.CategoryOther, 0)
	_, err = h.incidents.CloseIncident(ctx, closed.ID, "false positive", "soc")
	require.NoError(t, err)

	soon := now.Add(1 * time.Hour)
	later := now.Add(2 * time.Hour)
	past := now.Add(-1 * time.Hour)

	_, err = h.incidents.AddTask(ctx, high.ID, incidents.AddTaskInput{Title: "isolate mail gateway", DueDate: &soon}, "soc")
	require.NoError(t, err)
	_, err = h.incidents.AddTask(ctx, critical.ID, incidents.AddTaskInput{Title: "contain domain controller", DueDate: &later}, "soc")
	require.NoError(t, err)
	_, err = h.incidents.AddTask(ctx, critical.ID, incidents.AddTaskInput{Title: "already overdue", DueDate: &past}, "soc")
	require.NoError(t, err)

	done, err := h.incidents.AddTask(ctx, critical.ID, incidents.AddTaskInput{Title: "finished task", DueDate: &later}, "soc")
	require.NoError(t, err)
	completed := domain.TaskStatusCompleted
	_, err = h.incidents.UpdateTask(ctx, critical.ID, done.ID, incidents.UpdateTaskInput{Status: &completed}, "soc")
	require.NoError(t, err)

	dashboard, err := h.reports.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, dashboard.OpenIncidents)
	assert.Equal(t, 1, dashboard.CriticalIncidents)
	assert.Equal(t, 1, dashboard.SLABreaches)
	assert.Equal(t, 3, dashboard.ActiveExecutions)
	assert.Equal(t, 1, dashboard.BySeverity[domain.SeverityCritical])
	assert.Equal(t, 1, dashboard.BySeverity[domain.SeverityHigh])
	assert.NotContains(t, dashboard.BySeverity, domain.SeverityLow)
	assert.Equal(t, 2, dashboard.ByStatus[domain.StatusNew])

	// Overdue and completed tasks stay off the deadline list.
	require.Len(t, dashboard.UpcomingDeadlines, 2)
	assert.Equal(t, "isolate mail gateway", dashboard.UpcomingDeadlines[0].TaskTitle)
	assert.Equal(t, high.ID, dashboard.UpcomingDeadlines[0].IncidentID)
	assert.Equal(t, "contain domain controller", dashboard.UpcomingDeadlines[1].TaskTitle)
}

func TestService_Dashboard_CapsUpcomingDeadlines(t *testing.T) {
	h := newTestHarness(t)

	ctx := context.Background()
	incident := h.createIncident(t, "slow burn investigation", domain.SeverityMedium, domain.CategoryUnauthorized, 0)

	// Insert due dates in descending order so the cap only holds after
	// sorting, not by accident of insertion.
	now := time.Now().UTC()
	for i := 0; i < 12; i++ {
		due := now.Add(time.Duration(12-i) * time.Hour)
		_, err := h.incidents.AddTask(ctx, incident.ID, incidents.AddTaskInput{
			Title:   fmt.Sprintf("task %d", i+1),
			DueDate: &due,
		}, "soc")
		require.NoError(t, err)
	}

	dashboard, err := h.reports.Dashboard(ctx)
	require.NoError(t, err)

	require.Len(t, dashboard.UpcomingDeadlines, 10)
	assert.Equal(t, "task 12", dashboard.UpcomingDeadlines[0].TaskTitle)

	for i := 1; i < len(dashboard.UpcomingDeadlines); i++ {
		previous := dashboard.UpcomingDeadlines[i-1].DueDate
		current := dashboard.UpcomingDeadlines[i].DueDate
		assert.False(t, current.Before(previous), "deadlines must be sorted ascending")
	}

	// The two farthest due dates fall off the list.
	for _, deadline := range dashboard.UpcomingDeadlines {
		assert.NotEqual(t, "task 1", deadline.TaskTitle)
		assert.NotEqual(t, "task 2", deadline.TaskTitle)
	}
}

func TestService_Dashboard_RecentIncidents(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	created := make([]*domain.Incident, 0, 12)
	for i := 0; i < 12; i++ {
		created = append(created,
			h.createIncident(t, fmt.Sprintf("incident %d", i+1), domain.SeverityLow, domain.CategoryOther, 0))
	}

	// Touching the oldest incident makes it the most recent.
	_, err := h.incidents.TagIncident(ctx, created[0].ID, []string{"revisited"}, "analyst")
	require.NoError(t, err)

	dashboard, err := h.reports.Dashboard(ctx)
	require.NoError(t, err)

	require.Len(t, dashboard.RecentIncidents, 10)
	assert.Equal(t, "incident 1", dashboard.RecentIncidents[0].Title)
	assert.Equal(t, "incident 12", dashboard.RecentIncidents[1].Title)

	for i := 1; i < len(dashboard.RecentIncidents); i++ {
		previous := dashboard.RecentIncidents[i-1].UpdatedAt
		current := dashboard.RecentIncidents[i].UpdatedAt
		assert.False(t, current.After(previous), "recent incidents must be sorted by updated_at descending")
	}
}

func TestService_RenderIncidentReport(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	incident, err := h.incidents.CreateIncident(ctx, incidents.CreateIncidentInput{
		Title:           "ransomware outbreak",
		Description:     "LockBit variant spreading over SMB.",
		Category:        domain.CategoryMalware,
		Severity:        domain.SeverityCritical,
		Reporter:        "soc",
		AffectedSystems: []string{"fileserver-01", "fileserver-02"},
		IOCs:            []string{"198.51.100.7", "bad-domain.example"},
		Tags:            []string{"ransomware"},
		CostEstimate:    12500,
	})
	require.NoError(t, err)

	_, err = h.incidents.AssignResponder(ctx, incident.ID, "resp-1", "soc")
	require.NoError(t, err)

	evidence, err := h.incidents.AddEvidence(ctx, incident.ID, incidents.AddEvidenceInput{
		Type:        domain.EvidenceTypeMemory,
		Name:        "fileserver-01 memory dump",
		CollectedBy: "casey",
	})
	require.NoError(t, err)
	_, err = h.incidents.AddCustodyRecord(ctx, incident.ID, evidence.ID, incidents.AddCustodyInput{
		Actor:  "casey",
		Action: "sealed",
	})
	require.NoError(t, err)
	_, err = h.incidents.AddCustodyRecord(ctx, incident.ID, evidence.ID, incidents.AddCustodyInput{
		Actor:  "jordan",
		Action: "transferred",
		Notes:  "moved to evidence locker",
	})
	require.NoError(t, err)

	due := time.Now().UTC().Add(2 * time.Hour)
	_, err = h.incidents.AddTask(ctx, incident.ID, incidents.AddTaskInput{
		Title:      "rotate domain admin credentials",
		AssignedTo: "casey",
		DueDate:    &due,
	}, "soc")
	require.NoError(t, err)

	investigation, err := h.incidents.StartInvestigation(ctx, incident.ID, incidents.StartInvestigationInput{
		Investigator: "casey",
		Scope:        "fileserver-01 initial access",
	})
	require.NoError(t, err)
	_, err = h.incidents.AddFinding(ctx, investigation.ID, incidents.AddFindingInput{
		Category:    "initial-access",
		Description: "RDP login from unrecognized ASN",
		RecordedBy:  "casey",
	})
	require.NoError(t, err)

	_, err = h.incidents.AddLesson(ctx, incident.ID, incidents.AddLessonInput{
		Area:           "detection",
		Description:    "SMB lateral movement went unnoticed for 3 hours.",
		Recommendation: "Alert on mass file renames.",
		RecordedBy:     "soc",
	})
	require.NoError(t, err)

	report, err := h.reports.RenderIncidentReport(ctx, incident.ID)
	require.NoError(t, err)

	assert.Contains(t, report, "SECURITY INCIDENT REPORT  "+incident.Number)
	assert.Contains(t, report, "ransomware outbreak")
	assert.Contains(t, report, "Severity:  Critical")
	assert.Contains(t, report, "Cost:      12500.00")
	assert.Contains(t, report, "LockBit variant spreading over SMB.")
	assert.Contains(t, report, "AFFECTED SYSTEMS")
	assert.Contains(t, report, "fileserver-02")
	assert.Contains(t, report, "INDICATORS OF COMPROMISE")
	assert.Contains(t, report, "198.51.100.7")
	assert.Contains(t, report, "Casey Morgan")
	assert.Contains(t, report, "[Memory] fileserver-01 memory dump")
	assert.Contains(t, report, "2 custody entries")
	assert.Contains(t, report, "rotate domain admin credentials")
	assert.Contains(t, report, "FORENSIC INVESTIGATIONS")
	assert.Contains(t, report, "Open: fileserver-01 initial access (investigator casey)")
	assert.Contains(t, report, "initial-access: RDP login from unrecognized ASN")
	assert.Contains(t, report, "LESSONS LEARNED")
	assert.Contains(t, report, "Alert on mass file renames.")
	assert.Contains(t, report, "TIMELINE")
	assert.Contains(t, report, "incident_created (soc)")
}

func TestService_RenderIncidentReport_UnknownIncident(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.reports.RenderIncidentReport(context.Background(), "ghost")
	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}
