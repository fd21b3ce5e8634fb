package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/incidents"
)

// WatchdogConfig contains SLA watchdog configuration.
type WatchdogConfig struct {
	Interval time.Duration
}

// DefaultWatchdogConfig returns default watchdog configuration.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		Interval: 30 * time.Second,
	}
}

// Watchdog periodically sweeps open incidents for missed response
// deadlines, marking SLA breaches and applying escalation rules.
type Watchdog struct {
	config  WatchdogConfig
	service *Service

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWatchdog creates a new SLA watchdog.
func NewWatchdog(config WatchdogConfig, service *Service) *Watchdog {
	return &Watchdog{
		config:  config,
		service: service,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the sweep goroutine.
func (w *Watchdog) Start(ctx context.Context) {
	slog.Info("starting sla watchdog", "interval", w.config.Interval)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the watchdog.
func (w *Watchdog) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("sla watchdog stopped")
}

func (w *Watchdog) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.service.SweepSLA(ctx); err != nil {
				slog.Error("sla sweep failed", "error", err)
			}
		}
	}
}

// SweepSLA walks every open incident once: incidents past their response
// deadline are marked breached, and incidents still awaiting a response are
// escalated per the first matching escalation rule. Escalation changes the
// incident's severity, so a rule keyed on the old severity will not fire
// again on the next sweep. Returns the number of incidents touched.
func (s *Service) SweepSLA(ctx context.Context) (int, error) {
	open, err := s.actions.ListIncidents(ctx, incidents.IncidentFilters{})
	if err != nil {
		return 0, fmt.Errorf("list incidents: %w", err)
	}

	escalations, err := s.repo.ListEscalationRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list escalation rules: %w", err)
	}

	recordWatchdogSweep()

	now := time.Now().UTC()
	touched := 0

	for _, incident := range open {
		if incident.Status.IsResolved() {
			continue
		}

		if s.markOverdueBreach(ctx, incident, now) {
			touched++
		}

		if !awaitingResponse(incident.Status) {
			continue
		}

		if s.escalateOverdue(ctx, incident, escalations, now) {
			touched++
		}
	}

	return touched, nil
}

func (s *Service) markOverdueBreach(ctx context.Context, incident *domain.Incident, now time.Time) bool {
	if incident.SLABreach || incident.ResponseDeadline == nil || now.Before(*incident.ResponseDeadline) {
		return false
	}

	if _, err := s.actions.MarkSLABreach(ctx, incident.ID, "response deadline exceeded"); err != nil {
		slog.Error("failed to mark sla breach", "incident_id", incident.ID, "error", err)
		return false
	}

	return true
}

func (s *Service) escalateOverdue(ctx context.Context, incident *domain.Incident, rules []*domain.EscalationRule, now time.Time) bool {
	for _, rule := range rules {
		if !rule.Enabled || rule.Severity != incident.Severity {
			continue
		}

		deadline := incident.CreatedAt.Add(time.Duration(rule.MaxResponseMinutes) * time.Minute)
		if now.Before(deadline) {
			continue
		}

		reason := fmt.Sprintf("no response within %d minutes, escalation rule %q", rule.MaxResponseMinutes, rule.Name)

		if _, err := s.actions.EscalateIncident(ctx, incident.ID, rule.EscalateTo, reason, actorAutomation); err != nil {
			slog.Error("escalation failed", "incident_id", incident.ID, "rule", rule.Name, "error", err)
			continue
		}

		for _, recipient := range rule.Notify {
			_, err := s.actions.RecordNotification(ctx, incident.ID, incidents.RecordNotificationInput{
				Recipient:  recipient,
				Channel:    "escalation",
				Subject:    fmt.Sprintf("incident %s escalated to %s", incident.Number, rule.EscalateTo),
				NotifiedBy: actorAutomation,
			})
			if err != nil {
				slog.Error("escalation notification failed", "incident_id", incident.ID, "recipient", recipient, "error", err)
			}
		}

		triggered := time.Now().UTC()
		rule.ExecutionCount++
		rule.LastTriggeredAt = &triggered

		if err := s.repo.UpdateEscalationRule(ctx, rule); err != nil {
			slog.Error("failed to update escalation rule", "rule", rule.Name, "error", err)
		}

		recordWatchdogEscalation()

		return true
	}

	return false
}

// awaitingResponse reports whether nobody has started working the incident
// yet.
func awaitingResponse(status domain.IncidentStatus) bool {
	return status == domain.StatusNew || status == domain.StatusAssigned || status == domain.StatusReopened
}
