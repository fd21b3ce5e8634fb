package incidents

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bissquit/incident-forge/internal/domain"
)

const namespace = "incidentforge"

var (
	incidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "created_total",
			Help:      "Total incidents created",
		},
		[]string{"severity", "category"},
	)

	incidentsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "closed_total",
			Help:      "Total incidents closed",
		},
	)

	incidentsEscalated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "escalated_total",
			Help:      "Total incident escalations",
		},
	)

	timelineEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "timeline_events_total",
			Help:      "Total timeline events appended, by event type",
		},
		[]string{"type"},
	)
)

// recordIncidentCreated records a created incident metric.
func recordIncidentCreated(severity domain.IncidentSeverity, category domain.IncidentCategory) {
	incidentsCreated.WithLabelValues(string(severity), string(category)).Inc()
}

// recordIncidentClosed records a closed incident metric.
func recordIncidentClosed() {
	incidentsClosed.Inc()
}

// recordIncidentEscalated records a severity escalation metric.
func recordIncidentEscalated() {
	incidentsEscalated.Inc()
}

// recordTimelineEvent records an appended timeline event metric.
func recordTimelineEvent(eventType domain.TimelineEventType) {
	timelineEvents.WithLabelValues(string(eventType)).Inc()
}
