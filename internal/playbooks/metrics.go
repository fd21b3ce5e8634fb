package playbooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidentforge"

var (
	executionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playbooks",
			Name:      "executions_started_total",
			Help:      "Total number of playbook executions started.",
		},
		[]string{"playbook"},
	)

	executionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playbooks",
			Name:      "executions_finished_total",
			Help:      "Total number of playbook executions that reached a terminal status.",
		},
		[]string{"status"},
	)

	stepUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playbooks",
			Name:      "step_updates_total",
			Help:      "Total number of step execution updates by resulting status.",
		},
		[]string{"status"},
	)
)

func recordExecutionStarted(playbook string) {
	executionsStarted.WithLabelValues(playbook).Inc()
}

func recordExecutionFinished(status string) {
	executionsFinished.WithLabelValues(status).Inc()
}

func recordStepUpdate(status string) {
	stepUpdates.WithLabelValues(status).Inc()
}
