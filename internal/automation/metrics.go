package automation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidentforge"

var (
	ruleExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "rule_executions_total",
			Help:      "Total number of automation rule executions.",
		},
		[]string{"rule"},
	)

	actionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "action_failures_total",
			Help:      "Total number of rule actions that failed to apply.",
		},
		[]string{"action"},
	)

	watchdogSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "watchdog_sweeps_total",
			Help:      "Total number of SLA watchdog sweeps.",
		},
	)

	watchdogEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "watchdog_escalations_total",
			Help:      "Total number of incidents escalated by the SLA watchdog.",
		},
	)
)

func recordRuleExecution(rule string) {
	ruleExecutions.WithLabelValues(rule).Inc()
}

func recordActionFailure(action string) {
	actionFailures.WithLabelValues(action).Inc()
}

func recordWatchdogSweep() {
	watchdogSweeps.Inc()
}

func recordWatchdogEscalation() {
	watchdogEscalations.Inc()
}
