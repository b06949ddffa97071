// Package metrics exposes Prometheus instrumentation for the scripting panel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "scriptpanel"

// Metrics groups the collectors of one panel instance.
type Metrics struct {
	Registry *prometheus.Registry

	Commands           *prometheus.CounterVec
	CommandErrors      *prometheus.CounterVec
	Executions         *prometheus.CounterVec
	StaleEvents        prometheus.Counter
	CompletionRequests prometheus.Counter
}

// New registers the panel collectors plus the Go runtime collectors on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Commands sent to the scripting service by method.",
		}, []string{"method"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "command_errors_total",
			Help:      "Commands that failed at the transport level by method.",
		}, []string{"method"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Finished executions by reported status.",
		}, []string{"status"}),
		StaleEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_events_total",
			Help:      "Execution finished events discarded because a newer run superseded them.",
		}),
		CompletionRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Completion requests served.",
		}),
	}

	m.Registry.MustRegister(
		m.Commands,
		m.CommandErrors,
		m.Executions,
		m.StaleEvents,
		m.CompletionRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}
