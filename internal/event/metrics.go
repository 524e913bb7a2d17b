package event

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a Recorder counting events in a Prometheus registry of its
// own, so a run can write its counters to a file for a textfile collector.
type Metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// NewMetrics returns a Metrics whose counters carry the command label.
func NewMetrics(command string) *Metrics {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "photodb_events_total",
		Help:        "Items processed by the last run, by outcome.",
		ConstLabels: prometheus.Labels{"command": command},
	}, []string{"kind"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(events)

	return &Metrics{registry: registry, events: events}
}

func (m *Metrics) RecordEvent(kind Kind, _ string) {
	m.events.WithLabelValues(kind.String()).Inc()
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteFile writes the counters to path in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Multi forwards every event to each of its recorders in order.
type Multi []Recorder

func (m Multi) RecordEvent(kind Kind, detail string) {
	for _, r := range m {
		r.RecordEvent(kind, detail)
	}
}
