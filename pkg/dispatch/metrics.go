package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ssargent/characterize/pkg/source"
)

const (
	statusSuccess    = "success"
	statusStructural = "structural"
	statusError      = "error"
)

// Metrics holds the dispatcher's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	sourcesTotal    prometheus.Counter
	moduleRunsTotal *prometheus.CounterVec
	parseDuration   *prometheus.HistogramVec
	messagesTotal   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sourcesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "characterize_sources_total",
				Help: "Total number of sources characterized",
			},
		),

		moduleRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "characterize_module_runs_total",
				Help: "Total number of module invocations",
			},
			[]string{"format", "status"},
		),

		parseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "characterize_parse_duration_seconds",
				Help:    "Module parse and validate duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),

		messagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "characterize_messages_total",
				Help: "Total number of diagnostic messages recorded",
			},
			[]string{"severity"},
		),
	}
}

// RecordSource counts a characterized source and its messages.
func (m *Metrics) RecordSource(n *source.Node) {
	if m == nil {
		return
	}
	m.sourcesTotal.Inc()
	for _, msg := range n.Messages() {
		m.messagesTotal.WithLabelValues(msg.Severity.String()).Inc()
	}
}

// RecordModuleRun records one parse/validate invocation.
func (m *Metrics) RecordModuleRun(format, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.moduleRunsTotal.WithLabelValues(format, status).Inc()
	m.parseDuration.WithLabelValues(format).Observe(duration.Seconds())
}
