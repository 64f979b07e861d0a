package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RepositoryMetrics records repository operations and lifecycle phases.
// A nil *RepositoryMetrics is valid and records nothing.
type RepositoryMetrics struct {
	duration  *prometheus.HistogramVec
	total     *prometheus.CounterVec
	lifecycle *prometheus.CounterVec
}

// NewRepositoryMetrics registers the repository metrics on the provided registerer.
func NewRepositoryMetrics(reg prometheus.Registerer) *RepositoryMetrics {
	if reg == nil {
		return &RepositoryMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repository_operation_duration_seconds",
		Help:    "Duration of repository operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "operation"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repository_operation_total",
		Help: "Repository operations by outcome.",
	}, []string{"entity", "operation", "outcome"})
	lifecycle := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repository_lifecycle_events_total",
		Help: "Lifecycle phases fired by repositories.",
	}, []string{"entity", "phase"})
	reg.MustRegister(duration, total, lifecycle)
	return &RepositoryMetrics{
		duration:  duration,
		total:     total,
		lifecycle: lifecycle,
	}
}

// Observe records one finished operation.
func (m *RepositoryMetrics) Observe(entity, operation string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	entity, operation = normalizeLabel(entity), normalizeLabel(operation)
	m.duration.WithLabelValues(entity, operation).Observe(duration.Seconds())
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.total.WithLabelValues(entity, operation, outcome).Inc()
}

// IncLifecycle counts a fired lifecycle phase.
func (m *RepositoryMetrics) IncLifecycle(entity, phase string) {
	if m == nil || m.lifecycle == nil {
		return
	}
	m.lifecycle.WithLabelValues(normalizeLabel(entity), normalizeLabel(phase)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
