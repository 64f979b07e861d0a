package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics counts outbox rows handled by the relay per sink.
type RelayMetrics struct {
	published *prometheus.CounterVec
	batches   prometheus.Counter
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_relay_events_total",
		Help: "Outbox rows handled by the relay.",
	}, []string{"sink", "outcome"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_relay_batches_total",
		Help: "Non-empty outbox batches processed.",
	})
	reg.MustRegister(published, batches)
	return &RelayMetrics{published: published, batches: batches}
}

// IncEvent counts one row outcome: published, failed or dead_lettered.
func (m *RelayMetrics) IncEvent(sink, outcome string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(sink), normalizeLabel(outcome)).Inc()
}

func (m *RelayMetrics) IncBatch() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
