package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/gridwire-go/core/client"
	"github.com/codewandler/gridwire-go/core/metrics"
)

// clientMetrics implements client.Metrics using Prometheus.
type clientMetrics struct {
	invocationDuration *prometheus.HistogramVec
	invocationsTotal   *prometheus.CounterVec
	retriesTotal       *prometheus.CounterVec
	connectionsActive  prometheus.Gauge
	eventsTotal        *prometheus.CounterVec
}

// NewClientMetrics creates a Prometheus implementation of client.Metrics.
func NewClientMetrics(reg prometheus.Registerer) client.Metrics {
	m := &clientMetrics{
		invocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "invocation_duration_seconds",
			Help:      "Invocation latency in seconds, retries included",
			Buckets:   defaultBuckets,
		}, []string{"operation"}),

		invocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "invocations_total",
			Help:      "Total number of invocations by outcome",
		}, []string{"operation", "outcome"}),

		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Total number of invocation retries",
		}, []string{"operation"}),

		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "member_connections",
			Help:      "Number of open member connections",
		}),

		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "events_total",
			Help:      "Total number of events received",
		}, []string{"orphan"}),
	}

	reg.MustRegister(
		m.invocationDuration,
		m.invocationsTotal,
		m.retriesTotal,
		m.connectionsActive,
		m.eventsTotal,
	)

	return m
}

func (m *clientMetrics) InvocationDuration(operation string) metrics.Timer {
	return newTimer(m.invocationDuration.WithLabelValues(operation))
}

func (m *clientMetrics) InvocationCompleted(operation string, outcome string) {
	m.invocationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *clientMetrics) InvocationRetried(operation string) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

func (m *clientMetrics) ConnectionsActive(n int) {
	m.connectionsActive.Set(float64(n))
}

func (m *clientMetrics) EventReceived(orphan bool) {
	m.eventsTotal.WithLabelValues(boolToStr(orphan)).Inc()
}

var _ client.Metrics = (*clientMetrics)(nil)
