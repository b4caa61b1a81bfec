package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/gridwire-go/core/wire"
)

// wireMetrics implements wire.Metrics using Prometheus.
type wireMetrics struct {
	bytesTotal        *prometheus.CounterVec
	messagesTotal     *prometheus.CounterVec
	connectionsActive prometheus.Gauge
	closedTotal       *prometheus.CounterVec
}

// NewWireMetrics creates a Prometheus implementation of wire.Metrics.
func NewWireMetrics(reg prometheus.Registerer) wire.Metrics {
	m := &wireMetrics{
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "bytes_total",
			Help:      "Total number of bytes moved over connections",
		}, []string{"direction"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "messages_total",
			Help:      "Total number of wire messages by direction and type class",
		}, []string{"direction", "kind"}),

		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "connections_active",
			Help:      "Number of open connections",
		}),

		closedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "connections_closed_total",
			Help:      "Total number of closed connections by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.bytesTotal,
		m.messagesTotal,
		m.connectionsActive,
		m.closedTotal,
	)

	return m
}

func (m *wireMetrics) BytesRead(n int) {
	m.bytesTotal.WithLabelValues("in").Add(float64(n))
}

func (m *wireMetrics) BytesWritten(n int) {
	m.bytesTotal.WithLabelValues("out").Add(float64(n))
}

func (m *wireMetrics) MessageReceived(kind string) {
	m.messagesTotal.WithLabelValues("in", kind).Inc()
}

func (m *wireMetrics) MessageSent(kind string) {
	m.messagesTotal.WithLabelValues("out", kind).Inc()
}

func (m *wireMetrics) ConnectionOpened() {
	m.connectionsActive.Inc()
}

func (m *wireMetrics) ConnectionClosed(reason string) {
	m.connectionsActive.Dec()
	m.closedTotal.WithLabelValues(reason).Inc()
}

var _ wire.Metrics = (*wireMetrics)(nil)
