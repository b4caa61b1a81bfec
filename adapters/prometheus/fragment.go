package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/gridwire-go/core/fragment"
)

// fragmentMetrics implements fragment.Metrics using Prometheus.
type fragmentMetrics struct {
	splitFragments     prometheus.Histogram
	assembledFragments prometheus.Histogram
	droppedTotal       *prometheus.CounterVec
	pendingGroups      prometheus.Gauge
}

// NewFragmentMetrics creates a Prometheus implementation of fragment.Metrics.
func NewFragmentMetrics(reg prometheus.Registerer) fragment.Metrics {
	m := &fragmentMetrics{
		splitFragments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fragment",
			Name:      "split_fragments",
			Help:      "Number of fragments per split message",
			Buckets:   fragmentBuckets,
		}),

		assembledFragments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fragment",
			Name:      "assembled_fragments",
			Help:      "Number of fragments per reassembled message",
			Buckets:   fragmentBuckets,
		}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fragment",
			Name:      "dropped_total",
			Help:      "Total number of fragments discarded during reassembly",
		}, []string{"reason"}),

		pendingGroups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fragment",
			Name:      "pending_groups",
			Help:      "Number of fragment groups awaiting their end fragment",
		}),
	}

	reg.MustRegister(
		m.splitFragments,
		m.assembledFragments,
		m.droppedTotal,
		m.pendingGroups,
	)

	return m
}

func (m *fragmentMetrics) MessageSplit(fragments int) {
	m.splitFragments.Observe(float64(fragments))
}

func (m *fragmentMetrics) MessageAssembled(fragments int) {
	m.assembledFragments.Observe(float64(fragments))
}

func (m *fragmentMetrics) FragmentDropped(reason string) {
	m.droppedTotal.WithLabelValues(reason).Inc()
}

func (m *fragmentMetrics) PendingGroups(n int) {
	m.pendingGroups.Set(float64(n))
}

var _ fragment.Metrics = (*fragmentMetrics)(nil)
