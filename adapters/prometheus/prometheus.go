// Package prometheus implements the Metrics interfaces of the fragment, wire
// and client packages with Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/gridwire-go/core/metrics"
)

const namespace = "gridwire"

func newTimer(h prometheus.Observer) metrics.Timer {
	return metrics.NewTimer(func(d time.Duration) { h.Observe(d.Seconds()) })
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// Fragment counts and sizes in fragments.
var fragmentBuckets = prometheus.ExponentialBuckets(2, 2, 10)

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// AllMetrics holds the Prometheus implementations for every layer.
type AllMetrics struct {
	Fragment *fragmentMetrics
	Wire     *wireMetrics
	Client   *clientMetrics
}

// NewAllMetrics registers the metrics of every layer on reg.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Fragment: NewFragmentMetrics(reg).(*fragmentMetrics),
		Wire:     NewWireMetrics(reg).(*wireMetrics),
		Client:   NewClientMetrics(reg).(*clientMetrics),
	}
}
