// Package metrics holds the backend-neutral primitives shared by the Metrics
// interfaces of the fragment, wire and client packages.
package metrics

import "time"

// Timer measures one operation. Call ObserveDuration when it completes:
//
//	defer m.InvocationDuration("map.put").ObserveDuration()
type Timer interface {
	ObserveDuration()
}

type stopwatch struct {
	start   time.Time
	observe func(time.Duration)
}

func (s *stopwatch) ObserveDuration() { s.observe(time.Since(s.start)) }

// NewTimer starts a Timer that passes the elapsed time to observe.
func NewTimer(observe func(time.Duration)) Timer {
	return &stopwatch{start: time.Now(), observe: observe}
}
