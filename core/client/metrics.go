package client

import "github.com/codewandler/gridwire-go/core/metrics"

// Invocation outcomes reported to Metrics.InvocationCompleted.
const (
	OutcomeOK             = "ok"
	OutcomeRemoteError    = "remote_error"
	OutcomeTimeout        = "timeout"
	OutcomeConnectionLost = "connection_lost"
	OutcomeError          = "error"
)

// Metrics defines the instrumentation of the client.
// All methods are thread-safe.
type Metrics interface {
	// Invocations
	InvocationDuration(operation string) metrics.Timer
	InvocationCompleted(operation string, outcome string)
	InvocationRetried(operation string)

	// Connections
	ConnectionsActive(n int)

	// Events: orphan marks events without a registered listener.
	EventReceived(orphan bool)
}

type nopMetrics struct{}

func (nopMetrics) InvocationDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) InvocationCompleted(string, string)      {}
func (nopMetrics) InvocationRetried(string)                {}

func (nopMetrics) ConnectionsActive(int) {}

func (nopMetrics) EventReceived(bool) {}

// NopMetrics returns a no-op Metrics implementation.
func NopMetrics() Metrics { return nopMetrics{} }
