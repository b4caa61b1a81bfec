package wire

// Metrics defines the instrumentation of wire connections.
// All methods are thread-safe. kind is the message type class
// (request, response, event, reserved, user).
type Metrics interface {
	BytesRead(n int)
	BytesWritten(n int)
	MessageReceived(kind string)
	MessageSent(kind string)
	ConnectionOpened()
	ConnectionClosed(reason string)
}

type nopMetrics struct{}

func (nopMetrics) BytesRead(int)           {}
func (nopMetrics) BytesWritten(int)        {}
func (nopMetrics) MessageReceived(string)  {}
func (nopMetrics) MessageSent(string)      {}
func (nopMetrics) ConnectionOpened()       {}
func (nopMetrics) ConnectionClosed(string) {}

// NopMetrics returns a no-op Metrics implementation.
func NopMetrics() Metrics { return nopMetrics{} }
