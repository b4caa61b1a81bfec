package fragment

// Metrics defines the instrumentation of the fragmentation engine.
// All methods are thread-safe.
type Metrics interface {
	// MessageSplit is called for every message split into n > 1 fragments.
	MessageSplit(fragments int)
	// MessageAssembled is called when a group of n fragments is delivered.
	MessageAssembled(fragments int)
	// FragmentDropped reasons: duplicate_begin, orphan_fragment, unknown_end,
	// malformed.
	FragmentDropped(reason string)
	// PendingGroups reports the number of open groups after each change.
	PendingGroups(n int)
}

type nopMetrics struct{}

func (nopMetrics) MessageSplit(int)       {}
func (nopMetrics) MessageAssembled(int)   {}
func (nopMetrics) FragmentDropped(string) {}
func (nopMetrics) PendingGroups(int)      {}

// NopMetrics returns a no-op Metrics implementation.
func NopMetrics() Metrics { return nopMetrics{} }
