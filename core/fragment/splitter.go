package fragment

import (
	"encoding/binary"
	"fmt"

	"github.com/codewandler/gridwire-go/core/protocol"
)

const (
	// IDFrameSize is the payload size of the FragmentId frame.
	IDFrameSize = 8

	// Overhead is what every fragment spends before its first payload frame.
	Overhead = protocol.HeaderSize + protocol.FrameHeaderSize + IDFrameSize

	// DefaultThreshold is the fragment size used when none is configured.
	DefaultThreshold = 1 << 16
)

type SplitterOptions struct {
	// Threshold is the largest wire size of a fragment, unless a single frame
	// is larger on its own. Defaults to DefaultThreshold.
	Threshold int
	// IDs hands out FragmentIds. Defaults to a fresh Sequence.
	IDs     IDSource
	Metrics Metrics
}

// Splitter turns oversized messages into fragment groups. It is safe for
// concurrent use if its IDSource is.
type Splitter struct {
	threshold int
	ids       IDSource
	metrics   Metrics
}

func NewSplitter(opts SplitterOptions) (*Splitter, error) {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold <= Overhead {
		return nil, fmt.Errorf("%w: %d <= %d", ErrThresholdTooSmall, threshold, Overhead)
	}
	ids := opts.IDs
	if ids == nil {
		ids = &Sequence{}
	}
	m := opts.Metrics
	if m == nil {
		m = NopMetrics()
	}
	return &Splitter{threshold: threshold, ids: ids, metrics: m}, nil
}

func (s *Splitter) Threshold() int { return s.threshold }

// Split returns msg marked Unfragmented when it fits the threshold or has at
// most one frame. Otherwise it returns the fragments in send order; msg itself
// is left untouched and its payloads are shared with the fragments.
func (s *Splitter) Split(msg *protocol.ClientMessage) []*protocol.ClientMessage {
	if wireSize(msg) <= s.threshold || msg.FrameCount() <= 1 {
		msg.AddFlags(protocol.MsgUnfragmented)
		return []*protocol.ClientMessage{msg}
	}

	var groups [][]*protocol.Frame
	var cur []*protocol.Frame
	size := Overhead

	flush := func() {
		if len(cur) == 0 {
			return
		}
		groups = append(groups, cur)
		cur = nil
		size = Overhead
	}

	for f := range msg.All() {
		fs := f.Size()
		if size+fs > s.threshold {
			flush()
		}
		cur = append(cur, f.CopyWithFlags(f.Flags&^protocol.FlagFinal))
		size += fs
	}
	flush()

	id := s.ids.Next()
	out := make([]*protocol.ClientMessage, len(groups))
	for i, frames := range groups {
		var role protocol.MessageFlags
		if i == 0 {
			role |= protocol.MsgBeginFragment
		}
		if i == len(groups)-1 {
			role |= protocol.MsgEndFragment
		}
		out[i] = newFragment(msg, id, role, frames)
	}
	s.metrics.MessageSplit(len(out))
	return out
}

func wireSize(m *protocol.ClientMessage) int {
	if m.IsComplete() {
		return int(m.FrameLength())
	}
	return m.Size()
}

func newFragment(orig *protocol.ClientMessage, id int64, role protocol.MessageFlags, frames []*protocol.Frame) *protocol.ClientMessage {
	size := Overhead
	for _, f := range frames {
		size += f.Size()
	}
	m := protocol.CreateForEncode(size).
		SetMessageType(orig.MessageType()).
		SetCorrelationID(orig.CorrelationID()).
		SetPartitionID(orig.PartitionID()).
		SetFlags(orig.Flags()&^protocol.MsgUnfragmented | role).
		SetFragmentID(id).
		SetRetryable(orig.IsRetryable()).
		SetOperationName(orig.OperationName())

	m.AddFrame(protocol.NewFrameWithFlags(binary.LittleEndian.AppendUint64(nil, uint64(id)), frameRole(role)))
	for _, f := range frames {
		m.AddFrame(f)
	}
	return m.UpdateFrameLength()
}

func frameRole(role protocol.MessageFlags) protocol.Flags {
	var f protocol.Flags
	if role.Has(protocol.MsgBeginFragment) {
		f |= protocol.FlagBeginFragment
	}
	if role.Has(protocol.MsgEndFragment) {
		f |= protocol.FlagEndFragment
	}
	return f
}
