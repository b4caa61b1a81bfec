package fragment

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/codewandler/gridwire-go/core/protocol"
)

// Drop reasons reported to Metrics.FragmentDropped.
const (
	DropDuplicateBegin = "duplicate_begin"
	DropOrphan         = "orphan_fragment"
	DropUnknownEnd     = "unknown_end"
	DropMalformed      = "malformed"
)

// Handler receives complete messages. It is called without any assembler
// lock held and may call back into the Assembler.
type Handler func(msg *protocol.ClientMessage)

type AssemblerOptions struct {
	Handler Handler
	Log     *slog.Logger
	Metrics Metrics
}

type group struct {
	msg       *protocol.ClientMessage
	fragments int
}

// Assembler rebuilds fragmented messages. One Assembler serves one
// connection; Accept may be called from several goroutines.
type Assembler struct {
	handler Handler
	log     *slog.Logger
	metrics Metrics

	mu     sync.Mutex
	groups map[int64]*group
}

func NewAssembler(opts AssemblerOptions) (*Assembler, error) {
	if opts.Handler == nil {
		return nil, ErrHandlerRequired
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	m := opts.Metrics
	if m == nil {
		m = NopMetrics()
	}
	return &Assembler{
		handler: opts.Handler,
		log:     log.With(slog.String("component", "fragment_assembler")),
		metrics: m,
		groups:  make(map[int64]*group),
	}, nil
}

// Accept routes one received message. Unfragmented messages go straight to
// the handler; fragments are collected until their End fragment arrives.
func (a *Assembler) Accept(msg *protocol.ClientMessage) {
	role := msg.Flags().Role()
	if role == protocol.MsgUnfragmented {
		a.handler(msg)
		return
	}

	first := msg.FirstFrame()
	if first == nil || len(first.Bytes) != IDFrameSize {
		a.drop(DropMalformed, msg, 0)
		return
	}
	id := int64(binary.LittleEndian.Uint64(first.Bytes))

	switch role {
	case protocol.MsgBeginFragment:
		a.begin(id, msg)
	case protocol.MsgEndFragment:
		if done := a.end(id, msg); done != nil {
			a.metrics.MessageAssembled(done.fragments)
			a.handler(done.msg)
		}
	default:
		a.middle(id, msg)
	}
}

func (a *Assembler) begin(id int64, msg *protocol.ClientMessage) {
	a.mu.Lock()
	if _, ok := a.groups[id]; ok {
		a.mu.Unlock()
		a.drop(DropDuplicateBegin, msg, id)
		return
	}
	m := protocol.CreateForEncode(msg.Size()).
		SetMessageType(msg.MessageType()).
		SetCorrelationID(msg.CorrelationID()).
		SetPartitionID(msg.PartitionID()).
		SetFlags(msg.Flags()&^protocol.MsgUnfragmented | protocol.MsgUnfragmented).
		SetFragmentID(id)
	g := &group{msg: m}
	appendPayload(g, msg)
	a.groups[id] = g
	n := len(a.groups)
	a.mu.Unlock()
	a.metrics.PendingGroups(n)
}

func (a *Assembler) middle(id int64, msg *protocol.ClientMessage) {
	a.mu.Lock()
	g, ok := a.groups[id]
	if ok {
		appendPayload(g, msg)
	}
	a.mu.Unlock()
	if !ok {
		a.drop(DropOrphan, msg, id)
	}
}

func (a *Assembler) end(id int64, msg *protocol.ClientMessage) *group {
	a.mu.Lock()
	g, ok := a.groups[id]
	if ok {
		appendPayload(g, msg)
		delete(a.groups, id)
	}
	n := len(a.groups)
	a.mu.Unlock()
	if !ok {
		a.drop(DropUnknownEnd, msg, id)
		return nil
	}
	a.metrics.PendingGroups(n)
	g.msg.UpdateFrameLength()
	return g
}

// appendPayload copies every frame after the id frame into the group.
func appendPayload(g *group, msg *protocol.ClientMessage) {
	for f := msg.FirstFrame().Next(); f != nil; f = f.Next() {
		g.msg.AddFrame(f.CopyWithFlags(f.Flags &^ protocol.FlagFinal))
	}
	g.fragments++
}

func (a *Assembler) drop(reason string, msg *protocol.ClientMessage, id int64) {
	a.metrics.FragmentDropped(reason)
	a.log.Debug("fragment dropped",
		slog.String("reason", reason),
		slog.Int64("fragment_id", id),
		slog.Int("correlation_id", int(msg.CorrelationID())),
		slog.String("flags", msg.Flags().String()),
	)
}

// Pending returns the number of groups waiting for their End fragment.
func (a *Assembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Discard forgets the open group id and reports whether it existed.
func (a *Assembler) Discard(id int64) bool {
	a.mu.Lock()
	_, ok := a.groups[id]
	delete(a.groups, id)
	n := len(a.groups)
	a.mu.Unlock()
	if ok {
		a.metrics.PendingGroups(n)
	}
	return ok
}

// Reset drops every open group, typically when the connection goes away, and
// returns how many were dropped.
func (a *Assembler) Reset() int {
	a.mu.Lock()
	n := len(a.groups)
	clear(a.groups)
	a.mu.Unlock()
	if n > 0 {
		a.metrics.PendingGroups(0)
	}
	return n
}
