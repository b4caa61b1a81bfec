package fragment

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

// IDSource hands out FragmentIds. Ids must be unique per assembler while a
// group is in flight, so every splitter feeding the same assembler needs
// a disjoint range.
type IDSource interface {
	Next() int64
}

// Sequence is a monotonic IDSource starting at 1. The zero value is ready to
// use and safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// NewRandomSequence returns a Sequence starting at a random 64-bit base.
// Independent publishers sharing one assembler use it to keep their ids
// apart without coordination.
func NewRandomSequence() *Sequence {
	var b [8]byte
	_, _ = rand.Read(b[:])
	s := &Sequence{}
	s.n.Store(int64(binary.LittleEndian.Uint64(b[:])))
	return s
}

func (s *Sequence) Next() int64 { return s.n.Add(1) }

var _ IDSource = (*Sequence)(nil)
