package protocol

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math/bits"
)

const defaultEncodeCapacity = 64

// ClientMessage is one request, response or event: a header plus a chain of
// frames. The header fields live in a struct and are mirrored into the first
// HeaderSize bytes of the backing buffer on every change, so Bytes always
// returns what goes on the wire.
//
// A ClientMessage is not safe for concurrent mutation.
type ClientMessage struct {
	header Header

	first, last *Frame
	frameCount  int
	lastOffset  int

	// buf holds every byte encoded or received so far; len(buf) is the cursor.
	buf []byte

	maxFrameLength int
	complete       bool
	writeOffset    int

	retryable     bool
	fragmentID    int64
	operationName string
}

// CreateForEncode returns an empty message ready for frames. The backing
// buffer is sized to the next power of two of capacity.
func CreateForEncode(capacity int) *ClientMessage {
	if capacity < defaultEncodeCapacity {
		capacity = defaultEncodeCapacity
	}
	m := &ClientMessage{
		buf: make([]byte, HeaderSize, nextPowerOfTwo(capacity)),
		header: Header{
			Version:     Version,
			PartitionID: NoPartition,
			DataOffset:  HeaderSize,
		},
	}
	m.syncHeader()
	return m
}

// CreateForDecode wraps the complete message starting at buf[offset]. The
// frame payloads alias buf.
func CreateForDecode(buf []byte, offset int) (*ClientMessage, error) {
	const op = "create for decode"
	if offset < 0 || len(buf)-offset < HeaderSize {
		return nil, formatErrorf(op, ErrShortHeader, "need %d bytes from offset %d, have %d", HeaderSize, offset, len(buf)-offset)
	}
	b := buf[offset:]
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	if err := h.validate(len(b)); err != nil {
		return nil, err
	}
	m := &ClientMessage{header: h, buf: b[:h.FrameLength:h.FrameLength]}
	if err := m.parseFrames(); err != nil {
		return nil, err
	}
	m.complete = true
	return m, nil
}

func (m *ClientMessage) parseFrames() error {
	off := int(m.header.DataOffset)
	end := len(m.buf)
	for off < end {
		if end-off < FrameHeaderSize {
			return formatErrorf("decode frames", ErrFrameHeader, "%d trailing bytes at offset %d", end-off, off)
		}
		n := int(int32(binary.LittleEndian.Uint32(m.buf[off:])))
		if n < FrameHeaderSize || n > end-off {
			return formatErrorf("decode frames", ErrFrameHeader, "frame length %d at offset %d", n, off)
		}
		f := &Frame{Flags: Flags(binary.LittleEndian.Uint16(m.buf[off+4:]))}
		if n > FrameHeaderSize {
			f.Bytes = m.buf[off+FrameHeaderSize : off+n : off+n]
		}
		m.linkFrame(f)
		m.lastOffset = off
		off += n
	}
	return nil
}

func (m *ClientMessage) linkFrame(f *Frame) {
	if m.last == nil {
		m.first = f
	} else {
		m.last.link(f)
	}
	m.last = f
	m.frameCount++
}

// AddFrame appends f to the chain and serializes it. A Final flag on the
// previous tail is cleared.
func (m *ClientMessage) AddFrame(f *Frame) *ClientMessage {
	if f.next != nil {
		panic("protocol: frame already belongs to a chain")
	}
	if m.last != nil && m.last.IsFinal() {
		m.last.Flags &^= FlagFinal
		m.putFrameFlags(m.lastOffset, m.last.Flags)
	}
	m.linkFrame(f)
	m.lastOffset = len(m.buf)
	m.appendFrameBytes(f)
	m.complete = false
	return m
}

func (m *ClientMessage) appendFrameBytes(f *Frame) {
	n := f.Size()
	m.grow(n)
	off := len(m.buf)
	m.buf = m.buf[:off+n]
	binary.LittleEndian.PutUint32(m.buf[off:], uint32(n))
	binary.LittleEndian.PutUint16(m.buf[off+4:], uint16(f.Flags))
	copy(m.buf[off+FrameHeaderSize:], f.Bytes)
}

func (m *ClientMessage) putFrameFlags(off int, flags Flags) {
	binary.LittleEndian.PutUint16(m.buf[off+4:], uint16(flags))
}

// grow makes room for n more bytes, doubling to the next power of two.
func (m *ClientMessage) grow(n int) {
	if cap(m.buf)-len(m.buf) >= n {
		return
	}
	nb := make([]byte, len(m.buf), nextPowerOfTwo(len(m.buf)+n))
	copy(nb, m.buf)
	m.buf = nb
}

// UpdateFrameLength seals the message: the tail frame is marked Final and the
// current length is written into the FrameLength field.
func (m *ClientMessage) UpdateFrameLength() *ClientMessage {
	if m.last != nil && !m.last.IsFinal() {
		m.last.Flags |= FlagFinal
		m.putFrameFlags(m.lastOffset, m.last.Flags)
	}
	m.header.FrameLength = int32(len(m.buf))
	m.syncHeader()
	m.complete = true
	return m
}

func (m *ClientMessage) syncHeader() {
	if len(m.buf) >= HeaderSize {
		_ = EncodeHeader(m.buf, m.header)
	}
}

// IsComplete reports whether every byte declared by FrameLength is present.
func (m *ClientMessage) IsComplete() bool {
	return len(m.buf) >= HeaderSize && len(m.buf) == int(m.header.FrameLength)
}

// Bytes returns the wire form. It is only meaningful once IsComplete is true.
func (m *ClientMessage) Bytes() []byte { return m.buf }

// Size is the number of bytes encoded or received so far.
func (m *ClientMessage) Size() int { return len(m.buf) }

func (m *ClientMessage) Header() Header        { return m.header }
func (m *ClientMessage) FrameLength() int32    { return m.header.FrameLength }
func (m *ClientMessage) Version() uint8        { return m.header.Version }
func (m *ClientMessage) Flags() MessageFlags   { return m.header.Flags }
func (m *ClientMessage) MessageType() uint16   { return m.header.MessageType }
func (m *ClientMessage) CorrelationID() int32  { return m.header.CorrelationID }
func (m *ClientMessage) PartitionID() int32    { return m.header.PartitionID }
func (m *ClientMessage) DataOffset() uint16    { return m.header.DataOffset }
func (m *ClientMessage) IsEvent() bool         { return m.header.Flags&MsgEvent != 0 }
func (m *ClientMessage) IsRetryable() bool     { return m.retryable }
func (m *ClientMessage) FragmentID() int64     { return m.fragmentID }
func (m *ClientMessage) OperationName() string { return m.operationName }

func (m *ClientMessage) SetFlags(f MessageFlags) *ClientMessage {
	m.header.Flags = f
	m.syncHeader()
	return m
}

func (m *ClientMessage) AddFlags(f MessageFlags) *ClientMessage {
	return m.SetFlags(m.header.Flags | f)
}

func (m *ClientMessage) SetMessageType(t uint16) *ClientMessage {
	m.header.MessageType = t
	m.syncHeader()
	return m
}

func (m *ClientMessage) SetCorrelationID(id int32) *ClientMessage {
	m.header.CorrelationID = id
	m.syncHeader()
	return m
}

func (m *ClientMessage) SetPartitionID(id int32) *ClientMessage {
	m.header.PartitionID = id
	m.syncHeader()
	return m
}

// SetRetryable marks the message safe to resend after a connection failure.
// It is not encoded on the wire.
func (m *ClientMessage) SetRetryable(v bool) *ClientMessage {
	m.retryable = v
	return m
}

func (m *ClientMessage) SetFragmentID(id int64) *ClientMessage {
	m.fragmentID = id
	return m
}

func (m *ClientMessage) SetOperationName(name string) *ClientMessage {
	m.operationName = name
	return m
}

func (m *ClientMessage) FirstFrame() *Frame { return m.first }
func (m *ClientMessage) LastFrame() *Frame  { return m.last }
func (m *ClientMessage) FrameCount() int    { return m.frameCount }

// All yields the frames in chain order.
func (m *ClientMessage) All() iter.Seq[*Frame] {
	return func(yield func(*Frame) bool) {
		for f := m.first; f != nil; f = f.next {
			if !yield(f) {
				return
			}
		}
	}
}

// Iterator returns a cursor positioned at the first frame.
func (m *ClientMessage) Iterator() *Iterator {
	return &Iterator{next: m.first}
}

// CopyWithNewCorrelationID returns an independent copy addressed with id.
// Frame payloads are shared, frame links are not.
func (m *ClientMessage) CopyWithNewCorrelationID(id int32) *ClientMessage {
	c := CreateForEncode(len(m.buf))
	c.header = m.header
	c.header.CorrelationID = id
	c.header.FrameLength = 0
	c.header.DataOffset = HeaderSize
	for f := range m.All() {
		c.AddFrame(f.Copy())
	}
	c.syncHeader()
	if m.complete {
		c.UpdateFrameLength()
	}
	c.retryable = m.retryable
	c.operationName = m.operationName
	return c
}

func (m *ClientMessage) String() string {
	name := m.operationName
	if name == "" {
		name = fmt.Sprintf("type=%d", m.header.MessageType)
	}
	return fmt.Sprintf("ClientMessage{%s corr=%d part=%d frames=%d len=%d flags=%s}",
		name, m.header.CorrelationID, m.header.PartitionID, m.frameCount, m.header.FrameLength, m.header.Flags)
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
