package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

const lengthFieldSize = 4

// Source is a buffer of bytes already received from a transport.
// *bytes.Reader and *bytes.Buffer satisfy it.
type Source interface {
	io.Reader
	// Len is the number of bytes that can be read without blocking.
	Len() int
}

// Sink is a bounded destination for outgoing bytes. *bufio.Writer satisfies it.
type Sink interface {
	io.Writer
	// Available is the number of bytes that can be written without blocking.
	Available() int
}

// CreateForRead returns an empty message to be filled by ReadFromBuffer.
// A positive maxFrameLength rejects larger messages before allocating them.
func CreateForRead(capacity, maxFrameLength int) *ClientMessage {
	if capacity < HeaderSize {
		capacity = HeaderSize
	}
	return &ClientMessage{
		buf:            make([]byte, 0, nextPowerOfTwo(capacity)),
		maxFrameLength: maxFrameLength,
	}
}

// ReadFromBuffer consumes as many bytes of src as the message still needs.
// It reports true once the message is complete and its frames are decoded;
// false only means more bytes are required.
func (m *ClientMessage) ReadFromBuffer(src Source) (bool, error) {
	const op = "read message"
	for {
		if m.complete {
			return true, nil
		}

		var need int
		if len(m.buf) < lengthFieldSize {
			need = lengthFieldSize - len(m.buf)
		} else {
			if m.header.FrameLength == 0 {
				fl := int32(binary.LittleEndian.Uint32(m.buf))
				if fl < HeaderSize {
					return false, formatErrorf(op, ErrFrameLength, "frame length %d below header size", fl)
				}
				if m.maxFrameLength > 0 && int(fl) > m.maxFrameLength {
					return false, formatErrorf(op, ErrFrameTooLarge, "frame length %d above limit %d", fl, m.maxFrameLength)
				}
				m.header.FrameLength = fl
			}
			need = int(m.header.FrameLength) - len(m.buf)
		}

		if need == 0 {
			return true, m.decodeReceived()
		}

		n := min(need, src.Len())
		if n <= 0 {
			return false, nil
		}
		m.grow(n)
		off := len(m.buf)
		m.buf = m.buf[:off+n]
		read, err := io.ReadFull(src, m.buf[off:])
		if err != nil {
			m.buf = m.buf[:off+read]
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
}

func (m *ClientMessage) decodeReceived() error {
	h, err := DecodeHeader(m.buf)
	if err != nil {
		return err
	}
	if err := h.validate(len(m.buf)); err != nil {
		return err
	}
	m.header = h
	if err := m.parseFrames(); err != nil {
		return err
	}
	m.complete = true
	return nil
}

// WriteToBuffer writes the next slice of the message that fits into dst.
// It reports true on the call that writes the last byte and then rewinds, so
// the same message can be written again without encoding it anew.
func (m *ClientMessage) WriteToBuffer(dst Sink) (bool, error) {
	const op = "write message"
	if !m.IsComplete() {
		return false, formatError(op, ErrNotFinalized)
	}
	total := len(m.buf)
	n := min(dst.Available(), total-m.writeOffset)
	if n > 0 {
		w, err := dst.Write(m.buf[m.writeOffset : m.writeOffset+n])
		m.writeOffset += w
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
	if m.writeOffset == total {
		m.writeOffset = 0
		return true, nil
	}
	return false, nil
}

// WriteOffset is the number of bytes handed to a Sink by unfinished writes.
func (m *ClientMessage) WriteOffset() int { return m.writeOffset }
