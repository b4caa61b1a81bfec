// Package codec holds the builtin frame codecs shared by every operation:
// fixed-size scalars, strings, byte arrays, opaque data, nullable values,
// lists and entry lists.
//
// Each value occupies one frame unless stated otherwise. Composite values are
// wrapped in BeginStruct/EndStruct frames so decoders can skip fields they do
// not know with [FastForwardToEndFrame].
//
// Decoders consume frames from a [protocol.Iterator] and fail with a
// [protocol.FormatError] when the frames do not have the expected shape.
package codec

import (
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/codewandler/gridwire-go/core/protocol"
)

const (
	byteSize  = 1
	int16Size = 2
	int32Size = 4
	int64Size = 8
)

func next(it *protocol.Iterator, op string) (*protocol.Frame, error) {
	f, err := it.Next()
	if err != nil {
		return nil, err
	}
	if f.IsNull() {
		return nil, protocol.Errorf(op, protocol.ErrUnexpectedNull, "null frame where a value was expected")
	}
	return f, nil
}

func fixed(it *protocol.Iterator, op string, size int) ([]byte, error) {
	f, err := next(it, op)
	if err != nil {
		return nil, err
	}
	if len(f.Bytes) != size {
		return nil, protocol.Errorf(op, protocol.ErrFrameSize, "got %d bytes want %d", len(f.Bytes), size)
	}
	return f.Bytes, nil
}

func EncodeBool(m *protocol.ClientMessage, v bool) {
	b := []byte{0}
	if v {
		b[0] = 1
	}
	m.AddFrame(protocol.NewFrame(b))
}

func DecodeBool(it *protocol.Iterator) (bool, error) {
	b, err := fixed(it, "decode bool", byteSize)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func EncodeUint16(m *protocol.ClientMessage, v uint16) {
	m.AddFrame(protocol.NewFrame(binary.LittleEndian.AppendUint16(nil, v)))
}

func DecodeUint16(it *protocol.Iterator) (uint16, error) {
	b, err := fixed(it, "decode uint16", int16Size)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func EncodeInt32(m *protocol.ClientMessage, v int32) {
	m.AddFrame(protocol.NewFrame(binary.LittleEndian.AppendUint32(nil, uint32(v))))
}

func DecodeInt32(it *protocol.Iterator) (int32, error) {
	b, err := fixed(it, "decode int32", int32Size)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func EncodeInt64(m *protocol.ClientMessage, v int64) {
	m.AddFrame(protocol.NewFrame(binary.LittleEndian.AppendUint64(nil, uint64(v))))
}

func DecodeInt64(it *protocol.Iterator) (int64, error) {
	b, err := fixed(it, "decode int64", int64Size)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// EncodeString writes s as UTF-8 without a length prefix; the frame length
// delimits it.
func EncodeString(m *protocol.ClientMessage, s string) {
	m.AddFrame(protocol.NewFrame([]byte(s)))
}

func DecodeString(it *protocol.Iterator) (string, error) {
	f, err := next(it, "decode string")
	if err != nil {
		return "", err
	}
	return string(f.Bytes), nil
}

// EncodeByteArray stores b as the frame payload. b must not be modified
// afterwards.
func EncodeByteArray(m *protocol.ClientMessage, b []byte) {
	m.AddFrame(protocol.NewFrame(b))
}

// DecodeByteArray returns a copy of the frame payload.
func DecodeByteArray(it *protocol.Iterator) ([]byte, error) {
	f, err := next(it, "decode byte array")
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(f.Bytes))
	copy(b, f.Bytes)
	return b, nil
}

// EncodeData serializes v with msgpack into a single frame.
func EncodeData(m *protocol.ClientMessage, v any) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	m.AddFrame(protocol.NewFrame(b))
	return nil
}

// DecodeData unmarshals the next frame into v.
func DecodeData(it *protocol.Iterator, v any) error {
	const op = "decode data"
	f, err := next(it, op)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(f.Bytes, v); err != nil {
		return &protocol.FormatError{Op: op, Err: err}
	}
	return nil
}
