package protocol

import (
	"encoding/binary"
	"fmt"
)

// Header field offsets, cumulative from the start of the message.
const (
	FrameLengthOffset   = 0
	VersionOffset       = 4
	FlagsOffset         = 5
	TypeOffset          = 6
	CorrelationIDOffset = 8
	PartitionIDOffset   = 12
	DataOffsetOffset    = 16
	HeaderSize          = 18
)

const (
	// Version is the only protocol version this package speaks.
	Version uint8 = 1
	// NoPartition is the partition id of messages without partition affinity.
	NoPartition int32 = -1
)

// Header is the fixed header that precedes the frames of every message.
type Header struct {
	FrameLength   int32
	Version       uint8
	Flags         MessageFlags
	MessageType   uint16
	CorrelationID int32
	PartitionID   int32
	DataOffset    uint16
}

// EncodeHeader writes h into the first HeaderSize bytes of dst.
func EncodeHeader(dst []byte, h Header) error {
	if len(dst) < HeaderSize {
		return formatErrorf("encode header", ErrShortHeader, "need %d bytes, have %d", HeaderSize, len(dst))
	}
	binary.LittleEndian.PutUint32(dst[FrameLengthOffset:], uint32(h.FrameLength))
	dst[VersionOffset] = h.Version
	dst[FlagsOffset] = byte(h.Flags)
	binary.LittleEndian.PutUint16(dst[TypeOffset:], h.MessageType)
	binary.LittleEndian.PutUint32(dst[CorrelationIDOffset:], uint32(h.CorrelationID))
	binary.LittleEndian.PutUint32(dst[PartitionIDOffset:], uint32(h.PartitionID))
	binary.LittleEndian.PutUint16(dst[DataOffsetOffset:], h.DataOffset)
	return nil
}

// DecodeHeader parses the header at the start of b without validating it.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, formatErrorf("decode header", ErrShortHeader, "need %d bytes, have %d", HeaderSize, len(b))
	}
	return Header{
		FrameLength:   int32(binary.LittleEndian.Uint32(b[FrameLengthOffset:])),
		Version:       b[VersionOffset],
		Flags:         MessageFlags(b[FlagsOffset]),
		MessageType:   binary.LittleEndian.Uint16(b[TypeOffset:]),
		CorrelationID: int32(binary.LittleEndian.Uint32(b[CorrelationIDOffset:])),
		PartitionID:   int32(binary.LittleEndian.Uint32(b[PartitionIDOffset:])),
		DataOffset:    binary.LittleEndian.Uint16(b[DataOffsetOffset:]),
	}, nil
}

// validate checks h against the number of bytes actually available.
func (h Header) validate(available int) error {
	const op = "decode header"
	if h.Version != Version {
		return formatErrorf(op, ErrUnsupportedVersion, "got %d want %d", h.Version, Version)
	}
	if h.FrameLength < HeaderSize {
		return formatErrorf(op, ErrFrameLength, "frame length %d below header size", h.FrameLength)
	}
	if int(h.FrameLength) > available {
		return formatErrorf(op, ErrFrameLength, "frame length %d exceeds %d available bytes", h.FrameLength, available)
	}
	if h.DataOffset < HeaderSize || int32(h.DataOffset) > h.FrameLength {
		return formatErrorf(op, ErrDataOffset, "data offset %d outside [%d,%d]", h.DataOffset, HeaderSize, h.FrameLength)
	}
	return nil
}

func (h Header) String() string {
	return fmt.Sprintf(
		"len=%d ver=%d flags=%s type=%d corr=%d part=%d off=%d",
		h.FrameLength, h.Version, h.Flags, h.MessageType, h.CorrelationID, h.PartitionID, h.DataOffset,
	)
}
