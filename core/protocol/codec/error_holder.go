package codec

import (
	"github.com/codewandler/gridwire-go/core/protocol"
)

// ErrorHolder is one entry of an exception response: the server-side error
// code, the remote error class and its message.
type ErrorHolder struct {
	Code      int32
	ClassName string
	Message   *string
}

func EncodeErrorHolder(m *protocol.ClientMessage, e ErrorHolder) {
	m.AddFrame(protocol.BeginFrame())
	EncodeInt32(m, e.Code)
	EncodeString(m, e.ClassName)
	EncodeNullable(m, e.Message, EncodeString)
	m.AddFrame(protocol.EndFrame())
}

// DecodeErrorHolder reads the fields it knows and skips any newer trailing
// fields a server may append.
func DecodeErrorHolder(it *protocol.Iterator) (ErrorHolder, error) {
	var e ErrorHolder
	if err := expectBegin(it, "decode error holder"); err != nil {
		return e, err
	}
	var err error
	if e.Code, err = DecodeInt32(it); err != nil {
		return e, err
	}
	if e.ClassName, err = DecodeString(it); err != nil {
		return e, err
	}
	if e.Message, err = DecodeNullable(it, DecodeString); err != nil {
		return e, err
	}
	return e, FastForwardToEndFrame(it)
}

// EncodeException builds a complete exception response for correlationID.
func EncodeException(correlationID int32, holders ...ErrorHolder) *protocol.ClientMessage {
	m := protocol.CreateForEncode(0).
		SetMessageType(protocol.ResponseException).
		SetCorrelationID(correlationID)
	EncodeList(m, holders, EncodeErrorHolder)
	return m.UpdateFrameLength()
}

// DecodeException reads the error holders of an exception response.
func DecodeException(m *protocol.ClientMessage) ([]ErrorHolder, error) {
	return DecodeList(m.Iterator(), DecodeErrorHolder)
}
