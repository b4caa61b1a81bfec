// Package protocol implements the client message model of the cluster wire protocol.
//
// A [ClientMessage] is a fixed 18-byte header followed by a chain of [Frame]
// values. Every frame is self-delimiting on the wire:
//
//	+-------------------+-----------------+---------------+
//	| length (int32 LE) | flags (uint16)  | payload ...   |
//	+-------------------+-----------------+---------------+
//
// where length counts the 6-byte frame header plus the payload. The message
// header layout is:
//
//	offset  size  field
//	0       4     FrameLength   (int32, whole message including header)
//	4       1     Version
//	5       1     Flags         (fragment role, event marker)
//	6       2     MessageType
//	8       4     CorrelationID
//	12      4     PartitionID   (-1 when the message has no partition affinity)
//	16      2     DataOffset
//
// All integers are little-endian.
//
// # Encoding
//
// Codecs build requests with [CreateForEncode], append frames with
// [ClientMessage.AddFrame] and seal the message with
// [ClientMessage.UpdateFrameLength]. Structured values are wrapped in
// [BeginFrame] / [EndFrame] pairs, absent values are written as [NullFrame].
//
// # Decoding
//
// [CreateForDecode] wraps a complete buffer. For socket reads use
// [CreateForRead] and feed bytes with [ClientMessage.ReadFromBuffer] until it
// reports completion. Decoders walk the frames with an [Iterator].
//
// # Errors
//
// Corrupt input yields a [*FormatError] which matches [ErrFormat] with
// errors.Is. Such errors are not retried; the connection owning the stream
// should be torn down.
package protocol
