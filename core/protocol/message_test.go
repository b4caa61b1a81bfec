package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func payload(n int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, n)
}

func encodeSample() *ClientMessage {
	m := CreateForEncode(0).
		SetMessageType(789).
		SetCorrelationID(456).
		SetPartitionID(123)
	for i := 0; i < 3; i++ {
		m.AddFrame(NewFrame(payload(64, byte('a'+i))))
	}
	return m.UpdateFrameLength()
}

func TestClientMessage_EndToEnd(t *testing.T) {
	m := encodeSample()
	require.Equal(t, int32(HeaderSize+3*FrameHeaderSize+192), m.FrameLength())
	require.Equal(t, int32(228), m.FrameLength())
	require.True(t, m.IsComplete())

	dec, err := CreateForDecode(m.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, uint16(789), dec.MessageType())
	require.Equal(t, int32(456), dec.CorrelationID())
	require.Equal(t, int32(123), dec.PartitionID())
	require.Equal(t, uint16(HeaderSize), dec.DataOffset())
	require.Equal(t, 3, dec.FrameCount())
	for f := range dec.All() {
		require.Len(t, f.Bytes, 64)
	}
	require.True(t, dec.LastFrame().IsFinal())
	require.False(t, dec.FirstFrame().IsFinal())
}

func TestClientMessage_RoundTripStructuralFrames(t *testing.T) {
	m := CreateForEncode(16).
		SetMessageType(UserTypeMin + 7).
		SetCorrelationID(-12).
		SetFlags(MsgEvent | MsgUnfragmented)
	m.AddFrame(NewFrame(nil)).
		AddFrame(NullFrame()).
		AddFrame(BeginFrame()).
		AddFrame(NewFrameWithFlags([]byte{1, 2, 3}, FlagBackupAware)).
		AddFrame(EndFrame()).
		AddFrame(NewFrame([]byte("tail"))).
		UpdateFrameLength()
	m.SetRetryable(true)

	dec, err := CreateForDecode(m.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, m.Header(), dec.Header())
	require.True(t, dec.IsEvent())
	require.False(t, dec.IsRetryable(), "retryable is local only")

	var want, got []*Frame
	for f := range m.All() {
		want = append(want, f)
	}
	for f := range dec.All() {
		got = append(got, f)
	}
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Flags, got[i].Flags, "frame %d flags", i)
		require.True(t, bytes.Equal(want[i].Bytes, got[i].Bytes), "frame %d bytes", i)
	}
}

func TestClientMessage_CreateForEncodeDefaults(t *testing.T) {
	m := CreateForEncode(100)
	require.Equal(t, 128, cap(m.Bytes()))
	require.Equal(t, HeaderSize, m.Size())
	require.Equal(t, NoPartition, m.PartitionID())
	require.Equal(t, uint16(HeaderSize), m.DataOffset())
	require.Equal(t, Version, m.Version())
	require.False(t, m.IsComplete())

	m.UpdateFrameLength()
	require.True(t, m.IsComplete())
	require.Equal(t, int32(HeaderSize), m.FrameLength())
	require.Nil(t, m.FirstFrame())
}

func TestClientMessage_SettersUpdateBytes(t *testing.T) {
	m := CreateForEncode(0).UpdateFrameLength()
	m.SetCorrelationID(99).SetMessageType(5).SetPartitionID(7)

	b := m.Bytes()
	require.Equal(t, uint32(99), binary.LittleEndian.Uint32(b[CorrelationIDOffset:]))
	require.Equal(t, uint16(5), binary.LittleEndian.Uint16(b[TypeOffset:]))
	require.Equal(t, uint32(7), binary.LittleEndian.Uint32(b[PartitionIDOffset:]))
}

func TestClientMessage_AddFrameAfterFinalize(t *testing.T) {
	m := CreateForEncode(0).AddFrame(NewFrame([]byte("a"))).UpdateFrameLength()
	first := m.FirstFrame()
	require.True(t, first.IsFinal())

	m.AddFrame(NewFrame([]byte("b")))
	require.False(t, first.IsFinal())
	require.False(t, m.IsComplete())

	m.UpdateFrameLength()
	dec, err := CreateForDecode(m.Bytes(), 0)
	require.NoError(t, err)
	require.False(t, dec.FirstFrame().IsFinal())
	require.True(t, dec.LastFrame().IsFinal())
}

func TestClientMessage_DecodeAtOffset(t *testing.T) {
	m := encodeSample()
	buf := append([]byte{0xde, 0xad}, m.Bytes()...)
	buf = append(buf, 0xff)

	dec, err := CreateForDecode(buf, 2)
	require.NoError(t, err)
	require.Equal(t, m.FrameLength(), dec.FrameLength())
	require.Equal(t, 3, dec.FrameCount())
}

func TestClientMessage_DecodeErrors(t *testing.T) {
	valid := encodeSample().Bytes()

	corrupt := func(fn func(b []byte)) []byte {
		b := append([]byte(nil), valid...)
		fn(b)
		return b
	}

	cases := []struct {
		name string
		buf  []byte
		off  int
		want error
	}{
		{"short", valid[:HeaderSize-1], 0, ErrShortHeader},
		{"short from offset", valid, len(valid) - 4, ErrShortHeader},
		{"negative offset", valid, -1, ErrShortHeader},
		{"frame length below header", corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[FrameLengthOffset:], 3)
		}), 0, ErrFrameLength},
		{"frame length beyond buffer", corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[FrameLengthOffset:], uint32(len(b)+1))
		}), 0, ErrFrameLength},
		{"version", corrupt(func(b []byte) { b[VersionOffset] = 9 }), 0, ErrUnsupportedVersion},
		{"data offset", corrupt(func(b []byte) {
			binary.LittleEndian.PutUint16(b[DataOffsetOffset:], 2)
		}), 0, ErrDataOffset},
		{"frame header length", corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[HeaderSize:], 2)
		}), 0, ErrFrameHeader},
		{"frame overruns message", corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[HeaderSize:], 10_000)
		}), 0, ErrFrameHeader},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateForDecode(tc.buf, tc.off)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, ErrFormat)
			require.True(t, IsFormatError(err))

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
		})
	}
}

func TestClientMessage_TruncatedTrailingFrameHeader(t *testing.T) {
	m := CreateForEncode(0).AddFrame(NewFrame([]byte("x"))).UpdateFrameLength()
	b := append([]byte(nil), m.Bytes()...)
	b = append(b, 1, 2, 3)
	binary.LittleEndian.PutUint32(b[FrameLengthOffset:], uint32(len(b)))

	_, err := CreateForDecode(b, 0)
	require.ErrorIs(t, err, ErrFrameHeader)
}

func TestClientMessage_CopyWithNewCorrelationID(t *testing.T) {
	m := encodeSample().SetRetryable(true).SetOperationName("Map.Put")
	c := m.CopyWithNewCorrelationID(1001)

	require.Equal(t, int32(1001), c.CorrelationID())
	require.Equal(t, int32(456), m.CorrelationID())
	require.Equal(t, m.FrameLength(), c.FrameLength())
	require.True(t, c.IsRetryable())
	require.Equal(t, "Map.Put", c.OperationName())

	dec, err := CreateForDecode(c.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, m.MessageType(), dec.MessageType())
	require.Equal(t, m.FrameCount(), dec.FrameCount())
}

func TestFrame_LinkOnce(t *testing.T) {
	m := CreateForEncode(0)
	f := NewFrame([]byte("x"))
	m.AddFrame(f).AddFrame(NewFrame(nil))

	require.Panics(t, func() { CreateForEncode(0).AddFrame(f) })
	require.Panics(t, func() {
		g := NewFrame(nil)
		g.link(g)
	})
}

func TestFrame_Predicates(t *testing.T) {
	require.True(t, NullFrame().IsNull())
	require.Empty(t, NullFrame().Bytes)
	require.True(t, BeginFrame().IsBeginStruct())
	require.True(t, EndFrame().IsEndStruct())

	f := NewFrameWithFlags(nil, FlagUnfragmented|FlagIsEvent|FlagFinal)
	require.True(t, f.IsBeginFragment())
	require.True(t, f.IsEndFragment())
	require.True(t, f.IsEvent())
	require.True(t, f.IsFinal())
	require.False(t, f.IsNull())
	require.Equal(t, FrameHeaderSize, f.Size())
	require.Equal(t, "BEGIN_FRAGMENT|END_FRAGMENT|FINAL|EVENT", f.Flags.String())

	c := f.CopyWithFlags(FlagDefault)
	require.Equal(t, "DEFAULT", c.Flags.String())
	require.Nil(t, c.Next())
}

func TestClassifyMessageType(t *testing.T) {
	require.Equal(t, KindResponse, ClassifyMessageType(ResponseVoid))
	require.Equal(t, KindResponse, ClassifyMessageType(ResponseSetEntry))
	require.Equal(t, KindEvent, ClassifyMessageType(EventMember))
	require.Equal(t, KindEvent, ClassifyMessageType(EventQueryCacheBatch))
	require.Equal(t, KindReserved, ClassifyMessageType(550))
	require.Equal(t, KindUser, ClassifyMessageType(UserTypeMin))
	require.Equal(t, KindRequest, ClassifyMessageType(115))
	require.Equal(t, "EXCEPTION", TypeName(ResponseException))
	require.Equal(t, "user(4242)", TypeName(4242))
}
