package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/gridwire-go/core/protocol"
)

// reread finalizes m and decodes it from its wire bytes.
func reread(t *testing.T, m *protocol.ClientMessage) *protocol.Iterator {
	t.Helper()
	dec, err := protocol.CreateForDecode(m.UpdateFrameLength().Bytes(), 0)
	require.NoError(t, err)
	return dec.Iterator()
}

type point struct {
	X, Y int
	Tag  string
}

func TestScalars(t *testing.T) {
	m := protocol.CreateForEncode(0)
	EncodeBool(m, true)
	EncodeUint16(m, 0xbeef)
	EncodeInt32(m, -42)
	EncodeInt64(m, 1<<40)
	EncodeString(m, "héllo")
	EncodeString(m, "")
	EncodeByteArray(m, []byte{9, 8, 7})
	require.NoError(t, EncodeData(m, point{X: 1, Y: 2, Tag: "p"}))

	it := reread(t, m)

	b, err := DecodeBool(it)
	require.NoError(t, err)
	require.True(t, b)

	u, err := DecodeUint16(it)
	require.NoError(t, err)
	require.Equal(t, uint16(0xbeef), u)

	i32, err := DecodeInt32(it)
	require.NoError(t, err)
	require.Equal(t, int32(-42), i32)

	i64, err := DecodeInt64(it)
	require.NoError(t, err)
	require.Equal(t, int64(1<<40), i64)

	s, err := DecodeString(it)
	require.NoError(t, err)
	require.Equal(t, "héllo", s)

	s, err = DecodeString(it)
	require.NoError(t, err)
	require.Empty(t, s)

	ba, err := DecodeByteArray(it)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 8, 7}, ba)

	var p point
	require.NoError(t, DecodeData(it, &p))
	require.Equal(t, point{X: 1, Y: 2, Tag: "p"}, p)

	require.False(t, it.HasNext())
}

func TestByteArray_EmptyIsNotNull(t *testing.T) {
	m := protocol.CreateForEncode(0)
	EncodeByteArray(m, nil)
	EncodeByteArray(m, []byte{})

	it := reread(t, m)
	for range 2 {
		b, err := DecodeByteArray(it)
		require.NoError(t, err)
		require.NotNil(t, b)
		require.Equal(t, []byte{}, b)
	}
}

func TestFixedSizeMismatch(t *testing.T) {
	m := protocol.CreateForEncode(0)
	EncodeInt32(m, 1)
	_, err := DecodeInt64(reread(t, m))
	require.ErrorIs(t, err, protocol.ErrFrameSize)
	require.True(t, protocol.IsFormatError(err))
}

func TestUnexpectedNull(t *testing.T) {
	m := protocol.CreateForEncode(0)
	EncodeNullable[string](m, nil, EncodeString)
	_, err := DecodeString(reread(t, m))
	require.ErrorIs(t, err, protocol.ErrUnexpectedNull)
}

func TestNullable(t *testing.T) {
	v := int64(7)
	m := protocol.CreateForEncode(0)
	EncodeNullable[int64](m, nil, EncodeInt64)
	EncodeNullable(m, &v, EncodeInt64)

	it := reread(t, m)
	got, err := DecodeNullable(it, DecodeInt64)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = DecodeNullable(it, DecodeInt64)
	require.NoError(t, err)
	require.Equal(t, int64(7), *got)
}

func TestList(t *testing.T) {
	nested := [][]string{{"a", "b"}, {}, {"c"}}
	encInner := func(m *protocol.ClientMessage, v []string) { EncodeList(m, v, EncodeString) }
	decInner := func(it *protocol.Iterator) ([]string, error) { return DecodeList(it, DecodeString) }

	m := protocol.CreateForEncode(0)
	EncodeList(m, nested, encInner)
	EncodeString(m, "after")

	it := reread(t, m)
	got, err := DecodeList(it, decInner)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"a", "b"}, got[0])
	require.Empty(t, got[1])
	require.Equal(t, []string{"c"}, got[2])

	s, err := DecodeString(it)
	require.NoError(t, err)
	require.Equal(t, "after", s)
}

func TestNullableList(t *testing.T) {
	m := protocol.CreateForEncode(0)
	EncodeNullableList[int32](m, nil, EncodeInt32)
	EncodeNullableList(m, []int32{}, EncodeInt32)

	it := reread(t, m)
	got, err := DecodeNullableList(it, DecodeInt32)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = DecodeNullableList(it, DecodeInt32)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestListErrors(t *testing.T) {
	m := protocol.CreateForEncode(0)
	EncodeInt32(m, 1)
	_, err := DecodeList(reread(t, m), DecodeInt32)
	require.ErrorIs(t, err, protocol.ErrStructMismatch)

	m = protocol.CreateForEncode(0)
	m.AddFrame(protocol.BeginFrame())
	EncodeInt32(m, 1)
	_, err = DecodeList(reread(t, m), DecodeInt32)
	require.ErrorIs(t, err, protocol.ErrStructMismatch)
}

func TestEntryList(t *testing.T) {
	entries := []Entry[string, int64]{{"a", 1}, {"b", 2}}
	m := protocol.CreateForEncode(0)
	EncodeEntryList(m, entries, EncodeString, EncodeInt64)

	got, err := DecodeEntryList(reread(t, m), DecodeString, DecodeInt64)
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

func TestErrorHolderSkipsUnknownFields(t *testing.T) {
	msg := "boom"
	m := protocol.CreateForEncode(0)
	m.AddFrame(protocol.BeginFrame())
	EncodeInt32(m, 3)
	EncodeString(m, "IllegalState")
	EncodeNullable(m, &msg, EncodeString)
	// fields a newer server might add
	EncodeInt64(m, 99)
	EncodeList(m, []string{"x"}, EncodeString)
	m.AddFrame(protocol.EndFrame())
	EncodeString(m, "next")

	it := reread(t, m)
	e, err := DecodeErrorHolder(it)
	require.NoError(t, err)
	require.Equal(t, int32(3), e.Code)
	require.Equal(t, "IllegalState", e.ClassName)
	require.Equal(t, "boom", *e.Message)

	s, err := DecodeString(it)
	require.NoError(t, err)
	require.Equal(t, "next", s)
}

func TestException(t *testing.T) {
	msg := "key not found"
	m := EncodeException(55,
		ErrorHolder{Code: 1, ClassName: "NotFound", Message: &msg},
		ErrorHolder{Code: 2, ClassName: "Cause"},
	)
	require.Equal(t, protocol.ResponseException, m.MessageType())
	require.Equal(t, int32(55), m.CorrelationID())

	dec, err := protocol.CreateForDecode(m.Bytes(), 0)
	require.NoError(t, err)
	holders, err := DecodeException(dec)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	require.Equal(t, "NotFound", holders[0].ClassName)
	require.Equal(t, msg, *holders[0].Message)
	require.Nil(t, holders[1].Message)
}
