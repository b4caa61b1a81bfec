package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func named(s string) *Frame { return NewFrame([]byte(s)) }

func TestIterator_SkipNestedStruct(t *testing.T) {
	m := CreateForEncode(0).
		AddFrame(named("A")).
		AddFrame(BeginFrame()).
		AddFrame(named("B")).
		AddFrame(BeginFrame()).
		AddFrame(named("C")).
		AddFrame(EndFrame()).
		AddFrame(named("D")).
		AddFrame(EndFrame()).
		AddFrame(named("E")).
		UpdateFrameLength()

	it := m.Iterator()
	a, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "A", string(a.Bytes))

	require.NoError(t, it.SkipStruct())

	e, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "E", string(e.Bytes))
	require.False(t, it.HasNext())

	_, err = it.Next()
	require.ErrorIs(t, err, ErrNoFrame)
}

func TestIterator_SkipToStructEnd(t *testing.T) {
	m := CreateForEncode(0).
		AddFrame(BeginFrame()).
		AddFrame(named("x")).
		AddFrame(NullFrame()).
		AddFrame(EndFrame()).
		AddFrame(named("after")).
		UpdateFrameLength()

	it := m.Iterator()
	_, err := it.Next()
	require.NoError(t, err)
	require.NoError(t, it.SkipToStructEnd())
	require.Equal(t, "after", string(it.Peek().Bytes))
}

func TestIterator_Unbalanced(t *testing.T) {
	m := CreateForEncode(0).
		AddFrame(BeginFrame()).
		AddFrame(BeginFrame()).
		AddFrame(EndFrame()).
		UpdateFrameLength()

	err := m.Iterator().SkipStruct()
	require.ErrorIs(t, err, ErrStructMismatch)
	require.True(t, IsFormatError(err))
}

func TestIterator_SkipStructRequiresBegin(t *testing.T) {
	m := CreateForEncode(0).AddFrame(named("x")).UpdateFrameLength()
	require.ErrorIs(t, m.Iterator().SkipStruct(), ErrStructMismatch)
	require.ErrorIs(t, CreateForEncode(0).Iterator().SkipStruct(), ErrNoFrame)
}

func TestIterator_Nulls(t *testing.T) {
	m := CreateForEncode(0).
		AddFrame(NullFrame()).
		AddFrame(NullFrame()).
		AddFrame(named("v")).
		AddFrame(EndFrame()).
		UpdateFrameLength()

	it := m.Iterator()
	require.True(t, it.NextIsNull())
	require.True(t, it.SkipNulls())
	require.False(t, it.SkipNulls())
	require.False(t, it.NextIsNull())
	require.False(t, it.NextIsStructEnd())

	v, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "v", string(v.Bytes))
	require.True(t, it.NextIsStructEnd())
}

func TestIterator_DecodedMessage(t *testing.T) {
	src := CreateForEncode(0).
		AddFrame(BeginFrame()).
		AddFrame(named("in")).
		AddFrame(EndFrame()).
		AddFrame(named("out")).
		UpdateFrameLength()

	m, err := CreateForDecode(src.Bytes(), 0)
	require.NoError(t, err)

	it := m.Iterator()
	require.NoError(t, it.SkipStruct())
	f, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "out", string(f.Bytes))
	require.True(t, f.IsFinal())
}
