package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader_EncodeDecode(t *testing.T) {
	h := Header{
		FrameLength:   1 << 20,
		Version:       Version,
		Flags:         MsgBeginFragment | MsgEvent,
		MessageType:   0xfffe,
		CorrelationID: -7,
		PartitionID:   NoPartition,
		DataOffset:    HeaderSize,
	}
	b := make([]byte, HeaderSize)
	require.NoError(t, EncodeHeader(b, h))
	require.Equal(t, []byte{0x00, 0x00, 0x10, 0x00}, b[:4])
	require.Equal(t, byte(0x81), b[FlagsOffset])
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, b[PartitionIDOffset:PartitionIDOffset+4])

	got, err := DecodeHeader(b)
	require.NoError(t, err)
	require.Equal(t, h, got)

	require.ErrorIs(t, EncodeHeader(make([]byte, 3), h), ErrShortHeader)
	_, err = DecodeHeader(b[:HeaderSize-1])
	require.ErrorIs(t, err, ErrShortHeader)
}

func TestMessageFlags(t *testing.T) {
	require.Equal(t, "UNFRAGMENTED", MsgUnfragmented.String())
	require.Equal(t, "BEGIN|EVENT", (MsgBeginFragment | MsgEvent).String())
	require.Equal(t, "END", MsgEndFragment.String())
	require.Equal(t, "MIDDLE|BACKUP_AWARE", MsgBackupAware.String())
	require.Equal(t, MsgBeginFragment, (MsgBeginFragment | MsgBackupEvent).Role())
	require.True(t, MsgUnfragmented.Has(MsgEndFragment))
	require.False(t, MsgBeginFragment.Has(MsgUnfragmented))
}
