package wire

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/gridwire-go/core/protocol"
)

func pipe(t *testing.T, a, b ConnOptions) (*Conn, *Conn) {
	t.Helper()
	ncA, ncB := net.Pipe()
	ca, err := NewConn(ncA, a)
	require.NoError(t, err)
	cb, err := NewConn(ncB, b)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ca.Close()
		_ = cb.Close()
	})
	return ca, cb
}

func collect(ch chan<- *protocol.ClientMessage) Handler {
	return func(_ *Conn, msg *protocol.ClientMessage) { ch <- msg }
}

func echo(c *Conn, msg *protocol.ClientMessage) {
	reply := protocol.CreateForEncode(msg.Size()).
		SetMessageType(protocol.ResponseData).
		SetCorrelationID(msg.CorrelationID())
	for f := range msg.All() {
		reply.AddFrame(f.CopyWithFlags(f.Flags &^ protocol.FlagFinal))
	}
	go func() { _ = c.Send(context.Background(), reply) }()
}

func bigMessage(corr int32, frames, size int) *protocol.ClientMessage {
	m := protocol.CreateForEncode(0).SetMessageType(protocol.UserTypeMin).SetCorrelationID(corr)
	for i := range frames {
		m.AddFrame(protocol.NewFrame(bytes.Repeat([]byte{byte(i)}, size)))
	}
	return m.UpdateFrameLength()
}

func recv(t *testing.T, ch <-chan *protocol.ClientMessage) *protocol.ClientMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestConn_FragmentedEcho(t *testing.T) {
	got := make(chan *protocol.ClientMessage, 4)
	a, _ := pipe(t,
		ConnOptions{Handler: collect(got), FragmentThreshold: 256, WriteBufferSize: 64, ReadBufferSize: 50},
		ConnOptions{Handler: echo, FragmentThreshold: 300},
	)

	for corr := range int32(3) {
		require.NoError(t, a.Send(t.Context(), bigMessage(corr, 10, 100)))
	}

	seen := make(map[int32]bool)
	for range 3 {
		m := recv(t, got)
		require.Equal(t, protocol.ResponseData, m.MessageType())
		require.Equal(t, 10, m.FrameCount())
		i := 0
		for f := range m.All() {
			require.Equal(t, bytes.Repeat([]byte{byte(i)}, 100), f.Bytes)
			i++
		}
		seen[m.CorrelationID()] = true
	}
	require.Len(t, seen, 3)
	require.Zero(t, a.PendingFragments())
}

func TestConn_SendFinalizes(t *testing.T) {
	got := make(chan *protocol.ClientMessage, 1)
	a, _ := pipe(t, ConnOptions{Handler: func(*Conn, *protocol.ClientMessage) {}}, ConnOptions{Handler: collect(got)})

	m := protocol.CreateForEncode(0).SetCorrelationID(9).AddFrame(protocol.NewFrame([]byte("x")))
	require.NoError(t, a.Send(t.Context(), m))

	r := recv(t, got)
	require.Equal(t, int32(9), r.CorrelationID())
	require.Equal(t, protocol.MsgUnfragmented, r.Flags().Role())
	require.True(t, r.LastFrame().IsFinal())
}

func TestConn_Close(t *testing.T) {
	a, b := pipe(t, ConnOptions{Handler: echo}, ConnOptions{Handler: echo})

	require.NoError(t, a.Close())
	<-a.Done()
	require.ErrorIs(t, a.Err(), ErrClosed)
	require.ErrorIs(t, a.Send(t.Context(), bigMessage(1, 1, 1)), ErrClosed)

	select {
	case <-b.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("peer did not notice close")
	}
	require.Error(t, b.Err())
}

func TestConn_SendAfterCloseAlwaysFails(t *testing.T) {
	for i := range 200 {
		a, _ := pipe(t, ConnOptions{Handler: echo}, ConnOptions{Handler: echo})
		require.NoError(t, a.Close())
		require.ErrorIs(t, a.Send(t.Context(), bigMessage(int32(i), 1, 1)), ErrClosed, "iteration %d", i)
	}
}

func TestConn_ProtocolErrorCloses(t *testing.T) {
	raw, nc := net.Pipe()
	c, err := NewConn(nc, ConnOptions{Handler: echo, MaxFrameLength: 1024})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(); _ = raw.Close() })

	hdr := make([]byte, protocol.HeaderSize)
	binary.LittleEndian.PutUint32(hdr, 1<<20)
	go func() { _, _ = raw.Write(hdr) }()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection stayed open")
	}
	require.ErrorIs(t, c.Err(), protocol.ErrFrameTooLarge)
	require.True(t, protocol.IsFormatError(c.Err()))
}

func TestNewConn_RequiresHandler(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	_, err := NewConn(a, ConnOptions{})
	require.ErrorIs(t, err, ErrHandlerRequired)
}
