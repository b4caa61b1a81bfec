package client

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/gridwire-go/core/protocol"
	"github.com/codewandler/gridwire-go/core/wire"
)

// MemberFunc answers one request. A nil response sends nothing.
type MemberFunc func(c *wire.Conn, req *protocol.ClientMessage) *protocol.ClientMessage

// StartTestMember serves h on a loopback port until the test ends and
// returns the address.
func StartTestMember(t *testing.T, h MemberFunc) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- wire.Serve(ctx, ln, wire.ConnOptions{
			Handler: func(c *wire.Conn, req *protocol.ClientMessage) {
				if resp := h(c, req); resp != nil {
					go func() { _ = c.Send(ctx, resp) }()
				}
			},
		})
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return ln.Addr().String()
}

// Respond builds a response to req of type respType with the given frames.
func Respond(req *protocol.ClientMessage, respType uint16, frames ...*protocol.Frame) *protocol.ClientMessage {
	m := protocol.CreateForEncode(0).
		SetMessageType(respType).
		SetCorrelationID(req.CorrelationID()).
		SetPartitionID(req.PartitionID())
	for _, f := range frames {
		m.AddFrame(f)
	}
	return m.UpdateFrameLength()
}

// Event builds an event for the registration registrationID.
func Event(registrationID, partitionID int32, eventType uint16, frames ...*protocol.Frame) *protocol.ClientMessage {
	m := protocol.CreateForEncode(0).
		SetMessageType(eventType).
		SetCorrelationID(registrationID).
		SetPartitionID(partitionID).
		AddFlags(protocol.MsgEvent)
	for _, f := range frames {
		m.AddFrame(f)
	}
	return m.UpdateFrameLength()
}
