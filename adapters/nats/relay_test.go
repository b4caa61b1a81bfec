package nats

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"golang.org/x/sync/errgroup"

	"github.com/codewandler/gridwire-go/core/fragment"
	"github.com/codewandler/gridwire-go/core/protocol"
)

func relayMessage(corr int32, frames, size int) *protocol.ClientMessage {
	m := protocol.CreateForEncode(0).
		SetMessageType(protocol.UserTypeMin).
		SetCorrelationID(corr).
		SetPartitionID(3)
	for i := range frames {
		m.AddFrame(protocol.NewFrame(bytes.Repeat([]byte{byte(i)}, size)))
	}
	return m.UpdateFrameLength()
}

func testRelay() *Relay {
	return &Relay{log: slog.New(slog.DiscardHandler), subs: make(map[*Subscription]struct{})}
}

func TestSubscription_ReceiveReassembles(t *testing.T) {
	var got []*protocol.ClientMessage
	asm, err := fragment.NewAssembler(fragment.AssemblerOptions{
		Handler: func(m *protocol.ClientMessage) { got = append(got, m) },
	})
	require.NoError(t, err)
	s := newSubscription(testRelay(), asm)

	sp, err := fragment.NewSplitter(fragment.SplitterOptions{Threshold: 128})
	require.NoError(t, err)
	parts := sp.Split(relayMessage(5, 6, 40))
	require.Greater(t, len(parts), 1)

	s.receive([]byte{1, 2, 3})
	for _, p := range parts {
		s.receive(p.Bytes())
	}

	require.Len(t, got, 1)
	require.Equal(t, int32(5), got[0].CorrelationID())
	require.Equal(t, 6, got[0].FrameCount())
	require.Zero(t, s.Pending())
}

func TestSubscription_UnsubscribeStopsWatcher(t *testing.T) {
	r := testRelay()
	asm, err := fragment.NewAssembler(fragment.AssemblerOptions{Handler: func(*protocol.ClientMessage) {}})
	require.NoError(t, err)

	s := newSubscription(r, asm)
	r.subs[s] = struct{}{}
	stopped := make(chan struct{})
	go func() {
		s.unsubscribeOn(t.Context())
		close(stopped)
	}()

	require.NoError(t, s.Unsubscribe())
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher still running after unsubscribe")
	}
	require.Empty(t, r.subs)

	s = newSubscription(r, asm)
	r.subs[s] = struct{}{}
	ctx, cancel := context.WithCancel(t.Context())
	go s.unsubscribeOn(ctx)
	cancel()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription not ended by context")
	}
	require.Empty(t, r.subs)
}

func TestRelay_PublishSubscribe(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	connect := Shared(NewTestContainer(t))

	pub, err := NewRelay(RelayOptions{Connect: connect, Subject: "gridwire.test", Threshold: 256})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })
	require.Equal(t, 256, pub.Threshold())

	sub, err := NewRelay(RelayOptions{Connect: connect, Subject: "gridwire.test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	got := make(chan *protocol.ClientMessage, 8)
	s, err := sub.Subscribe(t.Context(), func(m *protocol.ClientMessage) { got <- m })
	require.NoError(t, err)
	require.NoError(t, sub.Flush(t.Context()))

	for corr := range int32(3) {
		require.NoError(t, pub.Publish(relayMessage(corr, 8, 100)))
	}
	require.NoError(t, pub.Flush(t.Context()))

	for corr := range int32(3) {
		select {
		case m := <-got:
			require.Equal(t, corr, m.CorrelationID())
			require.Equal(t, 8, m.FrameCount())
			require.Equal(t, bytes.Repeat([]byte{7}, 100), m.LastFrame().Bytes)
		case <-time.After(5 * time.Second):
			t.Fatalf("message %d not delivered", corr)
		}
	}
	require.Zero(t, s.Pending())

	require.NoError(t, s.Unsubscribe())
	require.NoError(t, s.Unsubscribe())
}

func TestRelay_ConcurrentPublishers(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	connect := Shared(NewTestContainer(t))
	const subject, perPublisher = "gridwire.publishers", 20

	sub, err := NewRelay(RelayOptions{Connect: connect, Subject: subject})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	got := make(chan *protocol.ClientMessage, 2*perPublisher)
	_, err = sub.Subscribe(t.Context(), func(m *protocol.ClientMessage) { got <- m })
	require.NoError(t, err)
	require.NoError(t, sub.Flush(t.Context()))

	var g errgroup.Group
	for p := range int32(2) {
		pub, err := NewRelay(RelayOptions{Connect: connect, Subject: subject, Threshold: 128})
		require.NoError(t, err)
		t.Cleanup(func() { _ = pub.Close() })
		g.Go(func() error {
			for i := range int32(perPublisher) {
				if err := pub.Publish(relayMessage(p*1000+i, 6, 60)); err != nil {
					return err
				}
			}
			return pub.Flush(t.Context())
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int32]bool)
	for range 2 * perPublisher {
		select {
		case m := <-got:
			require.Equal(t, 6, m.FrameCount())
			require.Equal(t, bytes.Repeat([]byte{5}, 60), m.LastFrame().Bytes)
			seen[m.CorrelationID()] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of %d messages", len(seen), 2*perPublisher)
		}
	}
	require.Len(t, seen, 2*perPublisher)
}

func TestNewRelay_RequiresSubject(t *testing.T) {
	_, err := NewRelay(RelayOptions{})
	require.ErrorIs(t, err, ErrSubjectRequired)
}
