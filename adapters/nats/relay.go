package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	natsgo "github.com/nats-io/nats.go"

	"github.com/codewandler/gridwire-go/core/fragment"
	"github.com/codewandler/gridwire-go/core/protocol"
)

var (
	ErrRelayClosed     = errors.New("nats: relay closed")
	ErrSubjectRequired = errors.New("nats: subject required")
)

type RelayOptions struct {
	Connect Connector    // Connect creates the NATS connection. If nil, ConnectDefault() is used.
	Log     *slog.Logger // Log for diagnostics (optional)
	Subject string       // Subject messages are published on and received from
	// Threshold is the largest fragment published. Defaults to, and is capped
	// by, the server's max payload.
	Threshold int
	// IDs numbers published fragment groups. Every publisher on a subject
	// feeds the same subscriber assemblers, so ids must not overlap across
	// publishers. Defaults to fragment.NewRandomSequence.
	IDs     fragment.IDSource
	Metrics fragment.Metrics
}

// Relay carries client messages over a NATS subject. Messages larger than
// the threshold are published as fragments and reassembled by subscribers.
type Relay struct {
	nc       *natsgo.Conn
	closeNc  closeFunc
	log      *slog.Logger
	subject  string
	metrics  fragment.Metrics
	splitter *fragment.Splitter

	mu   sync.Mutex
	subs map[*Subscription]struct{}

	closed atomic.Bool
}

func NewRelay(opts RelayOptions) (*Relay, error) {
	if opts.Subject == "" {
		return nil, ErrSubjectRequired
	}
	connFn := opts.Connect
	if connFn == nil {
		connFn = ConnectDefault()
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	threshold := int(nc.MaxPayload())
	if opts.Threshold > 0 && opts.Threshold < threshold {
		threshold = opts.Threshold
	}
	ids := opts.IDs
	if ids == nil {
		ids = fragment.NewRandomSequence()
	}
	splitter, err := fragment.NewSplitter(fragment.SplitterOptions{
		Threshold: threshold,
		IDs:       ids,
		Metrics:   opts.Metrics,
	})
	if err != nil {
		closeNc()
		return nil, fmt.Errorf("nats: %w", err)
	}

	return &Relay{
		nc:       nc,
		closeNc:  closeNc,
		log:      log.With(slog.String("relay", opts.Subject)),
		subject:  opts.Subject,
		metrics:  opts.Metrics,
		splitter: splitter,
		subs:     make(map[*Subscription]struct{}),
	}, nil
}

// Threshold is the fragment size limit in use.
func (r *Relay) Threshold() int { return r.splitter.Threshold() }

// Publish finalizes msg if needed and publishes it, split into fragments
// when it exceeds the threshold.
func (r *Relay) Publish(msg *protocol.ClientMessage) error {
	if r.closed.Load() {
		return ErrRelayClosed
	}
	if !msg.IsComplete() {
		msg.UpdateFrameLength()
	}
	for _, f := range r.splitter.Split(msg) {
		if err := r.nc.Publish(r.subject, f.Bytes()); err != nil {
			return fmt.Errorf("nats: publish: %w", err)
		}
	}
	return nil
}

// Flush waits until the server has processed everything published so far.
func (r *Relay) Flush(ctx context.Context) error {
	return r.nc.FlushWithContext(ctx)
}

// Subscribe delivers every complete message received on the subject to h.
// The subscription ends when ctx is done or Unsubscribe is called.
func (r *Relay) Subscribe(ctx context.Context, h fragment.Handler) (*Subscription, error) {
	if r.closed.Load() {
		return nil, ErrRelayClosed
	}
	asm, err := fragment.NewAssembler(fragment.AssemblerOptions{
		Handler: h,
		Log:     r.log,
		Metrics: r.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("nats: %w", err)
	}
	s := newSubscription(r, asm)

	s.sub, err = r.nc.Subscribe(r.subject, func(msg *natsgo.Msg) { s.receive(msg.Data) })
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe: %w", err)
	}

	r.mu.Lock()
	r.subs[s] = struct{}{}
	r.mu.Unlock()

	go s.unsubscribeOn(ctx)
	return s, nil
}

func (r *Relay) Close() error {
	if r.closed.Swap(true) {
		return ErrRelayClosed
	}
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()
	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	// the connection may be shared through Shared
	_ = r.nc.Flush()
	r.closeNc()
	return nil
}

type Subscription struct {
	relay *Relay
	sub   *natsgo.Subscription
	asm   *fragment.Assembler
	log   *slog.Logger
	once  sync.Once
	done  chan struct{}
}

func newSubscription(r *Relay, asm *fragment.Assembler) *Subscription {
	return &Subscription{relay: r, asm: asm, log: r.log, done: make(chan struct{})}
}

func (s *Subscription) unsubscribeOn(ctx context.Context) {
	select {
	case <-ctx.Done():
		_ = s.Unsubscribe()
	case <-s.done:
	}
}

// receive runs on the NATS delivery goroutine of the subscription, one
// message at a time.
func (s *Subscription) receive(data []byte) {
	msg, err := protocol.CreateForDecode(data, 0)
	if err != nil {
		s.log.Warn("dropping undecodable message", slog.Any("error", err))
		return
	}
	s.asm.Accept(msg)
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Pending is the number of fragment groups still waiting for their end.
func (s *Subscription) Pending() int { return s.asm.Pending() }

func (s *Subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		if s.sub != nil {
			err = s.sub.Unsubscribe()
		}
		s.asm.Reset()
		s.relay.mu.Lock()
		delete(s.relay.subs, s)
		s.relay.mu.Unlock()
		close(s.done)
	})
	return err
}
