package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/gridwire-go/core/protocol"
	"github.com/codewandler/gridwire-go/core/protocol/codec"
	"github.com/codewandler/gridwire-go/core/sf"
	"github.com/codewandler/gridwire-go/core/wire"
	"github.com/codewandler/gridwire-go/internal/hrw"
	"github.com/codewandler/gridwire-go/internal/partition"
	"github.com/codewandler/gridwire-go/internal/stripe"
)

const (
	DefaultInvocationTimeout = 2 * time.Minute
	DefaultRetryLimit        = 3
	DefaultRetryBackoff      = 100 * time.Millisecond
	DefaultEventWorkers      = 8
)

type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

type Options struct {
	// Addresses of the members, host:port. Required.
	Addresses []string
	// Seed separates the member placement of clusters sharing addresses.
	Seed string
	// Dial opens the transport connection. Defaults to TCP.
	Dial DialFunc
	// Conn is the template for every member connection. Handler and Log are
	// set by the client.
	Conn wire.ConnOptions

	InvocationTimeout time.Duration
	// RetryLimit is the number of extra attempts for retryable requests
	// after a connection loss. Negative disables retries.
	RetryLimit   int
	RetryBackoff time.Duration

	PartitionCount int32
	// EventWorkers is the number of stripes events are dispatched on.
	EventWorkers int

	Log     *slog.Logger
	Metrics Metrics
}

// EventHandler receives the events of one listener registration. Events of
// the same partition are delivered one at a time in arrival order.
type EventHandler func(event *protocol.ClientMessage)

type invocation struct {
	conn *wire.Conn
	resp chan *protocol.ClientMessage
	lost chan error
}

// Client sends requests to cluster members and routes their responses and
// events back to the callers.
type Client struct {
	name       string
	addrs      []string
	seed       string
	dial       DialFunc
	connOpts   wire.ConnOptions
	timeout    time.Duration
	retryLimit int
	backoff    time.Duration
	partitions int32
	log        *slog.Logger
	metrics    Metrics

	corr   atomic.Int32
	dials  *sf.Singleflight[wire.Conn]
	events *stripe.Executor

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	conns     map[string]*wire.Conn
	pending   map[int32]*invocation
	listeners map[int32]EventHandler
}

func New(opts Options) (*Client, error) {
	if len(opts.Addresses) == 0 {
		return nil, ErrNoAddresses
	}
	dial := opts.Dial
	if dial == nil {
		var d net.Dialer
		dial = func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	timeout := opts.InvocationTimeout
	if timeout <= 0 {
		timeout = DefaultInvocationTimeout
	}
	retryLimit := opts.RetryLimit
	switch {
	case retryLimit == 0:
		retryLimit = DefaultRetryLimit
	case retryLimit < 0:
		retryLimit = 0
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	partitions := opts.PartitionCount
	if partitions <= 0 {
		partitions = partition.DefaultCount
	}
	workers := opts.EventWorkers
	if workers <= 0 {
		workers = DefaultEventWorkers
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = NopMetrics()
	}

	name := "gridwire-" + gonanoid.Must(6)
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		name:       name,
		addrs:      append([]string(nil), opts.Addresses...),
		seed:       opts.Seed,
		dial:       dial,
		connOpts:   opts.Conn,
		timeout:    timeout,
		retryLimit: retryLimit,
		backoff:    backoff,
		partitions: partitions,
		log:        log.With(slog.String("client", name)),
		metrics:    m,
		dials:      sf.New[wire.Conn](),
		events:     stripe.New(stripe.WithWorkers(workers)),
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[string]*wire.Conn),
		pending:    make(map[int32]*invocation),
		listeners:  make(map[int32]EventHandler),
	}, nil
}

// Name identifies this client instance in logs.
func (c *Client) Name() string { return c.name }

// PartitionID returns the partition that owns key.
func (c *Client) PartitionID(key []byte) int32 {
	return partition.ForKey(key, c.partitions)
}

// OwnerOf returns the member address serving partitionID.
func (c *Client) OwnerOf(partitionID int32) (string, bool) {
	return hrw.OwnerOfPartition(partitionID, c.addrs, c.seed)
}

func (c *Client) nextCorrelationID() int32 {
	for {
		if id := c.corr.Add(1); id != 0 {
			return id
		}
	}
}

// Invoke sends req and waits for its response. req is not modified; every
// attempt sends a copy with a fresh correlation id. Retryable requests are
// sent again, to the next member in line, when the connection carrying them
// is lost. An exception response is returned as *RemoteError.
func (c *Client) Invoke(ctx context.Context, req *protocol.ClientMessage) (*protocol.ClientMessage, error) {
	return c.invoke(ctx, req, nil)
}

func (c *Client) invoke(ctx context.Context, req *protocol.ClientMessage, onAttempt func(id int32)) (*protocol.ClientMessage, error) {
	op := operationName(req)
	defer c.metrics.InvocationDuration(op).ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if !req.IsComplete() {
		req.UpdateFrameLength()
	}
	limit := 0
	if req.IsRetryable() {
		limit = c.retryLimit
	}

	var lastErr error
	for attempt := 0; attempt <= limit; attempt++ {
		if attempt > 0 {
			c.metrics.InvocationRetried(op)
			select {
			case <-time.After(c.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, c.finish(op, ctx.Err())
			}
		}

		id := c.nextCorrelationID()
		msg := req.CopyWithNewCorrelationID(id)
		if onAttempt != nil {
			onAttempt(id)
		}

		resp, err := c.attempt(ctx, msg, attempt)
		if err == nil || !errors.Is(err, ErrConnectionLost) {
			return resp, c.finish(op, err)
		}
		lastErr = err
		c.log.Debug("invocation attempt failed",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}
	if limit > 0 {
		lastErr = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, limit+1, lastErr)
	}
	return nil, c.finish(op, lastErr)
}

func (c *Client) attempt(ctx context.Context, msg *protocol.ClientMessage, attempt int) (*protocol.ClientMessage, error) {
	conn, err := c.connect(ctx, c.target(msg, attempt))
	if err != nil {
		return nil, err
	}

	id := msg.CorrelationID()
	inv := &invocation{
		conn: conn,
		resp: make(chan *protocol.ClientMessage, 1),
		lost: make(chan error, 1),
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = inv
	c.mu.Unlock()
	defer c.removePending(id)

	if err := conn.Send(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}

	select {
	case <-conn.Done():
		// closed before watch could see this invocation
		c.mu.Lock()
		_, still := c.pending[id]
		c.mu.Unlock()
		if still {
			return nil, fmt.Errorf("%w: %w", ErrConnectionLost, conn.Err())
		}
	default:
	}

	select {
	case resp := <-inv.resp:
		if resp.MessageType() != protocol.ResponseException {
			return resp, nil
		}
		holders, err := codec.DecodeException(resp)
		if err != nil {
			return nil, err
		}
		return nil, &RemoteError{CorrelationID: id, Holders: holders}
	case err := <-inv.lost:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// target ranks the members for msg and picks the one matching the attempt,
// so a retry moves on to the next member.
func (c *Client) target(msg *protocol.ClientMessage, attempt int) string {
	var key string
	if pid := msg.PartitionID(); pid >= 0 {
		key = hrw.PartitionKey(pid)
	} else {
		key = "c/" + strconv.FormatInt(int64(msg.CorrelationID()), 10)
	}
	ranked := hrw.TopK(key, c.addrs, len(c.addrs), c.seed)
	return ranked[attempt%len(ranked)]
}

func (c *Client) connect(ctx context.Context, addr string) (*wire.Conn, error) {
	conn, err := c.live(addr)
	if err != nil || conn != nil {
		return conn, err
	}

	conn, _, err = c.dials.Do(addr, func() (*wire.Conn, error) {
		if conn, err := c.live(addr); err != nil || conn != nil {
			return conn, err
		}
		return c.open(ctx, addr)
	})
	if err != nil {
		if errors.Is(err, ErrClosed) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionLost, addr, err)
	}
	return conn, nil
}

// live returns the open connection to addr, or nil if there is none.
func (c *Client) live(addr string) (*wire.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	conn, ok := c.conns[addr]
	if !ok {
		return nil, nil
	}
	select {
	case <-conn.Done():
		// watch removes it shortly
		return nil, nil
	default:
		return conn, nil
	}
}

func (c *Client) open(ctx context.Context, addr string) (*wire.Conn, error) {
	nc, err := c.dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	opts := c.connOpts
	opts.Handler = c.handle
	opts.Log = c.log
	conn, err := wire.NewConn(nc, opts)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	}
	c.conns[addr] = conn
	n := len(c.conns)
	c.mu.Unlock()

	c.metrics.ConnectionsActive(n)
	c.log.Debug("connected", slog.String("member", addr), slog.String("conn", conn.ID()))
	go c.watch(addr, conn)
	return conn, nil
}

// watch fails the invocations pending on conn once it closes.
func (c *Client) watch(addr string, conn *wire.Conn) {
	<-conn.Done()

	c.mu.Lock()
	if c.conns[addr] == conn {
		delete(c.conns, addr)
	}
	n := len(c.conns)
	var lost []*invocation
	for id, inv := range c.pending {
		if inv.conn == conn {
			lost = append(lost, inv)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	c.metrics.ConnectionsActive(n)
	if len(lost) == 0 {
		return
	}
	err := fmt.Errorf("%w: %s: %w", ErrConnectionLost, addr, conn.Err())
	for _, inv := range lost {
		inv.lost <- err
	}
}

func (c *Client) removePending(id int32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// handle runs on the read goroutine of conn.
func (c *Client) handle(conn *wire.Conn, msg *protocol.ClientMessage) {
	id := msg.CorrelationID()
	if msg.IsEvent() {
		c.mu.Lock()
		h, ok := c.listeners[id]
		c.mu.Unlock()
		c.metrics.EventReceived(!ok)
		if !ok {
			c.log.Debug("event without listener", slog.Int("correlation_id", int(id)))
			return
		}
		key := uint64(uint32(msg.PartitionID()))
		if err := c.events.Submit(c.ctx, key, func() { h(msg) }); err != nil {
			c.log.Debug("event dropped", slog.Any("error", err))
		}
		return
	}

	c.mu.Lock()
	inv, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		c.log.Debug("response without invocation",
			slog.Int("correlation_id", int(id)),
			slog.String("conn", conn.ID()),
		)
		return
	}
	inv.resp <- msg
}

func (c *Client) finish(op string, err error) error {
	outcome := OutcomeOK
	var remote *RemoteError
	switch {
	case err == nil:
	case errors.As(err, &remote):
		outcome = OutcomeRemoteError
	case errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeTimeout
	case errors.Is(err, ErrConnectionLost):
		outcome = OutcomeConnectionLost
	default:
		outcome = OutcomeError
	}
	c.metrics.InvocationCompleted(op, outcome)
	return err
}

func operationName(m *protocol.ClientMessage) string {
	if n := m.OperationName(); n != "" {
		return n
	}
	return protocol.TypeName(m.MessageType())
}

// Close closes every member connection, fails pending invocations with
// ErrClosed and waits for queued events to be handled.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conns := make([]*wire.Conn, 0, len(c.conns))
	for _, conn := range c.conns {
		conns = append(conns, conn)
	}
	pending := c.pending
	c.pending = make(map[int32]*invocation)
	c.mu.Unlock()

	c.cancel()
	for _, inv := range pending {
		inv.lost <- ErrClosed
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
	c.events.Close()
	return nil
}
