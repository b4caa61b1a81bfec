// Package wire moves client messages over a byte stream connection.
//
// A [Conn] owns one read goroutine and one write goroutine. The read side
// feeds whatever bytes the socket returned through
// [protocol.ClientMessage.ReadFromBuffer] and hands finished messages to a
// [fragment.Assembler]; the write side splits outgoing messages with a
// [fragment.Splitter] and drains them through
// [protocol.ClientMessage.WriteToBuffer] into a bufio.Writer, flushing when
// the buffer is full or the queue runs empty.
package wire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/gridwire-go/core/fragment"
	"github.com/codewandler/gridwire-go/core/protocol"
)

const (
	DefaultBufferSize     = 32 << 10
	DefaultMaxFrameLength = 64 << 20
	DefaultWriteQueueSize = 1024
)

// Handler receives every complete inbound message. It runs on the read
// goroutine of c; long work must be handed off.
type Handler func(c *Conn, msg *protocol.ClientMessage)

type ConnOptions struct {
	// ID names the connection in logs and metrics. Defaults to a random id.
	ID      string
	Log     *slog.Logger
	Handler Handler

	// FragmentThreshold is the largest fragment written. Defaults to
	// fragment.DefaultThreshold.
	FragmentThreshold int
	// FragmentIDs defaults to a per-connection fragment.Sequence.
	FragmentIDs fragment.IDSource

	ReadBufferSize  int
	WriteBufferSize int
	// MaxFrameLength rejects inbound messages above this size.
	MaxFrameLength int
	WriteQueueSize int

	Metrics         Metrics
	FragmentMetrics fragment.Metrics
}

// Conn is a full-duplex message connection.
type Conn struct {
	id      string
	nc      net.Conn
	log     *slog.Logger
	handler Handler
	metrics Metrics

	splitter *fragment.Splitter
	asm      *fragment.Assembler

	readBufSize    int
	writeBufSize   int
	maxFrameLength int

	queue   chan *protocol.ClientMessage
	closing chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// NewConn takes ownership of nc and starts its read and write loops.
func NewConn(nc net.Conn, opts ConnOptions) (*Conn, error) {
	if opts.Handler == nil {
		return nil, ErrHandlerRequired
	}
	id := opts.ID
	if id == "" {
		id = "conn-" + gonanoid.Must(8)
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = NopMetrics()
	}

	c := &Conn{
		id:             id,
		nc:             nc,
		log:            log.With(slog.String("conn", id), slog.String("remote", nc.RemoteAddr().String())),
		handler:        opts.Handler,
		metrics:        m,
		readBufSize:    orDefault(opts.ReadBufferSize, DefaultBufferSize),
		writeBufSize:   orDefault(opts.WriteBufferSize, DefaultBufferSize),
		maxFrameLength: orDefault(opts.MaxFrameLength, DefaultMaxFrameLength),
		queue:          make(chan *protocol.ClientMessage, orDefault(opts.WriteQueueSize, DefaultWriteQueueSize)),
		closing:        make(chan struct{}),
		done:           make(chan struct{}),
	}

	var err error
	c.splitter, err = fragment.NewSplitter(fragment.SplitterOptions{
		Threshold: opts.FragmentThreshold,
		IDs:       opts.FragmentIDs,
		Metrics:   opts.FragmentMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	c.asm, err = fragment.NewAssembler(fragment.AssemblerOptions{
		Handler: func(msg *protocol.ClientMessage) { c.handler(c, msg) },
		Log:     c.log,
		Metrics: opts.FragmentMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}

	c.metrics.ConnectionOpened()
	c.log.Debug("connection opened")

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	go func() {
		c.wg.Wait()
		c.asm.Reset()
		close(c.done)
	}()
	return c, nil
}

// Dial connects to addr and wraps the connection.
func Dial(ctx context.Context, addr string, opts ConnOptions) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, err := NewConn(nc, opts)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}
	return c, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }

// Done is closed once both loops have exited.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the error that closed the connection, ErrClosed after a plain
// Close, or nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// PendingFragments is the number of inbound fragment groups still open.
func (c *Conn) PendingFragments() int { return c.asm.Pending() }

// Send finalizes msg if needed, splits it and queues the parts. It returns
// once everything is queued, not written. A message must not be queued
// again before the previous send of it was written.
func (c *Conn) Send(ctx context.Context, msg *protocol.ClientMessage) error {
	if !msg.IsComplete() {
		msg.UpdateFrameLength()
	}
	if c.isClosing() {
		return c.closedErr()
	}
	for _, f := range c.splitter.Split(msg) {
		if c.isClosing() {
			return c.closedErr()
		}
		select {
		case c.queue <- f:
		case <-c.closing:
			return c.closedErr()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *Conn) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *Conn) closedErr() error {
	if err := c.Err(); err != nil {
		return err
	}
	return ErrClosed
}

// Close shuts the connection down and waits for its loops.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	<-c.done
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		c.mu.Unlock()
		close(c.closing)
		_ = c.nc.Close()

		reason := "closed"
		switch {
		case errors.Is(cause, ErrClosed):
		case protocol.IsFormatError(cause):
			reason = "protocol_error"
			c.log.Warn("closing connection on protocol error", slog.Any("error", cause))
		case errors.Is(cause, io.EOF):
			reason = "eof"
		default:
			reason = "io_error"
			c.log.Debug("connection failed", slog.Any("error", cause))
		}
		c.metrics.ConnectionClosed(reason)
	})
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	buf := make([]byte, c.readBufSize)
	var cur *protocol.ClientMessage
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			c.metrics.BytesRead(n)
			src := bytes.NewReader(buf[:n])
			for src.Len() > 0 {
				if cur == nil {
					cur = protocol.CreateForRead(0, c.maxFrameLength)
				}
				done, rerr := cur.ReadFromBuffer(src)
				if rerr != nil {
					c.shutdown(rerr)
					return
				}
				if !done {
					break
				}
				c.metrics.MessageReceived(protocol.ClassifyMessageType(cur.MessageType()).String())
				c.asm.Accept(cur)
				cur = nil
			}
		}
		if err != nil {
			select {
			case <-c.closing:
				c.shutdown(ErrClosed)
			default:
				c.shutdown(err)
			}
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()
	w := bufio.NewWriterSize(c.nc, c.writeBufSize)
	for {
		select {
		case <-c.closing:
			return
		case msg := <-c.queue:
			if err := c.write(w, msg); err != nil {
				c.shutdown(err)
				return
			}
		drain:
			for {
				select {
				case msg := <-c.queue:
					if err := c.write(w, msg); err != nil {
						c.shutdown(err)
						return
					}
				default:
					break drain
				}
			}
			if err := w.Flush(); err != nil {
				c.shutdown(err)
				return
			}
		}
	}
}

func (c *Conn) write(w *bufio.Writer, msg *protocol.ClientMessage) error {
	for {
		done, err := msg.WriteToBuffer(w)
		if err != nil {
			return err
		}
		if done {
			break
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	c.metrics.BytesWritten(msg.Size())
	c.metrics.MessageSent(protocol.ClassifyMessageType(msg.MessageType()).String())
	return nil
}
