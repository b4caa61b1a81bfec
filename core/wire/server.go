package wire

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
)

// Serve accepts connections on ln until ctx is done or ln fails, wrapping
// each one with opts. Every connection it opened is closed before it returns.
// It returns nil when stopped through ctx.
func Serve(ctx context.Context, ln net.Listener, opts ConnOptions) error {
	if opts.Handler == nil {
		return ErrHandlerRequired
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("listener", ln.Addr().String()))

	var (
		mu    sync.Mutex
		conns = make(map[*Conn]struct{})
	)
	defer func() {
		mu.Lock()
		open := make([]*Conn, 0, len(conns))
		for c := range conns {
			open = append(open, c)
		}
		mu.Unlock()
		for _, c := range open {
			_ = c.Close()
		}
	}()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		connOpts := opts
		connOpts.ID = ""
		c, err := NewConn(nc, connOpts)
		if err != nil {
			_ = nc.Close()
			log.Warn("rejecting connection", slog.Any("error", err))
			continue
		}
		log.Debug("accepted connection", slog.String("conn", c.ID()))

		mu.Lock()
		conns[c] = struct{}{}
		mu.Unlock()
		go func() {
			<-c.Done()
			mu.Lock()
			delete(conns, c)
			mu.Unlock()
		}()
	}
}
