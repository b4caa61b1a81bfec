// Package nats relays client messages over NATS subjects.
package nats

import (
	"log/slog"
	"os"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
)

const DefaultConnectionName = "gridwire-relay"

type closeFunc = func()

// Connector opens a NATS connection and returns the function releasing it.
type Connector func() (nc *natsgo.Conn, release closeFunc, err error)

type ConnectOptions struct {
	// URL of the server. Defaults to $NATS_URL, then the NATS default URL.
	URL string
	// Name is reported to the server. Defaults to DefaultConnectionName.
	Name string
	Log  *slog.Logger
	// ReconnectWait is the pause between reconnect attempts. Defaults to 250ms.
	ReconnectWait time.Duration
	// Options are applied after the relay defaults.
	Options []natsgo.Option
}

// Connect returns a Connector for relay connections. Fragment groups in
// flight during a disconnect are incomplete on the subscriber side, so
// connection state changes and async errors are logged.
func Connect(opts ConnectOptions) Connector {
	url := opts.URL
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		url = natsgo.DefaultURL
	}
	name := opts.Name
	if name == "" {
		name = DefaultConnectionName
	}
	wait := opts.ReconnectWait
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("nats", name))

	natsOpts := append([]natsgo.Option{
		natsgo.Name(name),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(wait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			log.Warn("disconnected, open fragment groups will be dropped", slog.Any("error", err))
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info("reconnected", slog.String("url", nc.ConnectedUrlRedacted()))
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("async error", slog.String("subject", subject), slog.Any("error", err))
		}),
	}, opts.Options...)

	return func() (*natsgo.Conn, closeFunc, error) {
		nc, err := natsgo.Connect(url, natsOpts...)
		if err != nil {
			return nil, nil, err
		}
		return nc, nc.Close, nil
	}
}

// ConnectURL connects to natsURL with the relay defaults.
func ConnectURL(natsURL string, opts ...natsgo.Option) Connector {
	return Connect(ConnectOptions{URL: natsURL, Options: opts})
}

// ConnectDefault connects to $NATS_URL, or the NATS default URL.
func ConnectDefault() Connector { return Connect(ConnectOptions{}) }

// Shared lets several relays publish and subscribe over one connection.
// The connection opens on the first lease and closes when the last lease
// is released. Releasing a lease twice has no effect.
func Shared(connect Connector) Connector {
	s := &sharedConn{connect: connect}
	return s.lease
}

type sharedConn struct {
	connect Connector

	mu      sync.Mutex
	nc      *natsgo.Conn
	release closeFunc
	leases  int
}

func (s *sharedConn) lease() (*natsgo.Conn, closeFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nc == nil {
		nc, release, err := s.connect()
		if err != nil {
			return nil, nil, err
		}
		s.nc, s.release = nc, release
	}
	s.leases++
	nc := s.nc
	var once sync.Once
	return nc, func() { once.Do(func() { s.drop(nc) }) }, nil
}

func (s *sharedConn) drop(nc *natsgo.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nc != nc {
		return
	}
	s.leases--
	if s.leases == 0 {
		s.release()
		s.nc, s.release = nil, nil
	}
}
