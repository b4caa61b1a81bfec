package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	promadapter "github.com/codewandler/gridwire-go/adapters/prometheus"
	"github.com/codewandler/gridwire-go/core/config"
	"github.com/codewandler/gridwire-go/core/protocol"
	"github.com/codewandler/gridwire-go/core/wire"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a member that echoes every request as a DATA response",
		Flags: []cli.Flag{
			thresholdFlag,
			&cli.StringFlag{Name: "addr", Usage: "Listen address (defaults to serve.addr)"},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Serve.Addr = addr
	}
	log := logger(c, cfg)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	opts := cfg.ConnOptions()
	opts.Log = log
	opts.Handler = echo
	opts.Metrics = promadapter.NewWireMetrics(reg)
	opts.FragmentMetrics = promadapter.NewFragmentMetrics(reg)
	startMetricsServer(ctx, cfg, reg, log)

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Info("serving", slog.String("addr", ln.Addr().String()))
	return wire.Serve(ctx, ln, opts)
}

// echo answers every non-event message with its frames as a DATA response.
func echo(c *wire.Conn, req *protocol.ClientMessage) {
	if req.IsEvent() {
		return
	}
	resp := protocol.CreateForEncode(req.Size()).
		SetMessageType(protocol.ResponseData).
		SetCorrelationID(req.CorrelationID()).
		SetPartitionID(req.PartitionID())
	for f := range req.All() {
		resp.AddFrame(f.CopyWithFlags(f.Flags &^ protocol.FlagFinal))
	}
	go func() { _ = c.Send(context.Background(), resp) }()
}

// startMetricsServer exposes reg on metrics.addr until ctx is done. It does
// nothing when no address is configured.
func startMetricsServer(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, log *slog.Logger) {
	if cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics endpoint", slog.String("addr", cfg.Metrics.Addr), slog.String("path", cfg.Metrics.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics endpoint failed", slog.Any("error", err))
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
}
