package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/codewandler/gridwire-go/adapters/nats"
	"github.com/codewandler/gridwire-go/core/config"
	"github.com/codewandler/gridwire-go/core/protocol"
)

func relayCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "Exchange messages over a NATS subject (nats.url, nats.subject)",
		Subcommands: []*cli.Command{
			{
				Name:  "listen",
				Usage: "Print every message received on the subject",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "frames", Usage: "Print every frame"},
				},
				Action: relayListenAction,
			},
			{
				Name:  "send",
				Usage: "Publish a synthesized message on the subject",
				Flags: []cli.Flag{
					thresholdFlag,
					&cli.IntFlag{Name: "frames", Value: 16, Usage: "Number of payload frames"},
					&cli.IntFlag{Name: "size", Value: 1024, Usage: "Payload bytes per frame"},
				},
				Action: relaySendAction,
			},
		},
	}
}

func openRelay(c *cli.Context, cfg *config.Config) (*nats.Relay, error) {
	log := logger(c, cfg)
	r, err := nats.NewRelay(nats.RelayOptions{
		Connect:   nats.Connect(nats.ConnectOptions{URL: cfg.NATS.URL, Log: log}),
		Log:       log,
		Subject:   cfg.NATS.Subject,
		Threshold: cfg.Wire.FragmentThreshold,
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	return r, nil
}

func relayListenAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, err := openRelay(c, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := c.App.Writer
	frames := c.Bool("frames")
	if _, err := r.Subscribe(ctx, func(m *protocol.ClientMessage) { printMessage(out, m, frames) }); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(out, "listening on %s\n", cfg.NATS.Subject)
	<-ctx.Done()
	return nil
}

func relaySendAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, err := openRelay(c, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	msg := sampleMessage(protocol.UserTypeMin, protocol.NoPartition, c.Int("frames"), c.Int("size"))
	if err := r.Publish(msg); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := r.Flush(c.Context); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "published %d bytes on %s (threshold %d)\n", msg.Size(), cfg.NATS.Subject, r.Threshold())
	return nil
}
