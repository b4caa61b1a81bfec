package main

import (
	"bytes"
	"fmt"
	"os/signal"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/codewandler/gridwire-go/adapters/prometheus"
	"github.com/codewandler/gridwire-go/core/client"
	"github.com/codewandler/gridwire-go/core/protocol"
	"github.com/codewandler/gridwire-go/core/protocol/codec"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Invoke echo requests against the configured members",
		Flags: []cli.Flag{
			thresholdFlag,
			&cli.StringSliceFlag{Name: "addr", Usage: "Member address (defaults to client.addresses)"},
			&cli.IntFlag{Name: "requests", Aliases: []string{"n"}, Value: 10_000, Usage: "Total invocations"},
			&cli.IntFlag{Name: "concurrency", Value: 16, Usage: "Concurrent invokers"},
			&cli.IntFlag{Name: "size", Value: 256, Usage: "Payload bytes per request"},
		},
		Action: benchAction,
	}
}

type benchResult struct {
	Requests  int
	Errors    int64
	Elapsed   time.Duration
	Latencies []time.Duration
}

func (r *benchResult) percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	slices.Sort(r.Latencies)
	i := int(p * float64(len(r.Latencies)-1))
	return r.Latencies[i]
}

func benchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addrs := c.StringSlice("addr"); len(addrs) > 0 {
		cfg.Client.Addresses = addrs
	}
	log := logger(c, cfg)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	all := promadapter.NewAllMetrics(reg)
	opts := cfg.ClientOptions(log)
	opts.Metrics = all.Client
	opts.Conn.Metrics = all.Wire
	opts.Conn.FragmentMetrics = all.Fragment
	startMetricsServer(ctx, cfg, reg, log)

	cl, err := client.New(opts)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	defer cl.Close()

	total := c.Int("requests")
	payload := bytes.Repeat([]byte{'x'}, c.Int("size"))
	res := benchResult{Requests: total}

	var (
		next    atomic.Int64
		failed  atomic.Int64
		mu      sync.Mutex
		workers = max(1, c.Int("concurrency"))
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			local := make([]time.Duration, 0, total/workers+1)
			for {
				i := next.Add(1)
				if i > int64(total) || gctx.Err() != nil {
					break
				}
				req := protocol.CreateForEncode(len(payload) + 64).
					SetMessageType(protocol.UserTypeMin).
					SetPartitionID(cl.PartitionID(fmt.Appendf(nil, "key-%d", i))).
					SetOperationName("bench.echo").
					SetRetryable(true)
				codec.EncodeByteArray(req, payload)

				t0 := time.Now()
				if _, err := cl.Invoke(gctx, req); err != nil {
					failed.Add(1)
					continue
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			res.Latencies = append(res.Latencies, local...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	res.Elapsed = time.Since(start)
	res.Errors = failed.Load()

	w := c.App.Writer
	fmt.Fprintf(w, "requests:   %d (%d errors)\n", res.Requests, res.Errors)
	fmt.Fprintf(w, "elapsed:    %s\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "throughput: %.0f req/s\n", float64(len(res.Latencies))/res.Elapsed.Seconds())
	fmt.Fprintf(w, "latency:    p50=%s p99=%s max=%s\n",
		res.percentile(0.5), res.percentile(0.99), res.percentile(1))
	return nil
}
