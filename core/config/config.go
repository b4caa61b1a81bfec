// Package config loads gridwire tool configuration from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codewandler/gridwire-go/core/client"
	"github.com/codewandler/gridwire-go/core/fragment"
	"github.com/codewandler/gridwire-go/core/wire"
	"github.com/codewandler/gridwire-go/internal/logging"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Log     LogConfig     `yaml:"log" toml:"log"`
	Client  ClientConfig  `yaml:"client" toml:"client"`
	Wire    WireConfig    `yaml:"wire" toml:"wire"`
	Serve   ServeConfig   `yaml:"serve" toml:"serve"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	NATS    NATSConfig    `yaml:"nats" toml:"nats"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type ClientConfig struct {
	Addresses         []string `yaml:"addresses" toml:"addresses"`
	Seed              string   `yaml:"seed" toml:"seed"`
	InvocationTimeout Duration `yaml:"invocation_timeout" toml:"invocation_timeout"`
	RetryLimit        int      `yaml:"retry_limit" toml:"retry_limit"`
	RetryBackoff      Duration `yaml:"retry_backoff" toml:"retry_backoff"`
	PartitionCount    int32    `yaml:"partition_count" toml:"partition_count"`
	EventWorkers      int      `yaml:"event_workers" toml:"event_workers"`
}

type WireConfig struct {
	FragmentThreshold int `yaml:"fragment_threshold" toml:"fragment_threshold"`
	ReadBufferSize    int `yaml:"read_buffer_size" toml:"read_buffer_size"`
	WriteBufferSize   int `yaml:"write_buffer_size" toml:"write_buffer_size"`
	MaxFrameLength    int `yaml:"max_frame_length" toml:"max_frame_length"`
	WriteQueueSize    int `yaml:"write_queue_size" toml:"write_queue_size"`
}

type ServeConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// MetricsConfig enables a Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
	Path string `yaml:"path" toml:"path"`
}

type NATSConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Subject string `yaml:"subject" toml:"subject"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Client: ClientConfig{
			Addresses:         []string{"127.0.0.1:5701"},
			InvocationTimeout: Duration{client.DefaultInvocationTimeout},
			RetryLimit:        client.DefaultRetryLimit,
			RetryBackoff:      Duration{client.DefaultRetryBackoff},
			EventWorkers:      client.DefaultEventWorkers,
		},
		Wire: WireConfig{
			FragmentThreshold: fragment.DefaultThreshold,
			ReadBufferSize:    wire.DefaultBufferSize,
			WriteBufferSize:   wire.DefaultBufferSize,
			MaxFrameLength:    wire.DefaultMaxFrameLength,
			WriteQueueSize:    wire.DefaultWriteQueueSize,
		},
		Serve:   ServeConfig{Addr: "127.0.0.1:5701"},
		Metrics: MetricsConfig{Path: "/metrics"},
		NATS:    NATSConfig{Subject: "gridwire.messages"},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, ok, _ := logging.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	if len(c.Client.Addresses) == 0 {
		errs = append(errs, errors.New("client.addresses: at least one address required"))
	}
	for i, a := range c.Client.Addresses {
		if a == "" {
			errs = append(errs, fmt.Errorf("client.addresses[%d]: empty", i))
		}
	}
	if c.Client.InvocationTimeout.Duration < 0 {
		errs = append(errs, errors.New("client.invocation_timeout: negative"))
	}
	if c.Client.PartitionCount < 0 {
		errs = append(errs, errors.New("client.partition_count: negative"))
	}
	if t := c.Wire.FragmentThreshold; t != 0 && t <= fragment.Overhead {
		errs = append(errs, fmt.Errorf("wire.fragment_threshold: must exceed %d", fragment.Overhead))
	}
	if c.Wire.MaxFrameLength < 0 {
		errs = append(errs, errors.New("wire.max_frame_length: negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Logger builds the logger described by the log section. The
// GRIDWIRE_LOG_LEVEL and GRIDWIRE_LOG_FORMAT environment variables win.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	return logging.New(w, logging.FromString(logging.ProfileRuntime, c.Log.Level, c.Log.Format))
}

// ConnOptions returns the wire settings as connection options.
func (c *Config) ConnOptions() wire.ConnOptions {
	return wire.ConnOptions{
		FragmentThreshold: c.Wire.FragmentThreshold,
		ReadBufferSize:    c.Wire.ReadBufferSize,
		WriteBufferSize:   c.Wire.WriteBufferSize,
		MaxFrameLength:    c.Wire.MaxFrameLength,
		WriteQueueSize:    c.Wire.WriteQueueSize,
	}
}

// ClientOptions returns the client settings as client options.
func (c *Config) ClientOptions(log *slog.Logger) client.Options {
	return client.Options{
		Addresses:         append([]string(nil), c.Client.Addresses...),
		Seed:              c.Client.Seed,
		Conn:              c.ConnOptions(),
		InvocationTimeout: c.Client.InvocationTimeout.Duration,
		RetryLimit:        c.Client.RetryLimit,
		RetryBackoff:      c.Client.RetryBackoff.Duration,
		PartitionCount:    c.Client.PartitionCount,
		EventWorkers:      c.Client.EventWorkers,
		Log:               log,
	}
}

// Duration is a time.Duration written as a string like "250ms" or "2m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	d.Duration = parsed
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
