// Package logging builds the slog loggers used by the gridwire binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	EnvLogLevel  = "GRIDWIRE_LOG_LEVEL"
	EnvLogFormat = "GRIDWIRE_LOG_FORMAT"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Config struct {
	Level  slog.Level
	Format Format
	// Disabled discards every record.
	Disabled bool
}

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: slog.LevelDebug, Format: FormatText}
	default:
		return Config{Level: slog.LevelInfo, Format: FormatText}
	}
}

// New returns a logger writing to w. Environment overrides win over cfg.
func New(w io.Writer, cfg Config) *slog.Logger {
	ApplyEnv(&cfg)
	if cfg.Disabled {
		return slog.New(slog.DiscardHandler)
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// FromString builds a config from a level name and a format name, keeping the
// profile defaults for anything it does not recognise.
func FromString(profile Profile, level, format string) Config {
	cfg := DefaultConfig(profile)
	apply(&cfg, level, format)
	return cfg
}

func ApplyEnv(cfg *Config) {
	apply(cfg, os.Getenv(EnvLogLevel), os.Getenv(EnvLogFormat))
}

func apply(cfg *Config, level, format string) {
	if lvl, ok, off := ParseLevel(level); ok {
		cfg.Level = lvl
		cfg.Disabled = off
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		cfg.Format = FormatJSON
	case "text", "logfmt":
		cfg.Format = FormatText
	}
}

// ParseLevel maps a level name to a slog level. ok is false for unknown or
// empty input; off reports one of the disabling names.
func ParseLevel(raw string) (lvl slog.Level, ok bool, off bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug, true, false
	case "info":
		return slog.LevelInfo, true, false
	case "warn", "warning":
		return slog.LevelWarn, true, false
	case "error":
		return slog.LevelError, true, false
	case "off", "none", "disabled":
		return slog.LevelError, true, true
	default:
		return slog.LevelInfo, false, false
	}
}
