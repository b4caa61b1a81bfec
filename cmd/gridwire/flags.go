package main

import (
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/codewandler/gridwire-go/core/config"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (.yaml, .yml or .toml)",
		EnvVars: []string{"GRIDWIRE_CONFIG"},
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Override log.level: debug, info, warn, error, off",
	}

	thresholdFlag = &cli.IntFlag{
		Name:    "threshold",
		Aliases: []string{"t"},
		Usage:   "Fragment size limit in bytes (defaults to wire.fragment_threshold)",
	}
)

// loadConfig reads --config, or the defaults, and applies global overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.String(configFlag.Name))
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	if lvl := c.String(logLevelFlag.Name); lvl != "" {
		cfg.Log.Level = lvl
		if err := cfg.Validate(); err != nil {
			return nil, cli.Exit(err.Error(), 2)
		}
	}
	if t := c.Int(thresholdFlag.Name); t > 0 {
		cfg.Wire.FragmentThreshold = t
	}
	return cfg, nil
}

func logger(c *cli.Context, cfg *config.Config) *slog.Logger {
	return cfg.Logger(c.App.ErrWriter)
}
