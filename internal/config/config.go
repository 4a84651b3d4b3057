// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Package config loads and validates the agent's configuration via
// github.com/spf13/viper, layering defaults, a YAML file, and environment
// overrides.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Defaults mirror the original agent's CONFIG_* constants.
const (
	DefaultBufferSize           = 100
	DefaultBufferSend           = 5
	DefaultRefreshActiveChecks  = 120
	DefaultMaxLinesPerSecond    = 20
	DefaultTimeout              = 3 * time.Second
	MinValueLines               = 1
	MaxValueLines               = 1000
)

// Config holds one endpoint's settings. A single host may run several
// independent Configs, one process per configured server, none sharing
// mutable state with another.
type Config struct {
	Hostname            string        `mapstructure:"hostname"`
	ServerList          string        `mapstructure:"server"`
	Port                int           `mapstructure:"port"`
	BufferSize          int           `mapstructure:"buffer_size"`
	BufferSend          int64         `mapstructure:"buffer_send"`
	RefreshActiveChecks int64         `mapstructure:"refresh_active_checks"`
	MaxLinesPerSecond   int           `mapstructure:"max_lines_per_second"`
	Timeout             time.Duration `mapstructure:"timeout"`
	SourceIP            string        `mapstructure:"source_ip"`
}

// Load reads configuration from path (if non-empty) with ACTIVECORE_*
// environment overrides and sensible defaults, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ACTIVECORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("port", 10051)
	v.SetDefault("buffer_size", DefaultBufferSize)
	v.SetDefault("buffer_send", DefaultBufferSend)
	v.SetDefault("refresh_active_checks", DefaultRefreshActiveChecks)
	v.SetDefault("max_lines_per_second", DefaultMaxLinesPerSecond)
	v.SetDefault("timeout", DefaultTimeout)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %q", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the agent's configuration constraints.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return errors.New("config: hostname is required")
	}
	if c.ServerList == "" {
		return errors.New("config: server is required")
	}
	if c.BufferSize < 2 {
		return errors.Errorf("config: buffer_size must be >= 2, got %d", c.BufferSize)
	}
	if c.MaxLinesPerSecond < MinValueLines || c.MaxLinesPerSecond > MaxValueLines {
		return errors.Errorf("config: max_lines_per_second must be in [%d,%d], got %d",
			MinValueLines, MaxValueLines, c.MaxLinesPerSecond)
	}
	if c.RefreshActiveChecks <= 0 {
		return errors.New("config: refresh_active_checks must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	return nil
}

// PrimaryHost returns the first entry of a comma-separated server list, the
// Go analogue of the original thread entry's `strchr(host, ',')` split —
// the active-check loop for one Config only ever talks to its own primary
// host even when ServerList configures a comma-separated failover list.
func PrimaryHost(serverList string) string {
	if idx := strings.IndexByte(serverList, ','); idx >= 0 {
		return serverList[:idx]
	}
	return serverList
}
