// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present watchmesh authors.

// Command activecore runs the active-check polling agent: it loads a
// configuration file naming one server endpoint and drives its cooperative
// scheduler loop until signalled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/watchmesh/activecore/internal/config"
	"github.com/watchmesh/activecore/internal/endpoint"
	"github.com/watchmesh/activecore/internal/session"
	"github.com/watchmesh/activecore/internal/transport"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "activecore",
		Short: "activecore polls configured checks and reports results to a central server",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the agent's configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(&configPath, &logLevel))
	root.AddCommand(newValidateConfigCmd(&configPath))
	root.AddCommand(newVersionCmd())

	return root
}

func newRunCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(*logLevel)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg, logger.Sugar())
		},
	}
}

func newValidateConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the configuration file without starting the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			fmt.Printf("config OK: hostname=%s servers=%s\n", cfg.Hostname, cfg.ServerList)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("activecore %s (commit: %s)\n", version, commit)
		},
	}
}

// run drives one endpoint.Endpoint for this process's Config, talking only
// to its primary server (config.PrimaryHost) even when ServerList names a
// comma-separated failover list: one activecore process per configured
// server, each its own independent, lock-free loop. A host running checks
// for several server groups starts one activecore process per Config.
func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	primary := config.PrimaryHost(cfg.ServerList)
	addr := primary
	if !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, cfg.Port)
	}

	log.Infow("starting activecore", "version", version, "hostname", cfg.Hostname, "server", addr)

	dialer := &transport.Dialer{SourceIP: cfg.SourceIP}
	sess := session.New(dialer, addr, cfg.Timeout, log)
	ep := endpoint.New(cfg, sess, log)
	defer ep.Close()

	return ep.Run(ctx)
}

func buildLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
