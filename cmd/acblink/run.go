// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/acblink/internal/config"
	"github.com/ManuGH/acblink/internal/daemon"
	"github.com/ManuGH/acblink/internal/log"
	"github.com/ManuGH/acblink/internal/version"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the recording daemon",
		Long: `Run loads the configuration, starts the recording and event schedulers
and serves the control API until SIGINT or SIGTERM. SIGHUP and edits of the
config file reload the log level, poll interval and due window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (YAML); defaults to <dataDir>/config.yaml when present")
	return cmd
}

func runDaemon(ctx context.Context, configPath string) error {
	log.Configure(log.Config{Level: "info", Service: "acblink", Version: version.Version})
	logger := log.WithComponent("daemon")

	effective := strings.TrimSpace(configPath)
	if effective == "" {
		dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, ""))
		if dataDir == "" {
			if dir, err := config.DefaultDataDir(); err == nil {
				dataDir = dir
			}
		}
		effective = config.DefaultConfigPath(dataDir)
	}

	loader := config.NewLoader(effective, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effective).
			Msg("failed to load configuration")
		return fmt.Errorf("load config: %w", err)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	logger = log.WithComponent("daemon")

	source := "env+defaults"
	if effective != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", effective).
		Str("data_dir", cfg.DataDir).
		Msg("configuration loaded")

	holder := config.NewConfigHolder(cfg, loader)
	app, err := daemon.Bootstrap(cfg, holder)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info().Str("version", version.String()).Str("listen", cfg.API.ListenAddr).Msg("starting acblink daemon")
	return app.Run(ctx)
}
