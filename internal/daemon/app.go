// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/acblink/internal/config"
	"github.com/ManuGH/acblink/internal/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (watchers, reload wiring,
// pollers) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	services     *Services
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, services *Services) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		services:     services,
		reloadSignal: syscall.SIGHUP,
	}
}

// Bootstrap builds the services and the server manager for cfg and registers
// the shutdown hooks that stop scheduling and the running capture.
func Bootstrap(cfg config.AppConfig, cfgHolder *config.ConfigHolder) (*App, error) {
	logger := log.WithComponent("daemon")

	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	mgr, err := NewManager(cfg.API, Deps{
		Logger:         logger,
		APIHandler:     services.API.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.Metrics.ListenAddr,
	})
	if err != nil {
		return nil, err
	}
	// LIFO: pollers stop before the capture is ended.
	mgr.RegisterShutdownHook("recorder", services.StopRecorder)
	mgr.RegisterShutdownHook("pollers", services.StopPollers)

	return NewApp(logger, mgr, cfgHolder, services), nil
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	if a.cfgHolder != nil && a.services != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.services.Apply(cfg)
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(context.Background()); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	if a.services != nil {
		a.services.Start(ctx)
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
