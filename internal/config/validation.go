// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks a resolved configuration and returns all problems at once.
func Validate(cfg AppConfig) error {
	var errs []error

	if cfg.DataDir == "" {
		errs = append(errs, errors.New("dataDir must not be empty"))
	}
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("logLevel %q: %w", cfg.LogLevel, err))
		}
	}
	if err := validateListen("api.listen", cfg.API.ListenAddr, true); err != nil {
		errs = append(errs, err)
	}
	if err := validateListen("metrics.listen", cfg.Metrics.ListenAddr, false); err != nil {
		errs = append(errs, err)
	}
	if cfg.API.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("api.rateLimit must be >= 0, got %d", cfg.API.RateLimit))
	}
	if cfg.Scheduler.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("scheduler.pollInterval must be >= 1s, got %s", cfg.Scheduler.PollInterval))
	}
	if cfg.Scheduler.DueWindow < cfg.Scheduler.PollInterval {
		// A window shorter than the poll cadence can skip a fire entirely.
		errs = append(errs, fmt.Errorf("scheduler.dueWindow (%s) must be >= scheduler.pollInterval (%s)",
			cfg.Scheduler.DueWindow, cfg.Scheduler.PollInterval))
	}
	if cfg.Recorder.ChunkSize < 512 {
		errs = append(errs, fmt.Errorf("recorder.chunkSize must be >= 512, got %d", cfg.Recorder.ChunkSize))
	}
	if cfg.Recorder.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("recorder.connectTimeout must be > 0, got %s", cfg.Recorder.ConnectTimeout))
	}
	if cfg.Events.DefaultReminderMinutes < 1 {
		errs = append(errs, fmt.Errorf("events.defaultReminderMinutes must be >= 1, got %d", cfg.Events.DefaultReminderMinutes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func validateListen(key, addr string, required bool) error {
	if addr == "" {
		if required {
			return fmt.Errorf("%s must not be empty", key)
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s %q: %w", key, addr, err)
	}
	return nil
}
