// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Path returns the config file path the loader reads, or "" for ENV-only mode.
func (l *Loader) Path() string {
	return l.configPath
}

// Load loads configuration with precedence: ENV > File > Defaults
// and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if err := resolvePaths(&cfg); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	if f.DataDir != "" {
		cfg.DataDir = os.ExpandEnv(f.DataDir)
	}
	if f.RecordingsDir != "" {
		cfg.RecordingsDir = os.ExpandEnv(f.RecordingsDir)
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogService != "" {
		cfg.LogService = f.LogService
	}
	if f.API.Listen != "" {
		cfg.API.ListenAddr = f.API.Listen
	}
	if f.API.RateLimit != nil {
		cfg.API.RateLimit = *f.API.RateLimit
	}
	if f.Metrics.Listen != "" {
		cfg.Metrics.ListenAddr = f.Metrics.Listen
	}
	if err := mergeDuration(&cfg.Scheduler.PollInterval, f.Scheduler.PollInterval, "scheduler.pollInterval"); err != nil {
		return err
	}
	if err := mergeDuration(&cfg.Scheduler.DueWindow, f.Scheduler.DueWindow, "scheduler.dueWindow"); err != nil {
		return err
	}
	if f.Recorder.ChunkSize != nil {
		cfg.Recorder.ChunkSize = *f.Recorder.ChunkSize
	}
	if err := mergeDuration(&cfg.Recorder.ConnectTimeout, f.Recorder.ConnectTimeout, "recorder.connectTimeout"); err != nil {
		return err
	}
	if f.Events.DefaultReminderMinutes != nil {
		cfg.Events.DefaultReminderMinutes = *f.Events.DefaultReminderMinutes
	}
	return nil
}

func mergeDuration(dst *time.Duration, raw, key string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.RecordingsDir = ParseString(EnvRecordingsDir, cfg.RecordingsDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = ParseString(EnvLogService, cfg.LogService)
	cfg.API.ListenAddr = ParseString(EnvAPIListen, cfg.API.ListenAddr)
	cfg.API.RateLimit = ParseInt(EnvAPIRateLimit, cfg.API.RateLimit)
	cfg.Metrics.ListenAddr = ParseString(EnvMetricsListen, cfg.Metrics.ListenAddr)
	cfg.Scheduler.PollInterval = ParseDuration(EnvPollInterval, cfg.Scheduler.PollInterval)
	cfg.Scheduler.DueWindow = ParseDuration(EnvDueWindow, cfg.Scheduler.DueWindow)
	cfg.Recorder.ChunkSize = ParseInt(EnvChunkSize, cfg.Recorder.ChunkSize)
	cfg.Recorder.ConnectTimeout = ParseDuration(EnvConnectTimeout, cfg.Recorder.ConnectTimeout)
	cfg.Events.DefaultReminderMinutes = ParseInt(EnvReminderMinutes, cfg.Events.DefaultReminderMinutes)
}

func resolvePaths(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = dir
	}
	// Ensure DataDir is absolute so persisted output paths stay stable across working directories.
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}

	if strings.TrimSpace(cfg.RecordingsDir) == "" {
		cfg.RecordingsDir = filepath.Join(cfg.DataDir, recordingsDirName)
	}
	if abs, err := filepath.Abs(cfg.RecordingsDir); err == nil {
		cfg.RecordingsDir = abs
	}
	return nil
}
