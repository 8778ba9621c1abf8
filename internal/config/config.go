// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the acblink runtime configuration.
//
// Precedence is ENV > file > defaults. The file is YAML and parsed strictly:
// unknown keys are rejected so typos surface at startup instead of silently
// falling back to defaults.
package config

import "time"

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version string

	DataDir       string
	RecordingsDir string

	LogLevel   string
	LogService string

	API       APIConfig
	Metrics   MetricsConfig
	Scheduler SchedulerConfig
	Recorder  RecorderConfig
	Events    EventsConfig
}

// APIConfig configures the local control API.
type APIConfig struct {
	ListenAddr      string
	RateLimit       int // requests per minute per client, 0 disables
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// MetricsConfig configures the Prometheus endpoint. Empty ListenAddr disables it.
type MetricsConfig struct {
	ListenAddr string
}

// SchedulerConfig configures the recording poller.
type SchedulerConfig struct {
	PollInterval time.Duration
	DueWindow    time.Duration
}

// RecorderConfig configures the stream capture engine.
type RecorderConfig struct {
	ChunkSize      int
	ConnectTimeout time.Duration
}

// EventsConfig configures the calendar event scheduler.
type EventsConfig struct {
	DefaultReminderMinutes int
}

// FileConfig mirrors the YAML document. Pointer fields distinguish "unset"
// from explicit zero values.
type FileConfig struct {
	DataDir       string `yaml:"dataDir,omitempty"`
	RecordingsDir string `yaml:"recordingsDir,omitempty"`
	LogLevel      string `yaml:"logLevel,omitempty"`
	LogService    string `yaml:"logService,omitempty"`

	API struct {
		Listen    string `yaml:"listen,omitempty"`
		RateLimit *int   `yaml:"rateLimit,omitempty"`
	} `yaml:"api,omitempty"`

	Metrics struct {
		Listen string `yaml:"listen,omitempty"`
	} `yaml:"metrics,omitempty"`

	Scheduler struct {
		PollInterval string `yaml:"pollInterval,omitempty"`
		DueWindow    string `yaml:"dueWindow,omitempty"`
	} `yaml:"scheduler,omitempty"`

	Recorder struct {
		ChunkSize      *int   `yaml:"chunkSize,omitempty"`
		ConnectTimeout string `yaml:"connectTimeout,omitempty"`
	} `yaml:"recorder,omitempty"`

	Events struct {
		DefaultReminderMinutes *int `yaml:"defaultReminderMinutes,omitempty"`
	} `yaml:"events,omitempty"`
}

const (
	DefaultAPIListenAddr      = "127.0.0.1:8765"
	DefaultAPIRateLimit       = 600
	DefaultPollInterval       = 30 * time.Second
	DefaultDueWindow          = time.Minute
	DefaultChunkSize          = 8192
	DefaultConnectTimeout     = 10 * time.Second
	DefaultReminderMinutes    = 15
	defaultAPIReadTimeout     = 10 * time.Second
	defaultAPIWriteTimeout    = 30 * time.Second
	defaultAPIShutdownTimeout = 10 * time.Second
	defaultLogLevel           = "info"
	defaultLogService         = "acblink"
	recordingsDirName         = "recordings"
)

// Defaults returns the configuration used when neither file nor ENV set a key.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   defaultLogLevel,
		LogService: defaultLogService,
		API: APIConfig{
			ListenAddr:      DefaultAPIListenAddr,
			RateLimit:       DefaultAPIRateLimit,
			ReadTimeout:     defaultAPIReadTimeout,
			WriteTimeout:    defaultAPIWriteTimeout,
			ShutdownTimeout: defaultAPIShutdownTimeout,
		},
		Scheduler: SchedulerConfig{
			PollInterval: DefaultPollInterval,
			DueWindow:    DefaultDueWindow,
		},
		Recorder: RecorderConfig{
			ChunkSize:      DefaultChunkSize,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Events: EventsConfig{
			DefaultReminderMinutes: DefaultReminderMinutes,
		},
	}
}
