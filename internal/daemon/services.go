// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/acblink/internal/api"
	"github.com/ManuGH/acblink/internal/config"
	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/ManuGH/acblink/internal/events"
	"github.com/ManuGH/acblink/internal/log"
	"github.com/ManuGH/acblink/internal/platform/httpx"
	platformnet "github.com/ManuGH/acblink/internal/platform/net"
	"github.com/ManuGH/acblink/internal/recorder"
	"github.com/rs/zerolog"
)

// Services holds the long-lived domain services of a running daemon.
type Services struct {
	Engine      *recorder.Engine
	Recordings  *dvr.Manager
	Events      *events.Scheduler
	NowPlaying  *events.NowPlaying
	RecPoller   *dvr.Poller
	EventPoller *dvr.Poller
	API         *api.Server

	logger zerolog.Logger
}

// NewServices builds and loads the recording and event services for cfg.
func NewServices(cfg config.AppConfig) (*Services, error) {
	logger := log.WithComponent("daemon.services")

	engine := recorder.NewEngine(recorder.Options{
		Client:    httpx.NewStreamingClient(cfg.Recorder.ConnectTimeout),
		ChunkSize: cfg.Recorder.ChunkSize,
	})

	recordings := dvr.NewManager(dvr.Options{
		DataDir:       cfg.DataDir,
		RecordingsDir: cfg.RecordingsDir,
		DueWindow:     cfg.Scheduler.DueWindow,
		Recorder:      engine,
	})
	if err := recordings.Load(); err != nil {
		return nil, fmt.Errorf("load recordings: %w", err)
	}

	nowPlaying := events.NewNowPlaying()
	scheduler := events.NewScheduler(events.Options{
		DataDir:         cfg.DataDir,
		DueWindow:       cfg.Scheduler.DueWindow,
		DefaultReminder: cfg.Events.DefaultReminderMinutes,
		Recorder:        recordings,
		Tuner:           nowPlaying,
	})
	if err := scheduler.Load(); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	s := &Services{
		Engine:     engine,
		Recordings: recordings,
		Events:     scheduler,
		NowPlaying: nowPlaying,
		logger:     logger,
	}
	recordings.SetCallbacks(dvr.Callbacks{
		OnRecordingStart:    s.onRecordingStart,
		OnRecordingComplete: s.onRecordingComplete,
		OnRecordingError:    s.onRecordingError,
		OnSaveError:         s.onSaveError,
	})
	scheduler.SetOnAlert(s.onAlert)

	pollerOpts := dvr.PollerOptions{Interval: cfg.Scheduler.PollInterval}
	s.RecPoller = dvr.NewPoller("recordings", recordings, pollerOpts)
	s.EventPoller = dvr.NewPoller("events", scheduler, pollerOpts)

	s.API = api.New(api.Deps{
		Recordings: recordings,
		Events:     scheduler,
		NowPlaying: nowPlaying,
		Version:    cfg.Version,
		RateLimit:  cfg.API.RateLimit,
	})
	return s, nil
}

// Start launches both pollers. They stop with ctx or StopPollers.
func (s *Services) Start(ctx context.Context) {
	s.RecPoller.Start(ctx)
	s.EventPoller.Start(ctx)
}

// StopPollers halts scheduling.
func (s *Services) StopPollers(context.Context) error {
	s.RecPoller.Stop()
	s.EventPoller.Stop()
	return nil
}

// StopRecorder ends a running capture and waits for its file to be closed.
func (s *Services) StopRecorder(ctx context.Context) error {
	if s.Engine.Stop() {
		s.logger.Info().Msg("stopping active capture for shutdown")
	}
	if err := s.Engine.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("wait for capture: %w", err)
	}
	return nil
}

// Apply pushes the reloadable parts of a new configuration into the services.
func (s *Services) Apply(cfg config.AppConfig) {
	if cfg.LogLevel != "" && !log.SetLevel(cfg.LogLevel) {
		s.logger.Warn().Str("level", cfg.LogLevel).Msg("ignoring invalid log level from reload")
	}
	s.RecPoller.SetInterval(cfg.Scheduler.PollInterval)
	s.EventPoller.SetInterval(cfg.Scheduler.PollInterval)
	s.Recordings.SetDueWindow(cfg.Scheduler.DueWindow)
	s.Events.SetDueWindow(cfg.Scheduler.DueWindow)
}

func (s *Services) onRecordingStart(item recorder.Item) {
	s.logger.Info().
		Str(log.FieldRecordingID, item.ScheduledID).
		Str(log.FieldStreamName, item.StreamName).
		Str(log.FieldOutputPath, item.OutputPath).
		Msg("recording started")
}

func (s *Services) onRecordingComplete(item recorder.Item, path string) {
	s.logger.Info().
		Str(log.FieldRecordingID, item.ScheduledID).
		Str("status", string(item.Status)).
		Int64("bytes", item.BytesWritten).
		Str(log.FieldOutputPath, path).
		Msg("recording finished")
}

func (s *Services) onRecordingError(item recorder.Item, err error) {
	s.logger.Warn().
		Err(err).
		Str(log.FieldRecordingID, item.ScheduledID).
		Str(log.FieldStreamURL, platformnet.SanitizeURL(item.StreamURL)).
		Msg("recording failed")
}

func (s *Services) onSaveError(err error) {
	s.logger.Error().Err(err).Msg("scheduled recordings could not be saved")
}

func (s *Services) onAlert(a events.Alert) {
	s.logger.Info().
		Str(log.FieldEventID, a.EventID).
		Str("title", a.Title).
		Str("label", a.Label).
		Msg("event alert")
}
