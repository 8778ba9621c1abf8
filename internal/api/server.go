// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the local JSON control API of the acblink daemon.
package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/acblink/internal/api/middleware"
	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/ManuGH/acblink/internal/events"
	"github.com/go-chi/chi/v5"
)

// Deps are the services the API exposes.
type Deps struct {
	Recordings *dvr.Manager
	Events     *events.Scheduler
	NowPlaying *events.NowPlaying
	Version    string
	// RateLimit is the per-client request budget per minute, 0 disables it.
	RateLimit int
	Now       func() time.Time
}

// Server represents the HTTP API server.
type Server struct {
	recordings *dvr.Manager
	events     *events.Scheduler
	nowPlaying *events.NowPlaying
	version    string
	startTime  time.Time
	now        func() time.Time
	router     chi.Router
}

// New builds the API server and its routes.
func New(deps Deps) *Server {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	nowPlaying := deps.NowPlaying
	if nowPlaying == nil {
		nowPlaying = events.NewNowPlaying()
	}
	s := &Server{
		recordings: deps.Recordings,
		events:     deps.Events,
		nowPlaying: nowPlaying,
		version:    deps.Version,
		startTime:  now(),
		now:        now,
	}
	s.router = s.routes(deps.RateLimit)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(rateLimit int) chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableLogging:         true,
		RateLimitPerMinute:    rateLimit,
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Detail: r.URL.Path})
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/recordings", func(r chi.Router) {
			r.Get("/", s.handleListRecordings)
			r.Post("/", s.handleScheduleRecording)
			r.Get("/upcoming", s.handleUpcomingRecordings)
			r.Post("/now", s.handleRecordNow)
			r.Get("/{id}", s.handleGetRecording)
			r.Put("/{id}", s.handleUpdateRecording)
			r.Post("/{id}/cancel", s.handleCancelRecording)
			r.Delete("/{id}", s.handleDeleteRecording)
		})

		r.Get("/recorder", s.handleRecorderStatus)
		r.Post("/recorder/stop", s.handleRecorderStop)

		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.handleListPresets)
			r.Post("/", s.handleCreatePreset)
			r.Get("/{id}", s.handleGetPreset)
			r.Put("/{id}", s.handleUpdatePreset)
			r.Delete("/{id}", s.handleDeletePreset)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleScheduleEvent)
			r.Get("/{id}", s.handleGetEvent)
			r.Post("/{id}/cancel", s.handleCancelEvent)
			r.Delete("/{id}", s.handleDeleteEvent)
		})

		r.Get("/alerts", s.handleAlerts)
		r.Get("/now-playing", s.handleNowPlaying)
	})

	return r
}
