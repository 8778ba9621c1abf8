// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ManuGH/acblink/internal/events"
	"github.com/go-chi/chi/v5"
)

// ScheduleEventRequest is the body of POST /api/events. A missing
// reminder_minutes selects the configured default.
type ScheduleEventRequest struct {
	events.CalendarEvent
	ReminderMinutes *int          `json:"reminder_minutes,omitempty"`
	Action          events.Action `json:"action,omitempty"`
	PresetID        string        `json:"preset_id,omitempty"`
}

// EventsResponse wraps the event list.
type EventsResponse struct {
	Events []events.ScheduledEvent `json:"events"`
}

// AlertsResponse wraps upcoming alerts.
type AlertsResponse struct {
	Hours  int            `json:"hours"`
	Alerts []events.Alert `json:"alerts"`
}

// NowPlayingResponse reports the stream last tuned by an event action.
type NowPlayingResponse struct {
	Playing bool          `json:"playing"`
	Tuned   *events.Tuned `json:"tuned,omitempty"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, EventsResponse{Events: s.events.ListEvents()})
}

func (s *Server) handleScheduleEvent(w http.ResponseWriter, r *http.Request) {
	var req ScheduleEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reminder := -1
	if req.ReminderMinutes != nil {
		if *req.ReminderMinutes < 0 {
			writeError(w, r, fmt.Errorf("%w: reminder_minutes must not be negative", errBadRequest))
			return
		}
		reminder = *req.ReminderMinutes
	}
	ev, err := s.events.ScheduleEvent(req.CalendarEvent, reminder, req.Action, req.PresetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.events.GetEvent(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.events.CancelEvent(id); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.events.GetEvent(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.events.DeleteEvent(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	hours := events.DefaultAlertHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > events.MaxAlertHours {
			writeError(w, r, fmt.Errorf("%w: hours must be between 1 and %d", errBadRequest, events.MaxAlertHours))
			return
		}
		hours = n
	}
	alerts := s.events.GetUpcomingAlerts(hours)
	if alerts == nil {
		alerts = []events.Alert{}
	}
	writeJSON(w, http.StatusOK, AlertsResponse{Hours: hours, Alerts: alerts})
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, _ *http.Request) {
	tuned, ok := s.nowPlaying.Current()
	if !ok {
		writeJSON(w, http.StatusOK, NowPlayingResponse{})
		return
	}
	writeJSON(w, http.StatusOK, NowPlayingResponse{Playing: true, Tuned: &tuned})
}
