// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"errors"
	"time"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
)

// Action is what happens when an event starts.
type Action string

const (
	ActionAlert      Action = "alert"
	ActionTune       Action = "tune"
	ActionRecord     Action = "record"
	ActionTuneRecord Action = "tune_record"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionAlert, ActionTune, ActionRecord, ActionTuneRecord:
		return true
	}
	return false
}

// Tunes reports whether the action switches playback to the event stream.
func (a Action) Tunes() bool { return a == ActionTune || a == ActionTuneRecord }

// Records reports whether the action starts a recording.
func (a Action) Records() bool { return a == ActionRecord || a == ActionTuneRecord }

// Status of a scheduled event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// CalendarEvent is an entry of the ACB Media events calendar.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	StreamName  string    `json:"stream_name,omitempty"`
	StreamURL   string    `json:"stream_url,omitempty"`
}

// ScheduledEvent is a calendar event the user asked to be reminded of.
type ScheduledEvent struct {
	CalendarEvent
	ReminderMinutes int       `json:"reminder_minutes"`
	Action          Action    `json:"action"`
	PresetID        string    `json:"preset_id,omitempty"`
	AlertFired      bool      `json:"alert_fired"`
	ActionFired     bool      `json:"action_fired"`
	Status          Status    `json:"status"`
	RecordingID     string    `json:"recording_id,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedDate     time.Time `json:"created_date"`
}

// AlertAt is when the reminder becomes due.
func (e ScheduledEvent) AlertAt() time.Time {
	return e.Start.Add(-time.Duration(e.ReminderMinutes) * time.Minute)
}

// Alert priorities, lowest first in GetUpcomingAlerts.
const (
	PriorityLive = iota
	PrioritySoon
	PriorityWithinHour
	PriorityLater
)

// Alert is a display-ready reminder.
type Alert struct {
	EventID      string    `json:"event_id"`
	Title        string    `json:"title"`
	Category     string    `json:"category,omitempty"`
	StreamName   string    `json:"stream_name,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Live         bool      `json:"live"`
	MinutesUntil int       `json:"minutes_until"`
	Priority     int       `json:"priority"`
	Label        string    `json:"label"`
}
