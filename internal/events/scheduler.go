// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events schedules reminders and automatic actions for calendar events.
package events

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/ManuGH/acblink/internal/fsutil"
	"github.com/ManuGH/acblink/internal/log"
	"github.com/ManuGH/acblink/internal/metrics"
	platformnet "github.com/ManuGH/acblink/internal/platform/net"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventsFile = "scheduled_events.json"

	DefaultReminderMinutes = 15
	DefaultAlertHours      = 24
	MaxAlertHours          = 366 * 24
)

var (
	errNoTuner    = errors.New("no tuner configured")
	errNoRecorder = errors.New("no recorder configured")
)

// RecordingStarter starts an immediate capture for an event.
type RecordingStarter interface {
	RecordNow(req dvr.ScheduleRequest) (dvr.ScheduledRecording, error)
}

// Options configure a Scheduler.
type Options struct {
	DataDir         string
	DueWindow       time.Duration
	// DefaultReminder is the lead time in minutes for events scheduled without
	// one. Zero or less selects DefaultReminderMinutes.
	DefaultReminder int
	Recorder        RecordingStarter
	Tuner           Tuner
	Now             func() time.Time
}

// Scheduler tracks scheduled calendar events.
type Scheduler struct {
	mu              sync.Mutex
	events          map[string]ScheduledEvent
	saveErr         error
	path            string
	dueWindow       time.Duration
	defaultReminder int
	now             func() time.Time
	recorder        RecordingStarter
	tuner           Tuner
	logger          zerolog.Logger

	cbMu    sync.RWMutex
	onAlert func(Alert)
}

// NewScheduler returns an empty scheduler. Call Load to read persisted events.
func NewScheduler(opts Options) *Scheduler {
	dueWindow := opts.DueWindow
	if dueWindow <= 0 {
		dueWindow = dvr.DefaultDueWindow
	}
	reminder := opts.DefaultReminder
	if reminder <= 0 {
		reminder = DefaultReminderMinutes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		events:          make(map[string]ScheduledEvent),
		path:            filepath.Join(opts.DataDir, EventsFile),
		dueWindow:       dueWindow,
		defaultReminder: reminder,
		now:             now,
		recorder:        opts.Recorder,
		tuner:           opts.Tuner,
		logger:          log.WithComponent("events.scheduler"),
	}
}

// SetOnAlert installs the reminder callback. It runs on the poller goroutine.
func (s *Scheduler) SetOnAlert(fn func(Alert)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onAlert = fn
}

// SetDueWindow changes how long after start an action may still run.
func (s *Scheduler) SetDueWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.dueWindow = d
	s.mu.Unlock()
}

type eventsDoc struct {
	Events []ScheduledEvent `json:"events"`
}

// Load replaces in-memory events with the persisted file.
func (s *Scheduler) Load() error {
	var doc eventsDoc
	if _, err := fsutil.ReadJSON(s.path, &doc); err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	s.mu.Lock()
	s.events = make(map[string]ScheduledEvent, len(doc.Events))
	for _, ev := range doc.Events {
		if ev.ID == "" {
			continue
		}
		s.events[ev.ID] = ev
	}
	count := len(s.events)
	s.mu.Unlock()

	s.logger.Info().Int("events", count).Str(log.FieldPath, s.path).Msg("scheduled events loaded")
	return nil
}

func (s *Scheduler) saveLocked() {
	doc := eventsDoc{Events: s.sortedLocked()}
	if err := fsutil.WriteJSONAtomic(s.path, doc); err != nil {
		s.saveErr = err
		metrics.IncPersistenceFailure(s.path)
		s.logger.Error().
			Err(err).
			Str(log.FieldPath, s.path).
			Str(log.FieldEvent, "events.save_failed").
			Msg("failed to persist events, keeping in-memory copy")
		return
	}
	s.saveErr = nil
}

// LastSaveError returns the error of the most recent write.
func (s *Scheduler) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// SaveHealthy reports whether the last write succeeded.
func (s *Scheduler) SaveHealthy() bool {
	return s.LastSaveError() == nil
}

// ScheduleEvent registers a calendar event. A negative reminder selects the
// configured default; an empty action means alert only.
func (s *Scheduler) ScheduleEvent(ev CalendarEvent, reminderMinutes int, action Action, presetID string) (ScheduledEvent, error) {
	now := s.now()
	ev.Title = strings.TrimSpace(ev.Title)
	if action == "" {
		action = ActionAlert
	}
	switch {
	case ev.Title == "":
		return ScheduledEvent{}, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	case ev.Start.IsZero() || !ev.End.After(ev.Start):
		return ScheduledEvent{}, fmt.Errorf("%w: end must be after start", ErrInvalidEvent)
	case !ev.End.After(now):
		return ScheduledEvent{}, fmt.Errorf("%w: event is already over", ErrInvalidEvent)
	case !action.Valid():
		return ScheduledEvent{}, fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, action)
	case action != ActionAlert && ev.StreamURL == "":
		return ScheduledEvent{}, fmt.Errorf("%w: action %s needs a stream url", ErrInvalidEvent, action)
	case ev.StreamURL != "" && !validStreamURL(ev.StreamURL):
		return ScheduledEvent{}, fmt.Errorf("%w: stream url must be an absolute http(s) URL", ErrInvalidEvent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if _, exists := s.events[ev.ID]; exists {
		return ScheduledEvent{}, fmt.Errorf("%w: event %s already scheduled", ErrInvalidEvent, ev.ID)
	}
	if reminderMinutes < 0 {
		reminderMinutes = s.defaultReminder
	}
	scheduled := ScheduledEvent{
		CalendarEvent:   ev,
		ReminderMinutes: reminderMinutes,
		Action:          action,
		PresetID:        presetID,
		Status:          StatusPending,
		CreatedDate:     now,
	}
	s.events[ev.ID] = scheduled
	s.saveLocked()

	s.logger.Info().
		Str(log.FieldEventID, ev.ID).
		Str("action", string(action)).
		Time("start", ev.Start).
		Msg("event scheduled")
	return scheduled, nil
}

// CancelEvent stops reminders and actions for a pending or active event.
func (s *Scheduler) CancelEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if ev.Status != StatusPending && ev.Status != StatusActive {
		return fmt.Errorf("%w: event is %s", dvr.ErrInvalidTransition, ev.Status)
	}
	ev.Status = StatusCancelled
	s.events[id] = ev
	s.saveLocked()
	s.logger.Info().Str(log.FieldEventID, id).Msg("event cancelled")
	return nil
}

// DeleteEvent removes an event. A recording it started keeps running.
func (s *Scheduler) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	delete(s.events, id)
	s.saveLocked()
	return nil
}

// GetEvent returns one event.
func (s *Scheduler) GetEvent(id string) (ScheduledEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return ScheduledEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return ev, nil
}

// ListEvents returns all events ordered by start time.
func (s *Scheduler) ListEvents() []ScheduledEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Scheduler) sortedLocked() []ScheduledEvent {
	out := make([]ScheduledEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CheckDue fires due reminders and actions and completes finished events.
// Tuning and recording run without the scheduler lock held.
func (s *Scheduler) CheckDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var (
		alerts  []Alert
		actions []ScheduledEvent
		changed bool
	)
	for id, ev := range s.events {
		if ev.Status != StatusPending && ev.Status != StatusActive {
			continue
		}
		if !now.Before(ev.End) {
			ev.Status = StatusCompleted
			s.events[id] = ev
			changed = true
			continue
		}
		if !ev.AlertFired && !now.Before(ev.AlertAt()) {
			ev.AlertFired = true
			alerts = append(alerts, buildAlert(ev, now))
			changed = true
		}
		if !now.Before(ev.Start) {
			if ev.Status == StatusPending {
				ev.Status = StatusActive
				changed = true
			}
			if ev.Action != ActionAlert && !ev.ActionFired && !now.After(ev.Start.Add(s.dueWindow)) {
				ev.ActionFired = true
				actions = append(actions, ev)
				changed = true
			}
		}
		s.events[id] = ev
	}
	if changed {
		s.saveLocked()
	}
	s.mu.Unlock()

	sortAlerts(alerts)
	s.cbMu.RLock()
	onAlert := s.onAlert
	s.cbMu.RUnlock()
	for _, a := range alerts {
		metrics.IncEventAlert()
		s.logger.Info().
			Str(log.FieldEventID, a.EventID).
			Str("label", a.Label).
			Str(log.FieldEvent, "events.alert").
			Msg("event reminder")
		if onAlert != nil {
			s.safeAlert(onAlert, a)
		}
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].Start.Before(actions[j].Start) })
	for _, ev := range actions {
		if ctx.Err() != nil {
			return
		}
		s.runAction(ctx, ev, now)
	}
}

func (s *Scheduler) safeAlert(fn func(Alert), a Alert) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str(log.FieldEventID, a.EventID).Msg("alert callback panicked")
		}
	}()
	fn(a)
}

func (s *Scheduler) runAction(ctx context.Context, ev ScheduledEvent, now time.Time) {
	var (
		errs        []string
		recordingID string
	)
	logger := s.logger.With().Str(log.FieldEventID, ev.ID).Str("action", string(ev.Action)).Logger()

	if ev.Action.Tunes() {
		err := errNoTuner
		if s.tuner != nil {
			err = s.tuner.Tune(ctx, ev.StreamName, ev.StreamURL)
		}
		metrics.IncEventAction("tune", err == nil)
		if err != nil {
			errs = append(errs, "tune: "+err.Error())
			logger.Warn().Err(err).Msg("event tune failed")
		}
	}

	if ev.Action.Records() {
		err := errNoRecorder
		if s.recorder != nil {
			var rec dvr.ScheduledRecording
			rec, err = s.recorder.RecordNow(dvr.ScheduleRequest{
				Name:            ev.Title,
				StreamName:      ev.StreamName,
				StreamURL:       ev.StreamURL,
				DurationMinutes: remainingMinutes(ev, now),
				PresetID:        ev.PresetID,
			})
			recordingID = rec.ID
		}
		metrics.IncEventAction("record", err == nil)
		if err != nil {
			errs = append(errs, "record: "+err.Error())
			logger.Warn().Err(err).Msg("event recording failed")
		} else {
			logger.Info().Str(log.FieldRecordingID, recordingID).Msg("event recording started")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[ev.ID]
	if !ok {
		return
	}
	cur.RecordingID = recordingID
	cur.ErrorMessage = strings.Join(errs, "; ")
	s.events[ev.ID] = cur
	s.saveLocked()
}

// remainingMinutes is the time left until the event ends, rounded up to whole
// minutes, so a late fire inside the due window does not run past the end.
func remainingMinutes(ev ScheduledEvent, now time.Time) int {
	d := ev.End.Sub(now)
	minutes := int((d + time.Minute - 1) / time.Minute)
	return max(minutes, 1)
}

func validStreamURL(raw string) bool {
	_, ok := platformnet.ParseStreamURL(raw)
	return ok
}
