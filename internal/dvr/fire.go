// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/acblink/internal/log"
	"github.com/ManuGH/acblink/internal/metrics"
	"github.com/ManuGH/acblink/internal/recorder"
	"github.com/google/uuid"
)

// CheckDue fires every scheduled job whose next_run lies in
// [next_run, next_run+DueWindow] around now, earliest first. Recurring jobs
// whose window passed unnoticed are moved to their next occurrence without
// firing; missed once jobs are left alone.
func (m *Manager) CheckDue(ctx context.Context, now time.Time) {
	m.mu.Lock()

	var due []ScheduledRecording
	changed := false
	for id, r := range m.recordings {
		if r.Status != StatusScheduled {
			continue
		}
		switch {
		case now.Before(r.NextRun):
		case !now.After(r.NextRun.Add(m.dueWindow)):
			due = append(due, r)
		case r.Recurrence.Recurring():
			missed := r.NextRun
			r.NextRun = NextRun(r.StartTime, now, r.Recurrence)
			m.recordings[id] = r
			changed = true
			m.logger.Warn().
				Str(log.FieldRecordingID, id).
				Time("missed", missed).
				Time("next_run", r.NextRun).
				Str("event", "dvr.fire_missed").
				Msg("recurring recording missed its window, skipping to next occurrence")
		}
	}
	sortRecordings(due)

	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		_, _ = m.fireLocked(r.ID, now)
		changed = true
	}

	var saveErr error
	if changed {
		saveErr = m.saveRecordingsLocked()
	}
	m.mu.Unlock()
	m.reportSave(saveErr)
}

// fireLocked hands the job to the recorder. Recurring jobs advance next_run
// before the capture outcome is known and are back to scheduled right away;
// a refused start never retries.
func (m *Manager) fireLocked(id string, now time.Time) (ScheduledRecording, error) {
	rec, ok := m.recordings[id]
	if !ok {
		return ScheduledRecording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	kind := string(rec.Recurrence)
	recurring := rec.Recurrence.Recurring()
	logger := m.logger.With().
		Str(log.FieldRecordingID, id).
		Str(log.FieldRecurrence, kind).
		Logger()

	if recurring {
		rec.NextRun = NextRun(rec.StartTime, now, rec.Recurrence)
	}

	fail := func(msg string, err error) (ScheduledRecording, error) {
		rec.ErrorMessage = msg
		if !recurring {
			rec.Status = StatusFailed
		}
		m.recordings[id] = rec
		return rec, err
	}

	if recurring || rec.OutputPath == "" {
		dir := m.recordingsDir
		if rec.OutputPath != "" {
			dir = filepath.Dir(rec.OutputPath)
		}
		path, err := uniqueOutputPath(dir, rec.StreamName, now, rec.Format, m.pathTakenFunc(id))
		if err != nil {
			metrics.IncSchedulerFire(kind, "error")
			logger.Error().Err(err).Str("event", "dvr.fire_failed").Msg("cannot allocate output path")
			return fail(err.Error(), err)
		}
		rec.OutputPath = path
	}

	item := &recorder.Item{
		ID:          uuid.New().String(),
		ScheduledID: id,
		Name:        rec.Name,
		StreamName:  rec.StreamName,
		StreamURL:   rec.StreamURL,
		OutputPath:  rec.OutputPath,
		Start:       now,
		End:         now.Add(rec.Duration()),
		Status:      recorder.StatusPending,
	}

	if !m.engine.Start(item) {
		metrics.IncSchedulerFire(kind, "busy")
		logger.Warn().
			Time("next_run", rec.NextRun).
			Str("event", "dvr.fire_busy").
			Msg("recorder busy, scheduled fire refused")
		return fail(busyMessage, recorder.ErrBusy)
	}

	lastRun := now
	rec.LastRun = &lastRun
	rec.ErrorMessage = ""
	rec.Status = StatusRecording
	if recurring {
		rec.Status = StatusScheduled
	}
	m.recordings[id] = rec
	m.activeID = id

	metrics.IncSchedulerFire(kind, "started")
	logger.Info().
		Str(log.FieldItemID, item.ID).
		Str(log.FieldOutputPath, item.OutputPath).
		Time("end", item.End).
		Time("next_run", rec.NextRun).
		Str("event", "dvr.fired").
		Msg("scheduled recording started")
	return rec, nil
}

func (m *Manager) handleStart(item recorder.Item) {
	if cb := m.currentCallbacks().OnRecordingStart; cb != nil {
		cb(item)
	}
}

func (m *Manager) handleProgress(item recorder.Item, percent float64, bytes int64) {
	if cb := m.currentCallbacks().OnProgress; cb != nil {
		cb(item, percent, bytes)
	}
}

func (m *Manager) handleComplete(item recorder.Item, path string) {
	m.finish(item, func(rec *ScheduledRecording) bool {
		if rec.Recurrence.Recurring() || rec.Status != StatusRecording {
			return false
		}
		rec.Status = StatusCompleted
		if item.Status == recorder.StatusStopped {
			rec.ErrorMessage = stoppedMessage
		}
		return true
	})
	if cb := m.currentCallbacks().OnRecordingComplete; cb != nil {
		cb(item, path)
	}
}

func (m *Manager) handleError(item recorder.Item, err error) {
	m.finish(item, func(rec *ScheduledRecording) bool {
		rec.ErrorMessage = err.Error()
		if !rec.Recurrence.Recurring() && rec.Status == StatusRecording {
			rec.Status = StatusFailed
		}
		return true
	})
	if cb := m.currentCallbacks().OnRecordingError; cb != nil {
		cb(item, err)
	}
}

// finish releases the active marker and applies the terminal update to the
// parent job, if it still exists.
func (m *Manager) finish(item recorder.Item, update func(*ScheduledRecording) bool) {
	m.mu.Lock()
	if m.activeID == item.ScheduledID {
		m.activeID = ""
	}
	var saveErr error
	if rec, ok := m.recordings[item.ScheduledID]; ok && item.ScheduledID != "" {
		old := rec.Status
		if update(&rec) {
			m.recordings[rec.ID] = rec
			saveErr = m.saveRecordingsLocked()
			m.logger.Info().
				Str(log.FieldRecordingID, rec.ID).
				Str(log.FieldItemID, item.ID).
				Str(log.FieldOldState, string(old)).
				Str(log.FieldNewState, string(rec.Status)).
				Str("capture", string(item.Status)).
				Msg("recording finished")
		}
	}
	m.mu.Unlock()
	m.reportSave(saveErr)
}
