// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/acblink/internal/log"
	platformnet "github.com/ManuGH/acblink/internal/platform/net"
	"github.com/google/uuid"
)

func normalizeRequest(req ScheduleRequest, requireStart bool) (ScheduleRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.StreamName = strings.TrimSpace(req.StreamName)
	req.StreamURL = strings.TrimSpace(req.StreamURL)
	req.PresetID = strings.TrimSpace(req.PresetID)

	if req.Name == "" {
		req.Name = req.StreamName
	}
	if req.Name == "" {
		return req, fmt.Errorf("%w: name or stream_name is required", ErrInvalidRecording)
	}
	if _, ok := platformnet.ParseStreamURL(req.StreamURL); !ok {
		return req, fmt.Errorf("%w: stream_url must be an absolute http(s) URL without credentials", ErrInvalidRecording)
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > MaxDurationMinutes {
		return req, fmt.Errorf("%w: duration_minutes must be between 1 and %d", ErrInvalidRecording, MaxDurationMinutes)
	}
	if req.Recurrence == "" {
		req.Recurrence = RecurrenceOnce
	}
	req.Recurrence = Recurrence(strings.ToLower(string(req.Recurrence)))
	if !req.Recurrence.Valid() {
		return req, fmt.Errorf("%w: unknown recurrence %q", ErrInvalidRecording, req.Recurrence)
	}
	if requireStart && req.StartTime.IsZero() {
		return req, fmt.Errorf("%w: start_time is required", ErrInvalidRecording)
	}
	return req, nil
}

// nextRunFor aligns a new or edited job. once keeps its start; recurring
// kinds move past starts to their next occurrence.
func nextRunFor(start, now time.Time, r Recurrence) time.Time {
	if !r.Recurring() {
		return start
	}
	return NextRun(start, now, r)
}

// applyRequestLocked copies the request and the resolved preset into rec and
// recomputes next_run and the output path.
func (m *Manager) applyRequestLocked(rec *ScheduledRecording, req ScheduleRequest, now time.Time) error {
	preset := m.resolvePresetLocked(req.PresetID)

	rec.Name = req.Name
	rec.StreamName = req.StreamName
	rec.StreamURL = req.StreamURL
	rec.StationID = req.StationID
	rec.StartTime = req.StartTime
	rec.DurationMinutes = req.DurationMinutes
	rec.Recurrence = req.Recurrence
	rec.PresetID = preset.ID
	rec.Format = preset.Format
	rec.Bitrate = preset.Bitrate
	rec.NextRun = nextRunFor(req.StartTime, now, req.Recurrence)

	dir := preset.OutputFolder
	if dir == "" {
		dir = m.recordingsDir
	}
	path, err := uniqueOutputPath(dir, rec.StreamName, rec.NextRun, rec.Format, m.pathTakenFunc(rec.ID))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	rec.OutputPath = path
	return nil
}

func (m *Manager) pathTakenFunc(selfID string) func(string) bool {
	return func(path string) bool {
		for id, r := range m.recordings {
			if id != selfID && r.OutputPath == path {
				return true
			}
		}
		return false
	}
}

func (m *Manager) createLocked(req ScheduleRequest, now time.Time) (ScheduledRecording, error) {
	rec := ScheduledRecording{
		ID:          uuid.New().String(),
		Status:      StatusScheduled,
		CreatedDate: now,
	}
	if err := m.applyRequestLocked(&rec, req, now); err != nil {
		return ScheduledRecording{}, err
	}
	m.recordings[rec.ID] = rec
	return rec, nil
}

// ScheduleRecording validates req and stores a new scheduled job. A missing
// preset falls back to the standard preset. Overlapping jobs are allowed.
func (m *Manager) ScheduleRecording(req ScheduleRequest) (ScheduledRecording, error) {
	req, err := normalizeRequest(req, true)
	if err != nil {
		return ScheduledRecording{}, err
	}

	now := m.now()
	m.mu.Lock()
	rec, err := m.createLocked(req, now)
	if err != nil {
		m.mu.Unlock()
		return ScheduledRecording{}, err
	}
	saveErr := m.saveRecordingsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)

	m.logger.Info().
		Str(log.FieldRecordingID, rec.ID).
		Str(log.FieldStreamName, rec.StreamName).
		Str(log.FieldRecurrence, string(rec.Recurrence)).
		Time("next_run", rec.NextRun).
		Str(log.FieldOutputPath, rec.OutputPath).
		Msg("recording scheduled")
	return rec, nil
}

// UpdateRecording applies a user edit to a job that is still scheduled.
func (m *Manager) UpdateRecording(id string, req ScheduleRequest) (ScheduledRecording, error) {
	req, err := normalizeRequest(req, true)
	if err != nil {
		return ScheduledRecording{}, err
	}

	now := m.now()
	m.mu.Lock()
	rec, ok := m.recordings[id]
	if !ok {
		m.mu.Unlock()
		return ScheduledRecording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	if rec.Status != StatusScheduled {
		m.mu.Unlock()
		return ScheduledRecording{}, fmt.Errorf("%w: cannot edit %s recording", ErrInvalidTransition, rec.Status)
	}
	if err := m.applyRequestLocked(&rec, req, now); err != nil {
		m.mu.Unlock()
		return ScheduledRecording{}, err
	}
	rec.ErrorMessage = ""
	m.recordings[id] = rec
	saveErr := m.saveRecordingsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)

	m.logger.Info().Str(log.FieldRecordingID, id).Time("next_run", rec.NextRun).Msg("recording updated")
	return rec, nil
}

// CancelRecording moves a scheduled job to cancelled. A capture the job
// started is stopped.
func (m *Manager) CancelRecording(id string) error {
	m.mu.Lock()
	rec, ok := m.recordings[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	if rec.Status != StatusScheduled {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, StatusCancelled)
	}
	rec.Status = StatusCancelled
	m.recordings[id] = rec
	capturing := m.activeID == id
	saveErr := m.saveRecordingsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)

	if capturing {
		m.engine.Stop()
	}
	m.logger.Info().
		Str(log.FieldRecordingID, id).
		Str(log.FieldOldState, string(StatusScheduled)).
		Str(log.FieldNewState, string(StatusCancelled)).
		Msg("recording cancelled")
	return nil
}

// DeleteRecording removes a job. If it is capturing, the capture is stopped.
func (m *Manager) DeleteRecording(id string) error {
	m.mu.Lock()
	if _, ok := m.recordings[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	delete(m.recordings, id)
	capturing := m.activeID == id
	saveErr := m.saveRecordingsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)

	if capturing {
		m.engine.Stop()
	}
	m.logger.Info().Str(log.FieldRecordingID, id).Bool("stopped_capture", capturing).Msg("recording deleted")
	return nil
}

// GetRecording returns the job with id, in any status.
func (m *Manager) GetRecording(id string) (ScheduledRecording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recordings[id]
	if !ok {
		return ScheduledRecording{}, fmt.Errorf("%w: %s", ErrRecordingNotFound, id)
	}
	return rec, nil
}

// ListRecordings returns every job ordered by next_run.
func (m *Manager) ListRecordings() []ScheduledRecording {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedRecordingsLocked()
}

// GetUpcomingRecordings returns scheduled jobs by ascending next_run.
func (m *Manager) GetUpcomingRecordings() []ScheduledRecording {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ScheduledRecording, 0, len(m.recordings))
	for _, r := range m.recordings {
		if r.Status == StatusScheduled {
			out = append(out, r)
		}
	}
	sortRecordings(out)
	return out
}

// RecordNow creates a once job starting now and fires it immediately. When
// the recorder is busy the job is kept as failed and an error wrapping
// recorder.ErrBusy is returned with it.
func (m *Manager) RecordNow(req ScheduleRequest) (ScheduledRecording, error) {
	now := m.now()
	req.StartTime = now
	req.Recurrence = RecurrenceOnce
	req, err := normalizeRequest(req, true)
	if err != nil {
		return ScheduledRecording{}, err
	}

	m.mu.Lock()
	rec, err := m.createLocked(req, now)
	if err != nil {
		m.mu.Unlock()
		return ScheduledRecording{}, err
	}
	rec, fireErr := m.fireLocked(rec.ID, now)
	saveErr := m.saveRecordingsLocked()
	m.mu.Unlock()
	m.reportSave(saveErr)

	if fireErr != nil {
		return rec, fmt.Errorf("record now: %w", fireErr)
	}
	return rec, nil
}

func (m *Manager) sortedRecordingsLocked() []ScheduledRecording {
	out := make([]ScheduledRecording, 0, len(m.recordings))
	for _, r := range m.recordings {
		out = append(out, r)
	}
	sortRecordings(out)
	return out
}

func sortRecordings(rs []ScheduledRecording) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].NextRun.Equal(rs[j].NextRun) {
			return rs[i].NextRun.Before(rs[j].NextRun)
		}
		if !rs[i].CreatedDate.Equal(rs[j].CreatedDate) {
			return rs[i].CreatedDate.Before(rs[j].CreatedDate)
		}
		return rs[i].ID < rs[j].ID
	})
}
