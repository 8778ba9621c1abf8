// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"errors"
	"time"
)

var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrPresetNotFound    = errors.New("preset not found")
	ErrBuiltinPreset     = errors.New("built-in presets cannot be deleted")
	ErrInvalidRecording  = errors.New("invalid recording")
	ErrInvalidPreset     = errors.New("invalid preset")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MaxDurationMinutes caps a single capture at one week.
const MaxDurationMinutes = 7 * 24 * 60

// Format is the container/codec of a recording.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatOGG  Format = "ogg"
	FormatAAC  Format = "aac"
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
)

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	switch f {
	case FormatMP3, FormatOGG, FormatAAC, FormatWAV, FormatFLAC:
		return true
	}
	return false
}

// Lossless formats carry no bitrate.
func (f Format) Lossless() bool {
	return f == FormatWAV || f == FormatFLAC
}

// Extension is the file extension without the dot.
func (f Format) Extension() string {
	if !f.Valid() {
		return string(FormatMP3)
	}
	return string(f)
}

// Recurrence controls how next_run advances after a fire.
type Recurrence string

const (
	RecurrenceOnce     Recurrence = "once"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceWeekdays Recurrence = "weekdays"
	RecurrenceWeekends Recurrence = "weekends"
)

// Valid reports whether r is a known recurrence kind.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceWeekdays, RecurrenceWeekends:
		return true
	}
	return false
}

// Recurring is true for every kind except once.
func (r Recurrence) Recurring() bool {
	return r.Valid() && r != RecurrenceOnce
}

// Status of a scheduled recording.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRecording Status = "recording"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Preset bundles output settings referenced by scheduled recordings.
type Preset struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Format        Format `json:"format"`
	Bitrate       int    `json:"bitrate"`
	SplitInterval int    `json:"split_interval,omitempty"` // minutes, 0 = none
	OutputFolder  string `json:"output_folder,omitempty"`
	AutoMetadata  bool   `json:"auto_metadata"`
}

// ScheduledRecording is a persisted recording job.
type ScheduledRecording struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	StreamName      string     `json:"stream_name"`
	StreamURL       string     `json:"stream_url"`
	StationID       string     `json:"station_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Recurrence      Recurrence `json:"recurrence"`
	PresetID        string     `json:"preset_id"`
	Format          Format     `json:"format"`
	Bitrate         int        `json:"bitrate"`
	OutputPath      string     `json:"output_path"`
	Status          Status     `json:"status"`
	LastRun         *time.Time `json:"last_run"`
	NextRun         time.Time  `json:"next_run"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedDate     time.Time  `json:"created_date"`
}

// Duration returns the capture length.
func (r ScheduledRecording) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}

// ScheduleRequest carries the user supplied fields of a recording job.
type ScheduleRequest struct {
	Name            string     `json:"name"`
	StreamName      string     `json:"stream_name"`
	StreamURL       string     `json:"stream_url"`
	StationID       string     `json:"station_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Recurrence      Recurrence `json:"recurrence,omitempty"`
	PresetID        string     `json:"preset_id,omitempty"`
}
