// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recorder

import "time"

// Status is the lifecycle state of a single capture.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRecording Status = "recording"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusFailed
}

// Item describes one capture. It is never persisted; the engine owns it from
// a successful Start until the terminal callback returns.
type Item struct {
	ID           string    `json:"id"`
	ScheduledID  string    `json:"scheduled_id,omitempty"`
	Name         string    `json:"name"`
	StreamName   string    `json:"stream_name"`
	StreamURL    string    `json:"stream_url"`
	OutputPath   string    `json:"output_path"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Status       Status    `json:"status"`
	BytesWritten int64     `json:"bytes_written"`
	Error        string    `json:"error,omitempty"`
}

// Duration is the planned capture length. Zero means unbounded.
func (it Item) Duration() time.Duration {
	if it.End.IsZero() || !it.End.After(it.Start) {
		return 0
	}
	return it.End.Sub(it.Start)
}

// Percent returns the elapsed share of the capture window at now, in [0,100].
func (it Item) Percent(now time.Time) float64 {
	total := it.Duration()
	if total <= 0 {
		return 0
	}
	elapsed := now.Sub(it.Start)
	switch {
	case elapsed <= 0:
		return 0
	case elapsed >= total:
		return 100
	}
	return float64(elapsed) / float64(total) * 100
}
