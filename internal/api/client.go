// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/ManuGH/acblink/internal/events"
	"github.com/ManuGH/acblink/internal/platform/httpx"
)

// DefaultClientTimeout bounds CLI calls against the daemon.
const DefaultClientTimeout = 10 * time.Second

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       ErrorResponse
}

func (e *StatusError) Error() string {
	if e.Body.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Body.Error, e.Body.Detail)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Body.Error)
}

// Client talks to a running daemon's control API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for addr, either host:port or a full URL.
func NewClient(addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if base == "" {
		return nil, errors.New("daemon address is empty")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid daemon address %q", addr)
	}
	return &Client{base: base, http: httpx.NewClient(timeout)}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&se.Body)
		if se.Body.Error == "" {
			se.Body.Error = http.StatusText(resp.StatusCode)
		}
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health fetches /healthz.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

// ListRecordings returns all scheduled recordings.
func (c *Client) ListRecordings(ctx context.Context) ([]dvr.ScheduledRecording, error) {
	var out RecordingsResponse
	err := c.do(ctx, http.MethodGet, "/api/recordings", nil, &out)
	return out.Recordings, err
}

// UpcomingRecordings returns scheduled jobs soonest first.
func (c *Client) UpcomingRecordings(ctx context.Context) ([]dvr.ScheduledRecording, error) {
	var out RecordingsResponse
	err := c.do(ctx, http.MethodGet, "/api/recordings/upcoming", nil, &out)
	return out.Recordings, err
}

// ScheduleRecording creates a recording job.
func (c *Client) ScheduleRecording(ctx context.Context, req dvr.ScheduleRequest) (dvr.ScheduledRecording, error) {
	var out dvr.ScheduledRecording
	err := c.do(ctx, http.MethodPost, "/api/recordings", req, &out)
	return out, err
}

// RecordNow starts an immediate capture.
func (c *Client) RecordNow(ctx context.Context, req dvr.ScheduleRequest) (dvr.ScheduledRecording, error) {
	var out dvr.ScheduledRecording
	err := c.do(ctx, http.MethodPost, "/api/recordings/now", req, &out)
	return out, err
}

// CancelRecording cancels a job.
func (c *Client) CancelRecording(ctx context.Context, id string) (dvr.ScheduledRecording, error) {
	var out dvr.ScheduledRecording
	err := c.do(ctx, http.MethodPost, "/api/recordings/"+url.PathEscape(id)+"/cancel", nil, &out)
	return out, err
}

// DeleteRecording removes a job.
func (c *Client) DeleteRecording(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/recordings/"+url.PathEscape(id), nil, nil)
}

// Recorder returns the capture slot snapshot.
func (c *Client) Recorder(ctx context.Context) (RecorderStatus, error) {
	var out RecorderStatus
	err := c.do(ctx, http.MethodGet, "/api/recorder", nil, &out)
	return out, err
}

// StopRecorder stops the running capture.
func (c *Client) StopRecorder(ctx context.Context) (bool, error) {
	var out map[string]bool
	err := c.do(ctx, http.MethodPost, "/api/recorder/stop", nil, &out)
	return out["stopped"], err
}

// ListPresets returns all presets.
func (c *Client) ListPresets(ctx context.Context) ([]dvr.Preset, error) {
	var out PresetsResponse
	err := c.do(ctx, http.MethodGet, "/api/presets", nil, &out)
	return out.Presets, err
}

// ListEvents returns all scheduled events.
func (c *Client) ListEvents(ctx context.Context) ([]events.ScheduledEvent, error) {
	var out EventsResponse
	err := c.do(ctx, http.MethodGet, "/api/events", nil, &out)
	return out.Events, err
}

// ScheduleEvent registers a calendar event.
func (c *Client) ScheduleEvent(ctx context.Context, req ScheduleEventRequest) (events.ScheduledEvent, error) {
	var out events.ScheduledEvent
	err := c.do(ctx, http.MethodPost, "/api/events", req, &out)
	return out, err
}

// CancelEvent cancels an event.
func (c *Client) CancelEvent(ctx context.Context, id string) (events.ScheduledEvent, error) {
	var out events.ScheduledEvent
	err := c.do(ctx, http.MethodPost, "/api/events/"+url.PathEscape(id)+"/cancel", nil, &out)
	return out, err
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/events/"+url.PathEscape(id), nil, nil)
}

// Alerts returns upcoming alerts within hours.
func (c *Client) Alerts(ctx context.Context, hours int) ([]events.Alert, error) {
	var out AlertsResponse
	err := c.do(ctx, http.MethodGet, "/api/alerts?hours="+strconv.Itoa(hours), nil, &out)
	return out.Alerts, err
}
