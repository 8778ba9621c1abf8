// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ManuGH/acblink/internal/api"
	"github.com/ManuGH/acblink/internal/dvr"
	"github.com/ManuGH/acblink/internal/events"
	"github.com/ManuGH/acblink/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func startDaemonAPI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mgr := dvr.NewManager(dvr.Options{DataDir: dir})
	require.NoError(t, mgr.Load())
	sched := events.NewScheduler(events.Options{DataDir: dir, Recorder: mgr})
	srv := httptest.NewServer(api.New(api.Deps{Recordings: mgr, Events: sched, Version: "test"}).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version", "-s")
	require.NoError(t, err)
	assert.Equal(t, version.Version+"\n", out)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "acblink "+version.Version)
}

func TestParseStart(t *testing.T) {
	got, err := parseStart("2025-03-10T07:00:00Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)))

	got, err = parseStart("2025-03-10 07:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 7, 0, 0, 0, time.Local), got)

	_, err = parseStart("tomorrow")
	require.Error(t, err)
}

func TestScheduleRequiresFlags(t *testing.T) {
	_, err := execute(t, "schedule", "--url", "http://stream.example/radio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start")
}

func TestCommandsAgainstDaemon(t *testing.T) {
	addr := startDaemonAPI(t)
	start := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)

	out, err := execute(t, "--addr", addr, "--json", "schedule",
		"--url", "http://stream.example/radio", "--stream-name", "ACB Radio",
		"--name", "Morning Show", "--start", start, "--duration", "30", "--recurrence", "daily")
	require.NoError(t, err)
	var rec dvr.ScheduledRecording
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "Morning Show", rec.Name)
	assert.Equal(t, dvr.RecurrenceDaily, rec.Recurrence)

	out, err = execute(t, "--addr", addr, "list")
	require.NoError(t, err)
	assert.Contains(t, out, rec.ID)
	assert.Contains(t, out, "Morning Show")

	out, err = execute(t, "--addr", addr, "upcoming")
	require.NoError(t, err)
	assert.Contains(t, out, rec.ID)

	out, err = execute(t, "--addr", addr, "cancel", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled "+rec.ID)

	out, err = execute(t, "--addr", addr, "delete", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+rec.ID)

	_, err = execute(t, "--addr", addr, "delete", rec.ID)
	require.Error(t, err)

	out, err = execute(t, "--addr", addr, "presets")
	require.NoError(t, err)
	assert.Contains(t, out, dvr.DefaultPresetID)

	out, err = execute(t, "--addr", addr, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "recorder idle")

	out, err = execute(t, "--addr", addr, "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing is recording")
}

func TestEventCommandsAgainstDaemon(t *testing.T) {
	addr := startDaemonAPI(t)
	start := time.Now().Add(30 * time.Minute).UTC().Format(time.RFC3339)

	out, err := execute(t, "--addr", addr, "events", "add", "--id", "ev-1",
		"--title", "Book Club", "--start", start, "--reminder", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "scheduled event ev-1")

	out, err = execute(t, "--addr", addr, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "Book Club")

	out, err = execute(t, "--addr", addr, "alerts", "--hours", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Book Club")

	out, err = execute(t, "--addr", addr, "events", "cancel", "ev-1")
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled event ev-1")

	out, err = execute(t, "--addr", addr, "alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "no upcoming events")

	out, err = execute(t, "--addr", addr, "events", "delete", "ev-1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted event ev-1")
}
