// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/acblink/internal/recorder"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecorder is a single-slot recorder whose captures finish only when the
// test says so.
type fakeRecorder struct {
	mu      sync.Mutex
	cb      recorder.Callbacks
	active  *recorder.Item
	started []recorder.Item
	stops   int
}

func (f *fakeRecorder) SetCallbacks(cb recorder.Callbacks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeRecorder) Start(item *recorder.Item) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active != nil {
		return false
	}
	item.Status = recorder.StatusRecording
	cp := *item
	f.active = &cp
	f.started = append(f.started, cp)
	return true
}

func (f *fakeRecorder) Active() (recorder.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return recorder.Item{}, false
	}
	return *f.active, true
}

func (f *fakeRecorder) Stop() bool {
	f.mu.Lock()
	f.stops++
	running := f.active != nil
	f.mu.Unlock()
	if running {
		f.finish(recorder.StatusStopped, nil)
	}
	return running
}

func (f *fakeRecorder) finish(status recorder.Status, err error) {
	f.mu.Lock()
	item := *f.active
	f.active = nil
	cb := f.cb
	f.mu.Unlock()

	item.Status = status
	if err != nil {
		cb.OnError(item, err)
		return
	}
	cb.OnComplete(item, item.OutputPath)
}

func (f *fakeRecorder) complete()      { f.finish(recorder.StatusCompleted, nil) }
func (f *fakeRecorder) fail(err error) { f.finish(recorder.StatusFailed, err) }

func (f *fakeRecorder) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func (f *fakeRecorder) lastStarted() recorder.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started[len(f.started)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	dataDir string
	clock   *testClock
	rec     *fakeRecorder
	mgr     *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dataDir := t.TempDir()
	clock := &testClock{now: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)}
	rec := &fakeRecorder{}
	mgr := NewManager(Options{
		DataDir:  dataDir,
		Recorder: rec,
		Now:      clock.Now,
	})
	require.NoError(t, mgr.Load())
	return &fixture{dataDir: dataDir, clock: clock, rec: rec, mgr: mgr}
}

func (f *fixture) request(start time.Time, recurrence Recurrence) ScheduleRequest {
	return ScheduleRequest{
		Name:            "Morning News",
		StreamName:      "ACB Media 1",
		StreamURL:       "http://streams.example.org/acb1",
		StartTime:       start,
		DurationMinutes: 1,
		Recurrence:      recurrence,
		PresetID:        "high",
	}
}

func TestScheduleRecording_AppearsInUpcomingSorted(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	late, err := f.mgr.ScheduleRecording(f.request(now.Add(3*time.Hour), RecurrenceOnce))
	require.NoError(t, err)
	early, err := f.mgr.ScheduleRecording(f.request(now.Add(time.Hour), RecurrenceOnce))
	require.NoError(t, err)
	mid, err := f.mgr.ScheduleRecording(f.request(now.Add(2*time.Hour), RecurrenceDaily))
	require.NoError(t, err)

	upcoming := f.mgr.GetUpcomingRecordings()
	require.Len(t, upcoming, 3)
	assert.Equal(t, []string{early.ID, mid.ID, late.ID}, []string{upcoming[0].ID, upcoming[1].ID, upcoming[2].ID})

	assert.Equal(t, StatusScheduled, late.Status)
	assert.Equal(t, FormatMP3, late.Format)
	assert.Equal(t, 320, late.Bitrate)
	assert.Equal(t, now, late.CreatedDate)
	assert.Nil(t, late.LastRun)
	assert.Equal(t, late.StartTime, late.NextRun)
	assert.Equal(t, filepath.Join(f.dataDir, "recordings"), filepath.Dir(late.OutputPath))
	assert.Equal(t, "acb-media-1_20250310_130000.mp3", filepath.Base(late.OutputPath))
}

func TestScheduleRecording_DailyPastStartYieldsTomorrow(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) // two hours ago

	rec, err := f.mgr.ScheduleRecording(f.request(start, RecurrenceDaily))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC), rec.NextRun)
	assert.Equal(t, start, rec.StartTime)
}

func TestScheduleRecording_Validation(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	tests := []struct {
		name   string
		mutate func(*ScheduleRequest)
	}{
		{"missing names", func(r *ScheduleRequest) { r.Name, r.StreamName = "", "" }},
		{"relative url", func(r *ScheduleRequest) { r.StreamURL = "/acb1" }},
		{"ftp url", func(r *ScheduleRequest) { r.StreamURL = "ftp://example.org/a" }},
		{"zero duration", func(r *ScheduleRequest) { r.DurationMinutes = 0 }},
		{"duration over a week", func(r *ScheduleRequest) { r.DurationMinutes = MaxDurationMinutes + 1 }},
		{"overflowing duration", func(r *ScheduleRequest) { r.DurationMinutes = 200_000_000 }},
		{"unknown recurrence", func(r *ScheduleRequest) { r.Recurrence = "hourly" }},
		{"missing start", func(r *ScheduleRequest) { r.StartTime = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(now.Add(time.Hour), RecurrenceOnce)
			tt.mutate(&req)
			_, err := f.mgr.ScheduleRecording(req)
			assert.ErrorIs(t, err, ErrInvalidRecording)
		})
	}
	assert.Empty(t, f.mgr.ListRecordings())
}

func TestScheduleRecording_DefaultsNameAndRecurrence(t *testing.T) {
	f := newFixture(t)
	req := f.request(f.clock.Now().Add(time.Hour), "")
	req.Name = ""

	rec, err := f.mgr.ScheduleRecording(req)
	require.NoError(t, err)
	assert.Equal(t, "ACB Media 1", rec.Name)
	assert.Equal(t, RecurrenceOnce, rec.Recurrence)
}

func TestScheduleRecording_MissingPresetFallsBackToStandard(t *testing.T) {
	f := newFixture(t)
	req := f.request(f.clock.Now().Add(time.Hour), RecurrenceOnce)
	req.PresetID = "does-not-exist"

	rec, err := f.mgr.ScheduleRecording(req)
	require.NoError(t, err)
	assert.Equal(t, DefaultPresetID, rec.PresetID)
	assert.Equal(t, FormatMP3, rec.Format)
	assert.Equal(t, 128, rec.Bitrate)
}

func TestScheduleRecording_UniqueOutputPaths(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now().Add(time.Hour)

	a, err := f.mgr.ScheduleRecording(f.request(start, RecurrenceOnce))
	require.NoError(t, err)
	b, err := f.mgr.ScheduleRecording(f.request(start, RecurrenceOnce))
	require.NoError(t, err)

	assert.NotEqual(t, a.OutputPath, b.OutputPath)
	assert.Equal(t, "acb-media-1_20250310_110000_2.mp3", filepath.Base(b.OutputPath))
}

func TestScheduleRecording_UsesPresetOutputFolder(t *testing.T) {
	f := newFixture(t)
	folder := filepath.Join(t.TempDir(), "talk")
	p, err := f.mgr.CreatePreset(Preset{Name: "Talk archive", Format: FormatOGG, Bitrate: 96, OutputFolder: folder})
	require.NoError(t, err)

	req := f.request(f.clock.Now().Add(time.Hour), RecurrenceOnce)
	req.PresetID = p.ID
	rec, err := f.mgr.ScheduleRecording(req)
	require.NoError(t, err)

	assert.Equal(t, FormatOGG, rec.Format)
	assert.Equal(t, ".ogg", filepath.Ext(rec.OutputPath))
	realFolder, err := filepath.Abs(folder)
	require.NoError(t, err)
	assert.Equal(t, realFolder, filepath.Dir(rec.OutputPath))
}

func TestPresetChangesDoNotAffectExistingRecordings(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.ScheduleRecording(f.request(f.clock.Now().Add(time.Hour), RecurrenceOnce))
	require.NoError(t, err)

	_, err = f.mgr.UpdatePreset("high", Preset{Name: "High Quality", Format: FormatAAC, Bitrate: 256})
	require.NoError(t, err)

	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, FormatMP3, got.Format)
	assert.Equal(t, 320, got.Bitrate)
}

func TestCancelRecording(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.ScheduleRecording(f.request(f.clock.Now().Add(time.Hour), RecurrenceOnce))
	require.NoError(t, err)

	require.NoError(t, f.mgr.CancelRecording(rec.ID))
	assert.Empty(t, f.mgr.GetUpcomingRecordings())

	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	assert.ErrorIs(t, f.mgr.CancelRecording(rec.ID), ErrInvalidTransition)
	assert.ErrorIs(t, f.mgr.CancelRecording("missing"), ErrRecordingNotFound)

	// cancelled jobs never fire
	f.mgr.CheckDue(context.Background(), rec.NextRun)
	assert.Zero(t, f.rec.startCount())
}

func TestDeleteRecording(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.ScheduleRecording(f.request(f.clock.Now().Add(time.Hour), RecurrenceOnce))
	require.NoError(t, err)

	require.NoError(t, f.mgr.DeleteRecording(rec.ID))
	_, err = f.mgr.GetRecording(rec.ID)
	assert.ErrorIs(t, err, ErrRecordingNotFound)
	assert.ErrorIs(t, f.mgr.DeleteRecording(rec.ID), ErrRecordingNotFound)
	assert.Zero(t, f.rec.stops, "idle recorder must not be stopped")
}

func TestDeleteRecording_StopsActiveCapture(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.ScheduleRecording(f.request(f.clock.Now(), RecurrenceOnce))
	require.NoError(t, err)

	f.mgr.CheckDue(context.Background(), f.clock.Now())
	require.Equal(t, 1, f.rec.startCount())

	require.NoError(t, f.mgr.DeleteRecording(rec.ID))
	assert.Equal(t, 1, f.rec.stops)
	_, active := f.rec.Active()
	assert.False(t, active)
	assert.Empty(t, f.mgr.ListRecordings())
}

func TestUpdateRecording(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.ScheduleRecording(f.request(f.clock.Now().Add(time.Hour), RecurrenceOnce))
	require.NoError(t, err)

	req := f.request(time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC), RecurrenceWeekdays)
	req.Name = "Evening"
	req.PresetID = "lossless"
	updated, err := f.mgr.UpdateRecording(rec.ID, req)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, rec.CreatedDate, updated.CreatedDate)
	assert.Equal(t, "Evening", updated.Name)
	assert.Equal(t, FormatFLAC, updated.Format)
	assert.Equal(t, 0, updated.Bitrate)
	assert.Equal(t, time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC), updated.NextRun)
	assert.Equal(t, ".flac", filepath.Ext(updated.OutputPath))

	require.NoError(t, f.mgr.CancelRecording(rec.ID))
	_, err = f.mgr.UpdateRecording(rec.ID, req)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.mgr.UpdateRecording("missing", req)
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestOnceRecording_FiresAndCompletes(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now().Add(2 * time.Second)

	var mu sync.Mutex
	var started, completed []recorder.Item
	f.mgr.SetCallbacks(Callbacks{
		OnRecordingStart: func(item recorder.Item) {
			mu.Lock()
			defer mu.Unlock()
			started = append(started, item)
		},
		OnRecordingComplete: func(item recorder.Item, _ string) {
			mu.Lock()
			defer mu.Unlock()
			completed = append(completed, item)
		},
	})

	rec, err := f.mgr.ScheduleRecording(f.request(start, RecurrenceOnce))
	require.NoError(t, err)

	// too early
	f.mgr.CheckDue(context.Background(), f.clock.Now())
	assert.Zero(t, f.rec.startCount())

	fire := start.Add(20 * time.Second)
	f.clock.Set(fire)
	f.mgr.CheckDue(context.Background(), fire)
	require.Equal(t, 1, f.rec.startCount())

	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRecording, got.Status)

	item := f.rec.lastStarted()
	assert.Equal(t, rec.ID, item.ScheduledID)
	assert.Equal(t, rec.OutputPath, item.OutputPath)
	assert.Equal(t, fire, item.Start)
	assert.Equal(t, fire.Add(time.Minute), item.End)

	f.rec.complete()

	got, err = f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, fire, *got.LastRun)
	assert.Equal(t, rec.NextRun, got.NextRun, "once keeps next_run")

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, completed, 1)
	assert.Empty(t, started, "fake recorder does not emit OnStart")
}

func TestDueWindow(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now().Add(time.Minute)
	rec, err := f.mgr.ScheduleRecording(f.request(start, RecurrenceOnce))
	require.NoError(t, err)

	f.mgr.CheckDue(context.Background(), start.Add(DefaultDueWindow+time.Second))
	assert.Zero(t, f.rec.startCount(), "fires outside the window are skipped")

	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status, "missed once jobs are not caught up")

	f.mgr.CheckDue(context.Background(), start.Add(DefaultDueWindow))
	assert.Equal(t, 1, f.rec.startCount(), "window end is inclusive")
}

func TestRecurringFire_AdvancesOptimistically(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now()
	rec, err := f.mgr.ScheduleRecording(f.request(start.Add(time.Second), RecurrenceDaily))
	require.NoError(t, err)

	fire := start.Add(5 * time.Second)
	f.mgr.CheckDue(context.Background(), fire)
	require.Equal(t, 1, f.rec.startCount())
	firstPath := f.rec.lastStarted().OutputPath

	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status, "recurring jobs return to scheduled at fire time")
	assert.Equal(t, rec.NextRun.AddDate(0, 0, 1), got.NextRun)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, fire, *got.LastRun)

	// failure of this instance does not touch the cadence
	f.rec.fail(errors.New("connection reset"))
	got, err = f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Equal(t, "connection reset", got.ErrorMessage)
	assert.Equal(t, rec.NextRun.AddDate(0, 0, 1), got.NextRun)

	// next day: fresh output path
	nextFire := got.NextRun.Add(10 * time.Second)
	f.mgr.CheckDue(context.Background(), nextFire)
	require.Equal(t, 2, f.rec.startCount())
	assert.NotEqual(t, firstPath, f.rec.lastStarted().OutputPath)

	got, err = f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ErrorMessage, "successful start clears the previous error")
}

func TestFireWhileBusy(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	first, err := f.mgr.ScheduleRecording(f.request(now, RecurrenceOnce))
	require.NoError(t, err)
	f.clock.Set(now.Add(time.Millisecond)) // keeps created order stable
	once, err := f.mgr.ScheduleRecording(f.request(now.Add(time.Second), RecurrenceOnce))
	require.NoError(t, err)
	daily, err := f.mgr.ScheduleRecording(f.request(now.Add(2*time.Second), RecurrenceDaily))
	require.NoError(t, err)

	f.mgr.CheckDue(context.Background(), now.Add(10*time.Second))
	require.Equal(t, 1, f.rec.startCount())
	assert.Equal(t, first.ID, f.rec.lastStarted().ScheduledID, "earliest next_run wins the slot")

	gotOnce, err := f.mgr.GetRecording(once.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, gotOnce.Status)
	assert.Equal(t, "recorder busy", gotOnce.ErrorMessage)
	assert.Nil(t, gotOnce.LastRun)

	gotDaily, err := f.mgr.GetRecording(daily.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, gotDaily.Status)
	assert.Equal(t, "recorder busy", gotDaily.ErrorMessage)
	assert.Equal(t, daily.NextRun.AddDate(0, 0, 1), gotDaily.NextRun)

	recording := 0
	for _, r := range f.mgr.ListRecordings() {
		if r.Status == StatusRecording {
			recording++
		}
	}
	assert.Equal(t, 1, recording, "at most one recording is active")
}

func TestOnceRecording_EngineErrorMarksFailed(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.ScheduleRecording(f.request(f.clock.Now(), RecurrenceOnce))
	require.NoError(t, err)

	var gotErr error
	f.mgr.SetCallbacks(Callbacks{OnRecordingError: func(_ recorder.Item, err error) { gotErr = err }})

	f.mgr.CheckDue(context.Background(), f.clock.Now())
	f.rec.fail(recorder.ErrStreamEnded)

	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, recorder.ErrStreamEnded.Error(), got.ErrorMessage)
	assert.ErrorIs(t, gotErr, recorder.ErrStreamEnded)
}

func TestOnceRecording_ExplicitStopCompletes(t *testing.T) {
	f := newFixture(t)
	rec, err := f.mgr.ScheduleRecording(f.request(f.clock.Now(), RecurrenceOnce))
	require.NoError(t, err)
	f.mgr.CheckDue(context.Background(), f.clock.Now())

	assert.True(t, f.mgr.StopActive())
	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, stoppedMessage, got.ErrorMessage, "a truncated capture is marked")

	assert.False(t, f.mgr.StopActive())
}

func TestRecordNow(t *testing.T) {
	f := newFixture(t)
	req := f.request(time.Time{}, RecurrenceDaily)

	rec, err := f.mgr.RecordNow(req)
	require.NoError(t, err)
	assert.Equal(t, RecurrenceOnce, rec.Recurrence)
	assert.Equal(t, StatusRecording, rec.Status)
	assert.Equal(t, f.clock.Now(), rec.StartTime)
	assert.Equal(t, rec.ID, f.rec.lastStarted().ScheduledID)

	active, ok := f.mgr.ActiveCapture()
	require.True(t, ok)
	assert.Equal(t, rec.ID, active.ScheduledID)

	second, err := f.mgr.RecordNow(req)
	assert.ErrorIs(t, err, recorder.ErrBusy)
	assert.Equal(t, StatusFailed, second.Status)

	_, err = f.mgr.RecordNow(ScheduleRequest{Name: "x", StreamURL: "nope", DurationMinutes: 1})
	assert.ErrorIs(t, err, ErrInvalidRecording)
}

func TestCheckDue_RealignsMissedRecurring(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now().Add(time.Hour)
	rec, err := f.mgr.ScheduleRecording(f.request(start, RecurrenceDaily))
	require.NoError(t, err)

	// the daemon was down for three days
	later := start.AddDate(0, 0, 3).Add(2 * time.Hour)
	f.mgr.CheckDue(context.Background(), later)
	assert.Zero(t, f.rec.startCount())

	got, err := f.mgr.GetRecording(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 4), got.NextRun)
	assert.True(t, got.NextRun.After(later))
}

func TestCheckDue_HonoursCancelledContext(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.ScheduleRecording(f.request(f.clock.Now(), RecurrenceOnce))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.mgr.CheckDue(ctx, f.clock.Now())
	assert.Zero(t, f.rec.startCount())
}

func TestPersistence_RoundTrip(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	custom, err := f.mgr.CreatePreset(Preset{Name: "Podcast", Format: FormatAAC, Bitrate: 96, SplitInterval: 30})
	require.NoError(t, err)

	req := f.request(now.Add(time.Hour), RecurrenceWeekly)
	req.PresetID = custom.ID
	_, err = f.mgr.ScheduleRecording(req)
	require.NoError(t, err)
	done, err := f.mgr.ScheduleRecording(f.request(now, RecurrenceOnce))
	require.NoError(t, err)
	f.mgr.CheckDue(context.Background(), now)
	f.rec.complete()
	cancelled, err := f.mgr.ScheduleRecording(f.request(now.Add(2*time.Hour), RecurrenceOnce))
	require.NoError(t, err)
	require.NoError(t, f.mgr.CancelRecording(cancelled.ID))

	reloaded := NewManager(Options{DataDir: f.dataDir, Recorder: &fakeRecorder{}, Now: f.clock.Now})
	require.NoError(t, reloaded.Load())

	if diff := cmp.Diff(f.mgr.ListRecordings(), reloaded.ListRecordings()); diff != "" {
		t.Fatalf("recordings differ after reload (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(customPresets(f.mgr.ListPresets()), customPresets(reloaded.ListPresets())); diff != "" {
		t.Fatalf("presets differ after reload (-want +got):\n%s", diff)
	}

	got, err := reloaded.GetRecording(done.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.LastRun)
}

func customPresets(ps []Preset) []Preset {
	var out []Preset
	for _, p := range ps {
		if !IsBuiltinPreset(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

func TestLoad_MissingFilesAndBuiltins(t *testing.T) {
	f := newFixture(t)
	presets := f.mgr.ListPresets()
	require.Len(t, presets, 4)
	assert.Equal(t, []string{"standard", "high", "voice", "lossless"},
		[]string{presets[0].ID, presets[1].ID, presets[2].ID, presets[3].ID})
	assert.Empty(t, f.mgr.ListRecordings())
}

func TestLoad_RecreatesDeletedBuiltins(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, PresetsFile),
		[]byte(`{"presets":[{"id":"mine","name":"Mine","format":"ogg","bitrate":112,"auto_metadata":false}]}`), 0o600))

	mgr := NewManager(Options{DataDir: dataDir, Recorder: &fakeRecorder{}})
	require.NoError(t, mgr.Load())

	ids := map[string]bool{}
	for _, p := range mgr.ListPresets() {
		ids[p.ID] = true
	}
	for _, id := range []string{"standard", "high", "voice", "lossless", "mine"} {
		assert.True(t, ids[id], id)
	}
}

func TestLoad_MarksInterruptedCaptures(t *testing.T) {
	dataDir := t.TempDir()
	body := `{"recordings":[
	  {"id":"a","name":"A","stream_name":"S","stream_url":"http://x/a","start_time":"2025-03-10T09:00:00Z","duration_minutes":5,"recurrence":"once","status":"recording","next_run":"2025-03-10T09:00:00Z","created_date":"2025-03-01T00:00:00Z"},
	  {"id":"b","name":"B","stream_name":"S","stream_url":"http://x/b","start_time":"2025-03-10T09:00:00Z","duration_minutes":5,"recurrence":"daily","status":"recording","next_run":"2025-03-11T09:00:00Z","created_date":"2025-03-01T00:00:00Z"}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, RecordingsFile), []byte(body), 0o600))

	mgr := NewManager(Options{DataDir: dataDir, Recorder: &fakeRecorder{}})
	require.NoError(t, mgr.Load())

	a, err := mgr.GetRecording("a")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, a.Status)
	assert.NotEmpty(t, a.ErrorMessage)

	b, err := mgr.GetRecording("b")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, b.Status)
}

func TestLoad_CorruptFileFails(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, RecordingsFile), []byte("{oops"), 0o600))

	mgr := NewManager(Options{DataDir: dataDir, Recorder: &fakeRecorder{}})
	assert.Error(t, mgr.Load())
}

func TestSaveFailureIsSwallowedButSurfaced(t *testing.T) {
	// a regular file where the data dir should be makes every write fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	var saveErrs int
	mgr := NewManager(Options{
		DataDir:       blocker,
		RecordingsDir: t.TempDir(),
		Recorder:      &fakeRecorder{},
		Now:           func() time.Time { return time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC) },
	})
	mgr.SetCallbacks(Callbacks{OnSaveError: func(error) { saveErrs++ }})
	assert.True(t, mgr.SaveHealthy())

	rec, err := mgr.ScheduleRecording(ScheduleRequest{
		Name:            "News",
		StreamURL:       "http://streams.example.org/acb1",
		StartTime:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	})
	require.NoError(t, err, "save errors never fail the mutation")
	assert.False(t, mgr.SaveHealthy())
	assert.Error(t, mgr.LastSaveError())
	assert.Equal(t, 1, saveErrs)

	got, err := mgr.GetRecording(rec.ID)
	require.NoError(t, err, "in-memory state stays authoritative")
	assert.Equal(t, rec, got)
}

func TestPresets_CRUD(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.CreatePreset(Preset{Name: "", Format: FormatMP3, Bitrate: 128})
	assert.ErrorIs(t, err, ErrInvalidPreset)
	_, err = f.mgr.CreatePreset(Preset{Name: "Odd", Format: "wma", Bitrate: 128})
	assert.ErrorIs(t, err, ErrInvalidPreset)
	_, err = f.mgr.CreatePreset(Preset{Name: "No rate", Format: FormatMP3})
	assert.ErrorIs(t, err, ErrInvalidPreset)
	_, err = f.mgr.CreatePreset(Preset{ID: "high", Name: "Dup", Format: FormatMP3, Bitrate: 128})
	assert.ErrorIs(t, err, ErrInvalidPreset)

	wav, err := f.mgr.CreatePreset(Preset{Name: "Archive", Format: "WAV", Bitrate: 1411})
	require.NoError(t, err)
	assert.NotEmpty(t, wav.ID)
	assert.Equal(t, FormatWAV, wav.Format)
	assert.Zero(t, wav.Bitrate, "lossless formats carry no bitrate")

	got, err := f.mgr.GetPreset(wav.ID)
	require.NoError(t, err)
	assert.Equal(t, wav, got)

	_, err = f.mgr.UpdatePreset("missing", Preset{Name: "x", Format: FormatMP3, Bitrate: 64})
	assert.ErrorIs(t, err, ErrPresetNotFound)

	assert.ErrorIs(t, f.mgr.DeletePreset("standard"), ErrBuiltinPreset)
	assert.ErrorIs(t, f.mgr.DeletePreset("missing"), ErrPresetNotFound)
	require.NoError(t, f.mgr.DeletePreset(wav.ID))
	_, err = f.mgr.GetPreset(wav.ID)
	assert.ErrorIs(t, err, ErrPresetNotFound)
}
