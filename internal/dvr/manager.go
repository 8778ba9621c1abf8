// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/acblink/internal/fsutil"
	"github.com/ManuGH/acblink/internal/log"
	"github.com/ManuGH/acblink/internal/metrics"
	"github.com/ManuGH/acblink/internal/recorder"
	"github.com/rs/zerolog"
)

const (
	RecordingsFile = "scheduled_recordings.json"
	PresetsFile    = "recording_presets.json"

	// DefaultDueWindow is how long after next_run a job may still fire.
	DefaultDueWindow = time.Minute

	busyMessage        = "recorder busy"
	interruptedMessage = "interrupted: daemon stopped during capture"
	stoppedMessage     = "stopped before the scheduled end"
)

// Recorder is the single-slot capture engine driven by the manager.
type Recorder interface {
	Start(item *recorder.Item) bool
	Stop() bool
	Active() (recorder.Item, bool)
	SetCallbacks(cb recorder.Callbacks)
}

// Callbacks let the owner observe captures started by the manager. They run
// on poller or capture goroutines, never with the manager lock held.
type Callbacks struct {
	OnRecordingStart    func(item recorder.Item)
	OnRecordingComplete func(item recorder.Item, path string)
	OnRecordingError    func(item recorder.Item, err error)
	OnProgress          func(item recorder.Item, percent float64, bytes int64)
	OnSaveError         func(err error)
}

// Options configure a Manager.
type Options struct {
	DataDir       string
	RecordingsDir string
	DueWindow     time.Duration
	Recorder      Recorder
	Now           func() time.Time
}

// Manager owns scheduled recordings and presets and drives the recorder.
type Manager struct {
	mu         sync.Mutex
	recordings map[string]ScheduledRecording
	presets    map[string]Preset
	// activeID is the scheduled recording whose capture holds the recorder slot.
	activeID string
	saveErr  error

	recordingsPath string
	presetsPath    string
	recordingsDir  string
	dueWindow      time.Duration
	now            func() time.Time
	engine         Recorder
	logger         zerolog.Logger

	cbMu      sync.RWMutex
	callbacks Callbacks
}

// NewManager builds a manager with built-in presets. Call Load to read
// persisted state.
func NewManager(opts Options) *Manager {
	dueWindow := opts.DueWindow
	if dueWindow <= 0 {
		dueWindow = DefaultDueWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	recordingsDir := opts.RecordingsDir
	if recordingsDir == "" {
		recordingsDir = filepath.Join(opts.DataDir, "recordings")
	}
	engine := opts.Recorder
	if engine == nil {
		engine = recorder.NewEngine(recorder.Options{})
	}

	m := &Manager{
		recordings:     make(map[string]ScheduledRecording),
		presets:        make(map[string]Preset),
		recordingsPath: filepath.Join(opts.DataDir, RecordingsFile),
		presetsPath:    filepath.Join(opts.DataDir, PresetsFile),
		recordingsDir:  recordingsDir,
		dueWindow:      dueWindow,
		now:            now,
		engine:         engine,
		logger:         log.WithComponent("dvr.manager"),
	}
	m.ensureBuiltinsLocked()
	engine.SetCallbacks(recorder.Callbacks{
		OnStart:    m.handleStart,
		OnProgress: m.handleProgress,
		OnComplete: m.handleComplete,
		OnError:    m.handleError,
	})
	return m
}

// SetCallbacks replaces the owner callbacks.
func (m *Manager) SetCallbacks(cb Callbacks) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = cb
}

func (m *Manager) currentCallbacks() Callbacks {
	m.cbMu.RLock()
	defer m.cbMu.RUnlock()
	return m.callbacks
}

// SetDueWindow changes the fire tolerance, typically after a config reload.
func (m *Manager) SetDueWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.dueWindow = d
	m.mu.Unlock()
}

type recordingsDoc struct {
	Recordings []ScheduledRecording `json:"recordings"`
}

type presetsDoc struct {
	Presets []Preset `json:"presets"`
}

// Load replaces in-memory state with the persisted files. Missing files are
// not an error. Built-in presets are recreated when absent and captures that
// were running when the process died are marked accordingly.
func (m *Manager) Load() error {
	var recDoc recordingsDoc
	if _, err := fsutil.ReadJSON(m.recordingsPath, &recDoc); err != nil {
		return fmt.Errorf("load recordings: %w", err)
	}
	var presetDoc presetsDoc
	if _, err := fsutil.ReadJSON(m.presetsPath, &presetDoc); err != nil {
		return fmt.Errorf("load presets: %w", err)
	}

	m.mu.Lock()
	m.recordings = make(map[string]ScheduledRecording, len(recDoc.Recordings))
	recoveredAny := false
	for _, r := range recDoc.Recordings {
		if r.ID == "" {
			continue
		}
		if r.Status == StatusRecording {
			recoveredAny = true
			if r.Recurrence.Recurring() {
				r.Status = StatusScheduled
			} else {
				r.Status = StatusFailed
			}
			r.ErrorMessage = interruptedMessage
		}
		m.recordings[r.ID] = r
	}

	m.presets = make(map[string]Preset, len(presetDoc.Presets)+len(builtinPresets))
	for _, p := range presetDoc.Presets {
		if p.ID == "" {
			continue
		}
		m.presets[p.ID] = p
	}
	addedBuiltins := m.ensureBuiltinsLocked()

	var saveErr error
	if addedBuiltins {
		saveErr = m.savePresetsLocked()
	}
	if recoveredAny {
		if err := m.saveRecordingsLocked(); err != nil {
			saveErr = err
		}
	}
	count := len(m.recordings)
	m.mu.Unlock()
	m.reportSave(saveErr)

	m.logger.Info().
		Int("recordings", count).
		Int("presets", len(presetDoc.Presets)).
		Str(log.FieldPath, m.recordingsPath).
		Msg("scheduled recordings loaded")
	return nil
}

func (m *Manager) saveRecordingsLocked() error {
	doc := recordingsDoc{Recordings: m.sortedRecordingsLocked()}
	return m.writeLocked(m.recordingsPath, doc)
}

func (m *Manager) savePresetsLocked() error {
	doc := presetsDoc{Presets: make([]Preset, 0, len(m.presets))}
	for _, p := range m.presets {
		doc.Presets = append(doc.Presets, p)
	}
	sortPresets(doc.Presets)
	return m.writeLocked(m.presetsPath, doc)
}

// writeLocked persists a document. Failures never reach the caller of a
// mutation; they are kept for LastSaveError and reported via reportSave.
func (m *Manager) writeLocked(path string, doc any) error {
	if err := fsutil.WriteJSONAtomic(path, doc); err != nil {
		m.saveErr = err
		metrics.IncPersistenceFailure(path)
		m.logger.Error().
			Err(err).
			Str(log.FieldPath, path).
			Str("event", "dvr.save_failed").
			Msg("failed to persist state, keeping in-memory copy")
		return err
	}
	m.saveErr = nil
	return nil
}

func (m *Manager) reportSave(err error) {
	if err == nil {
		return
	}
	if cb := m.currentCallbacks().OnSaveError; cb != nil {
		cb(err)
	}
}

// LastSaveError returns the error of the most recent write, nil after a success.
func (m *Manager) LastSaveError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveErr
}

// SaveHealthy reports whether the last write succeeded.
func (m *Manager) SaveHealthy() bool {
	return m.LastSaveError() == nil
}

// ActiveCapture returns the recorder's running item.
func (m *Manager) ActiveCapture() (recorder.Item, bool) {
	return m.engine.Active()
}

// StopActive stops the running capture. It reports whether one was running.
func (m *Manager) StopActive() bool {
	stopped := m.engine.Stop()
	if stopped {
		m.logger.Info().Str("event", "dvr.stop_requested").Msg("stop requested for active capture")
	}
	return stopped
}
