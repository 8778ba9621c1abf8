// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package recorder captures a single network audio stream to a file.
//
// The Engine has exactly one slot. Start either claims it and spawns a worker
// goroutine or returns false without touching the running capture. Results are
// reported through Callbacks which run on the worker goroutine.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/acblink/internal/log"
	"github.com/ManuGH/acblink/internal/metrics"
	"github.com/ManuGH/acblink/internal/platform/httpx"
	platformnet "github.com/ManuGH/acblink/internal/platform/net"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultChunkSize      = 8192
	progressLogInterval   = 5 * time.Second
	defaultConnectTimeout = 10 * time.Second
)

var (
	// ErrStreamEnded is reported when the source closes before the capture window elapsed.
	ErrStreamEnded = errors.New("stream ended before recording window elapsed")
	// ErrBusy is returned by callers that need an error for a refused Start.
	ErrBusy = errors.New("recorder busy")
	// ErrUnexpectedStatus wraps non-2xx responses from the stream host.
	ErrUnexpectedStatus = errors.New("unexpected stream status")

	errStopRequested = errors.New("stop requested")
)

// Callbacks are invoked on the worker goroutine. Any of them may be nil.
// Exactly one of OnComplete or OnError fires per started capture.
type Callbacks struct {
	OnStart    func(item Item)
	OnProgress func(item Item, percent float64, bytes int64)
	OnComplete func(item Item, path string)
	OnError    func(item Item, err error)
}

// Options configure an Engine.
type Options struct {
	// Client performs the streaming GET. It must not have an overall timeout.
	Client *http.Client
	// ChunkSize is the read buffer size and thus the progress granularity.
	ChunkSize int
	// Now overrides the clock used for progress and deadline checks.
	Now func() time.Time
}

// Engine runs at most one capture at a time.
type Engine struct {
	client    *http.Client
	chunkSize int
	now       func() time.Time
	logger    zerolog.Logger

	busy atomic.Bool

	mu     sync.Mutex
	active *Item
	cancel context.CancelCauseFunc
	done   chan struct{}

	cbMu      sync.RWMutex
	callbacks Callbacks

	progressLog rate.Sometimes
}

// NewEngine builds an idle engine.
func NewEngine(opts Options) *Engine {
	client := opts.Client
	if client == nil {
		client = httpx.NewStreamingClient(defaultConnectTimeout)
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		client:      client,
		chunkSize:   chunkSize,
		now:         now,
		logger:      log.WithComponent("recorder"),
		progressLog: rate.Sometimes{Interval: progressLogInterval},
	}
}

// SetCallbacks replaces the callback set. Captures already running keep the
// set that was installed when they started.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.callbacks = cb
}

func (e *Engine) currentCallbacks() Callbacks {
	e.cbMu.RLock()
	defer e.cbMu.RUnlock()
	return e.callbacks
}

// Start claims the slot and begins capturing item in a new goroutine. It
// returns false, leaving the running capture untouched, when the slot is taken.
// The engine takes ownership of item; callers read state through Active and
// the callbacks.
func (e *Engine) Start(item *Item) bool {
	if item == nil {
		return false
	}
	if !e.busy.CompareAndSwap(false, true) {
		e.logger.Debug().
			Str(log.FieldItemID, item.ID).
			Str("event", "recorder.start_refused").
			Msg("recorder busy, start refused")
		return false
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	runCtx, stopDeadline := ctx, context.CancelFunc(func() {})
	if !item.End.IsZero() {
		runCtx, stopDeadline = context.WithDeadline(ctx, item.End)
	}

	item.Status = StatusRecording
	item.BytesWritten = 0
	item.Error = ""
	done := make(chan struct{})

	e.mu.Lock()
	e.active = item
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	metrics.SetRecordingActive(true)
	cb := e.currentCallbacks()

	go func() {
		defer stopDeadline()
		defer cancel(nil)
		e.run(runCtx, item, cb, done)
	}()
	return true
}

// Stop requests cancellation of the running capture. The worker exits at the
// next chunk boundary and reports the item as stopped through OnComplete. It
// returns false when nothing was running.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel(errStopRequested)
	return true
}

// Wait blocks until the running capture, if any, has fully finished
// including its terminal callback.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns a snapshot of the running capture.
func (e *Engine) Active() (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return Item{}, false
	}
	return *e.active, true
}

// Busy reports whether the slot is taken.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

func (e *Engine) snapshot(item *Item, mutate func(*Item)) Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mutate != nil {
		mutate(item)
	}
	return *item
}

func (e *Engine) run(ctx context.Context, item *Item, cb Callbacks, done chan struct{}) {
	logger := e.logger.With().
		Str(log.FieldItemID, item.ID).
		Str(log.FieldRecordingID, item.ScheduledID).
		Str(log.FieldStreamURL, platformnet.SanitizeURL(item.StreamURL)).
		Str(log.FieldOutputPath, item.OutputPath).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("event", "recorder.panic").
				Msg("recovered from panic in capture worker")
			e.release(done)
		}
	}()

	logger.Info().
		Str("event", "recorder.started").
		Time("end", item.End).
		Msg("capture started")
	safeCall(logger, "on_start", func() {
		if cb.OnStart != nil {
			cb.OnStart(e.snapshot(item, nil))
		}
	})

	err := e.capture(ctx, item, cb, logger)

	var status Status
	switch {
	case errors.Is(context.Cause(ctx), errStopRequested):
		status, err = StatusStopped, nil
	case err != nil:
		status = StatusFailed
	default:
		status = StatusCompleted
	}

	final := e.snapshot(item, func(it *Item) {
		it.Status = status
		if err != nil {
			it.Error = err.Error()
		}
	})
	metrics.IncRecordingFinished(string(status))

	if err != nil {
		logger.Warn().
			Err(err).
			Int64("bytes", final.BytesWritten).
			Str("event", "recorder.failed").
			Msg("capture failed")
		safeCall(logger, "on_error", func() {
			if cb.OnError != nil {
				cb.OnError(final, err)
			}
		})
	} else {
		logger.Info().
			Str("status", string(status)).
			Int64("bytes", final.BytesWritten).
			Str("event", "recorder.finished").
			Msg("capture finished")
		safeCall(logger, "on_complete", func() {
			if cb.OnComplete != nil {
				cb.OnComplete(final, final.OutputPath)
			}
		})
	}

	e.release(done)
}

// release frees the slot. busy is cleared before done is closed so that a
// Start issued after Wait returns always succeeds.
func (e *Engine) release(done chan struct{}) {
	e.mu.Lock()
	if e.done != done {
		e.mu.Unlock()
		return
	}
	e.active = nil
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	metrics.SetRecordingActive(false)
	e.busy.Store(false)
	close(done)
}

// capture returns nil when the window elapsed or the context was cancelled
// mid-stream; the caller tells those apart through the context cause.
func (e *Engine) capture(ctx context.Context, item *Item, cb Callbacks, logger zerolog.Logger) (err error) {
	if item.StreamURL == "" || item.OutputPath == "" {
		return fmt.Errorf("capture requires stream url and output path")
	}
	if err := os.MkdirAll(filepath.Dir(item.OutputPath), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.StreamURL, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	f, err := os.Create(filepath.Clean(item.OutputPath))
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()

	buf := make([]byte, e.chunkSize)
	var written int64
	for {
		// stop and deadline are observed at every chunk boundary
		if ctx.Err() != nil {
			return nil
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write output file: %w", werr)
			}
			written += int64(n)
			metrics.AddRecordingBytes(n)

			snap := e.snapshot(item, func(it *Item) { it.BytesWritten = written })
			percent := snap.Percent(e.now())
			e.progressLog.Do(func() {
				logger.Debug().
					Int64("bytes", written).
					Float64("percent", percent).
					Str("event", "recorder.progress").
					Msg("capture progress")
			})
			safeCall(logger, "on_progress", func() {
				if cb.OnProgress != nil {
					cb.OnProgress(snap, percent, written)
				}
			})
		}

		if rerr != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(rerr, io.EOF) {
				if !item.End.IsZero() && !e.now().Before(item.End) {
					return nil
				}
				return ErrStreamEnded
			}
			return fmt.Errorf("read stream: %w", rerr)
		}
	}
}

func safeCall(logger zerolog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("callback", name).
				Str("event", "recorder.callback_panic").
				Msg("recovered from panic in recorder callback")
		}
	}()
	fn()
}
