// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/acblink/internal/log"
	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is how often a poller scans for due work.
	DefaultPollInterval = 30 * time.Second

	pollerStopTimeout = 5 * time.Second
)

// Checker is the body of a poll cycle.
type Checker interface {
	CheckDue(ctx context.Context, now time.Time)
}

// Clock interface for mocking time
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer interface for mocking time.Timer
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock implements Clock using standard time package
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer {
	return &RealTimer{t: time.NewTimer(d)}
}

// RealTimer wraps time.Timer
type RealTimer struct {
	t *time.Timer
}

func (r *RealTimer) C() <-chan time.Time        { return r.t.C }
func (r *RealTimer) Stop() bool                 { return r.t.Stop() }
func (r *RealTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

// PollerOptions configure a Poller.
type PollerOptions struct {
	Interval time.Duration
	Clock    Clock
}

// Poller runs a Checker on a fixed interval in one background goroutine.
type Poller struct {
	name    string
	checker Checker
	clock   Clock
	logger  zerolog.Logger

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a stopped poller. name appears in logs.
func NewPoller(name string, checker Checker, opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	return &Poller{
		name:     name,
		checker:  checker,
		clock:    clock,
		interval: interval,
		logger:   log.WithComponent("poller").With().Str("poller", name).Logger(),
	}
}

// Interval returns the current wake interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval changes the interval; it takes effect at the next wake.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	old := p.interval
	p.interval = d
	p.mu.Unlock()
	if old != d {
		p.logger.Info().Dur("old", old).Dur("new", d).Msg("poll interval changed")
	}
}

// Start launches the loop. It checks once immediately and then every
// interval until ctx is cancelled or Stop is called. Starting a running
// poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)
}

// Stop cancels the loop and waits up to 5 seconds for it to exit. It is a
// no-op when the poller is not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	select {
	case <-done:
	case <-time.After(pollerStopTimeout):
		p.logger.Warn().Dur("timeout", pollerStopTimeout).Msg("poller did not stop in time")
	}
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	p.logger.Info().Dur("interval", p.Interval()).Msg("poller started")

	p.runOnce(ctx)

	timer := p.clock.NewTimer(p.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poller stopping")
			return
		case <-timer.C():
			p.runOnce(ctx)
			timer.Reset(p.Interval())
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Interface("panic", r).
				Str("event", "poller.panic").
				Msg("recovered from panic in poll cycle")
		}
	}()
	if ctx.Err() != nil {
		return
	}
	p.checker.CheckDue(ctx, p.clock.Now())
}
