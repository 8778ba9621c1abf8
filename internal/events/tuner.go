// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/acblink/internal/log"
	platformnet "github.com/ManuGH/acblink/internal/platform/net"
)

// Tuner switches playback to a stream. Playback itself lives outside this module.
type Tuner interface {
	Tune(ctx context.Context, streamName, streamURL string) error
}

// Tuned describes the stream playback was last switched to.
type Tuned struct {
	StreamName string    `json:"stream_name"`
	StreamURL  string    `json:"stream_url"`
	Since      time.Time `json:"since"`
}

// NowPlaying is a Tuner that records the requested stream so a player can
// pick it up through the API.
type NowPlaying struct {
	mu      sync.RWMutex
	current *Tuned
	now     func() time.Time
}

// NewNowPlaying returns an empty tracker.
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{now: time.Now}
}

// Tune implements Tuner.
func (n *NowPlaying) Tune(ctx context.Context, streamName, streamURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if streamURL == "" {
		return fmt.Errorf("%w: no stream to tune to", ErrInvalidEvent)
	}
	n.mu.Lock()
	n.current = &Tuned{StreamName: streamName, StreamURL: streamURL, Since: n.now()}
	n.mu.Unlock()

	logger := log.WithComponent("events.tuner")
	logger.Info().
		Str(log.FieldStreamName, streamName).
		Str(log.FieldStreamURL, platformnet.SanitizeURL(streamURL)).
		Msg("tuned to event stream")
	return nil
}

// Current returns the last tuned stream.
func (n *NowPlaying) Current() (Tuned, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.current == nil {
		return Tuned{}, false
	}
	return *n.current, true
}
