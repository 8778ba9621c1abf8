// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus collectors of the daemon.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordingsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acblink_recordings_active",
		Help: "Number of stream captures currently running (0 or 1)",
	})

	recordingBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acblink_recording_bytes_total",
		Help: "Total number of stream bytes written to recording files",
	})

	recordingsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acblink_recordings_finished_total",
		Help: "Finished stream captures by outcome",
	}, []string{"outcome"}) // outcome=completed|stopped|failed|unknown

	schedulerFiresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acblink_scheduler_fires_total",
		Help: "Scheduled recording fires by recurrence kind and result",
	}, []string{"kind", "result"}) // result=started|busy|error

	persistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acblink_persistence_failures_total",
		Help: "Failed state file writes by file",
	}, []string{"file"})
)

// SetRecordingActive toggles the active capture gauge.
func SetRecordingActive(active bool) {
	if active {
		recordingsActive.Set(1)
		return
	}
	recordingsActive.Set(0)
}

// AddRecordingBytes adds n written bytes. Non-positive values are ignored.
func AddRecordingBytes(n int) {
	if n > 0 {
		recordingBytesTotal.Add(float64(n))
	}
}

// IncRecordingFinished counts a finished capture.
// outcome ∈ {completed,stopped,failed}; anything else is recorded as unknown.
func IncRecordingFinished(outcome string) {
	recordingsFinishedTotal.WithLabelValues(normalizeLabel(outcome, "completed", "stopped", "failed")).Inc()
}

// IncSchedulerFire counts a poller fire of a scheduled recording.
// kind ∈ {once,daily,weekly,weekdays,weekends}; result ∈ {started,busy,error}.
func IncSchedulerFire(kind, result string) {
	schedulerFiresTotal.WithLabelValues(
		normalizeLabel(kind, "once", "daily", "weekly", "weekdays", "weekends"),
		normalizeLabel(result, "started", "busy", "error"),
	).Inc()
}

// IncPersistenceFailure counts a failed write of a state file. Only the
// base name is used as label to keep cardinality bounded.
func IncPersistenceFailure(file string) {
	name := file
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "unknown"
	}
	persistenceFailuresTotal.WithLabelValues(name).Inc()
}

func normalizeLabel(raw string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return "unknown"
}
