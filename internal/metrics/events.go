// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acblink_event_alerts_total",
		Help: "Total number of calendar event reminders fired",
	})

	eventActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acblink_event_actions_total",
		Help: "Calendar event actions by action and result",
	}, []string{"action", "result"}) // action=tune|record, result=success|failure
)

// IncEventAlert counts a fired event reminder.
func IncEventAlert() {
	eventAlertsTotal.Inc()
}

// IncEventAction counts an automatic tune or record triggered by an event.
func IncEventAction(action string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	eventActionsTotal.WithLabelValues(normalizeLabel(action, "tune", "record"), result).Inc()
}
