// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"fmt"
	"sort"
	"time"
)

// GetUpcomingAlerts lists events that are live or start within the next
// hours, most urgent first. Non-positive hours selects DefaultAlertHours and
// the window is capped at MaxAlertHours.
func (s *Scheduler) GetUpcomingAlerts(hours int) []Alert {
	if hours <= 0 {
		hours = DefaultAlertHours
	}
	hours = min(hours, MaxAlertHours)
	now := s.now()
	horizon := now.Add(time.Duration(hours) * time.Hour)

	s.mu.Lock()
	var out []Alert
	for _, ev := range s.events {
		if ev.Status == StatusCancelled || ev.Status == StatusCompleted {
			continue
		}
		if !ev.End.After(now) || ev.Start.After(horizon) {
			continue
		}
		out = append(out, buildAlert(ev, now))
	}
	s.mu.Unlock()

	sortAlerts(out)
	return out
}

func buildAlert(ev ScheduledEvent, now time.Time) Alert {
	a := Alert{
		EventID:    ev.ID,
		Title:      ev.Title,
		Category:   ev.Category,
		StreamName: ev.StreamName,
		Start:      ev.Start,
		End:        ev.End,
	}
	if !now.Before(ev.Start) {
		a.Live = true
		a.Priority = PriorityLive
		a.Label = "LIVE NOW"
		return a
	}

	until := ev.Start.Sub(now)
	a.MinutesUntil = int((until + time.Minute - 1) / time.Minute)
	switch {
	case a.MinutesUntil <= 15:
		a.Priority = PrioritySoon
		a.Label = startingIn(a.MinutesUntil, "minute")
	case a.MinutesUntil <= 60:
		a.Priority = PriorityWithinHour
		a.Label = startingIn(a.MinutesUntil, "minute")
	case until < 48*time.Hour:
		a.Priority = PriorityLater
		a.Label = startingIn(int(until/time.Hour), "hour")
	default:
		a.Priority = PriorityLater
		a.Label = startingIn(int(until/(24*time.Hour)), "day")
	}
	return a
}

func startingIn(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("Starting in 1 %s", unit)
	}
	return fmt.Sprintf("Starting in %d %ss", n, unit)
}

func sortAlerts(as []Alert) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Priority != as[j].Priority {
			return as[i].Priority < as[j].Priority
		}
		if !as[i].Start.Equal(as[j].Start) {
			return as[i].Start.Before(as[j].Start)
		}
		return as[i].EventID < as[j].EventID
	})
}
