// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dvr

import "time"

// NextRun returns the first occurrence of start's schedule that is strictly
// after now and falls on a day the recurrence allows. It steps forward one
// calendar day (seven for weekly) at a time, so wall-clock time is kept
// across DST changes. For once, or an unknown kind, start is returned as is.
func NextRun(start, now time.Time, r Recurrence) time.Time {
	if !r.Recurring() {
		return start
	}
	days := 1
	if r == RecurrenceWeekly {
		days = 7
	}

	next := start
	for !next.After(now) || !r.allows(next.Weekday()) {
		next = next.AddDate(0, 0, days)
	}
	return next
}

func (r Recurrence) allows(d time.Weekday) bool {
	switch r {
	case RecurrenceWeekdays:
		return d >= time.Monday && d <= time.Friday
	case RecurrenceWeekends:
		return d == time.Saturday || d == time.Sunday
	default:
		return true
	}
}
