/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
	"math"
	"time"
)

// WeekStatus tells a caller why a date did or did not land in the window.
// NoDate, Before and After are handled differently (drop vs clamp vs
// log-and-drop), so they stay distinct.
type WeekStatus int

const (
	WeekOK WeekStatus = iota
	WeekNoDate
	WeekBefore
	WeekAfter
)

// WeekStartDates returns n week start dates, start + 7*i days.
func WeekStartDates(start time.Time, n int) []time.Time {
	if n <= 0 { return nil }
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, 7*i))
	}
	return out
}

// MondayOf returns midnight on the Monday of t's week.
func MondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 { weekday = 7 }
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

// WeekIndex maps t into a zero-based week offset from start. The index is
// returned even when the status is WeekBefore or WeekAfter so callers that
// clamp can still see how far out of range the date fell.
func WeekIndex(t *time.Time, start time.Time, n int) (int, WeekStatus) {
	if t == nil || t.IsZero() { return 0, WeekNoDate }
	days := t.Sub(start).Hours() / 24.0
	idx := int(math.Floor(days / 7.0))
	if idx < 0 { return idx, WeekBefore }
	if idx >= n { return idx, WeekAfter }
	return idx, WeekOK
}

// ClampWeekIndex is the clamped policy variant: out-of-window dates are
// attributed to the nearest boundary week. Only a missing date reports !ok.
func ClampWeekIndex(t *time.Time, start time.Time, n int) (int, bool) {
	idx, st := WeekIndex(t, start, n)
	switch st {
	case WeekNoDate:
		return 0, false
	case WeekBefore:
		return 0, true
	case WeekAfter:
		return n - 1, true
	}
	return idx, true
}
