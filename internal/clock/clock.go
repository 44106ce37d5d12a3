/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package clock implements minute-granularity time-of-day arithmetic for
// single-day event schedules.
package clock

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of the wrapping 24-hour clock.
const MinutesPerDay = 24 * 60

// Clock is a time of day expressed as minutes after midnight, always in
// [0, MinutesPerDay).
type Clock int

// New builds a Clock from hour and minute, wrapping out-of-range values.
func New(hour, minute int) Clock {
	return wrap(hour*60 + minute)
}

// Parse reads "H:MM", "HH:MM" or "HH:MM:SS". Seconds are truncated.
func Parse(s string) (Clock, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 || len(parts[0]) > 2 {
		return 0, false
	}
	if len(parts[1]) != 2 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 || len(parts[2]) != 2 {
			return 0, false
		}
	}
	return New(hour, minute), true
}

// Add returns the clock advanced by minutes. Crossing midnight wraps without
// tracking the day boundary.
func (c Clock) Add(minutes int) Clock {
	return wrap(int(c) + minutes)
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

// String formats the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Range formats a "start - end" display string.
func Range(start, end Clock) string {
	return start.String() + " - " + end.String()
}

func wrap(m int) Clock {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return Clock(m)
}
