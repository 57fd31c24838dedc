// Package trigger computes when experiences and recurring tasks are next
// due. Everything here is pure: callers pass "now" explicitly.
package trigger

import (
	"strings"
	"time"
)

// Interval units for experiences.
const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
)

// MaxInterval is the longest interval an experience may use.
const MaxInterval = 10 * 365 * 24 * time.Hour

// IntervalDuration converts an experience interval to a duration. Unknown
// units count as minutes, non-positive counts as 1 and anything longer
// than MaxInterval is clamped to it, so the result is always positive.
func IntervalDuration(n int, unit string) time.Duration {
	if n <= 0 {
		n = 1
	}
	per := unitDuration(unit)
	if int64(n) > int64(MaxInterval/per) {
		return MaxInterval
	}
	return time.Duration(n) * per
}

// IntervalAllowed reports whether n units fit within MaxInterval.
func IntervalAllowed(n int, unit string) bool {
	return n > 0 && int64(n) <= int64(MaxInterval/unitDuration(unit))
}

func unitDuration(unit string) time.Duration {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case UnitDays, "day":
		return 24 * time.Hour
	case UnitHours, "hour":
		return time.Hour
	default:
		return time.Minute
	}
}

// NextRecurring returns now advanced by one interval.
func NextRecurring(n int, unit string, now time.Time) time.Time {
	return now.Add(IntervalDuration(n, unit))
}

// NextRecurringFromBase returns the first instant on the progression
// base + k*interval (k >= 1) that is strictly after now. A nil or zero
// base falls back to NextRecurring.
func NextRecurringFromBase(base *time.Time, n int, unit string, now time.Time) time.Time {
	if base == nil || base.IsZero() {
		return NextRecurring(n, unit, now)
	}
	step := IntervalDuration(n, unit)
	next := base.Add(step)
	for !next.After(now) {
		// Jump every whole period in one go. now.Sub saturates for bases
		// centuries back, which only costs extra rounds.
		gap := now.Sub(next)
		next = next.Add(gap / step * step).Add(step)
	}
	return next
}

// ParseTimestamp parses an RFC 3339 timestamp, returning nil when the
// value is empty or malformed.
func ParseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	return &parsed
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday accepts abbreviations and full names in any case.
func ParseWeekday(value string) (time.Weekday, bool) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(value))]
	return day, ok
}

// ParseTimeOfDay parses "HH:MM" into hour and minute.
func ParseTimeOfDay(value string) (int, int, bool) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, false
	}
	return parsed.Hour(), parsed.Minute(), true
}

// NextSetTrigger scans the seven calendar days starting with today (in
// now's location) and returns the earliest configured slot strictly after
// now, or nil if there is none in that window. Unparsable times and day
// names are skipped.
func NextSetTrigger(timesOfDay []string, daysOfWeek []string, now time.Time) *time.Time {
	allowed := make(map[time.Weekday]bool, len(daysOfWeek))
	for _, name := range daysOfWeek {
		if day, ok := ParseWeekday(name); ok {
			allowed[day] = true
		}
	}

	var best *time.Time
	year, month, day := now.Date()
	for offset := 0; offset < 7; offset++ {
		date := time.Date(year, month, day+offset, 0, 0, 0, 0, now.Location())
		if !allowed[date.Weekday()] {
			continue
		}
		for _, value := range timesOfDay {
			hour, minute, ok := ParseTimeOfDay(value)
			if !ok {
				continue
			}
			candidate := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, now.Location())
			if !candidate.After(now) {
				continue
			}
			if best == nil || candidate.Before(*best) {
				c := candidate
				best = &c
			}
		}
		if best != nil {
			// Later days cannot beat a slot found on an earlier day.
			return best
		}
	}
	return best
}
