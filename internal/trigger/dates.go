package trigger

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by task documents.
const DateLayout = "2006-01-02"

// FromCompletion anchors the next due date to the completion day instead
// of the previous due date.
const FromCompletion = "completion"

// AddDateInterval steps a calendar date by n days, weeks, months or years.
// Unknown units count as days; n <= 0 counts as 1.
func AddDateInterval(date time.Time, n int, unit string) time.Time {
	if n <= 0 {
		n = 1
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "week", "weeks":
		return date.AddDate(0, 0, 7*n)
	case "month", "months":
		return date.AddDate(0, n, 0)
	case "year", "years":
		return date.AddDate(n, 0, 0)
	default:
		return date.AddDate(0, 0, n)
	}
}

// NextDueDate advances a recurring task by exactly one interval. When from
// is "completion" the step starts at today; otherwise it starts at the
// current due date (or today when due is empty or malformed).
func NextDueDate(due string, n int, unit, from string, today time.Time) string {
	start := truncateDay(today)
	if !strings.EqualFold(strings.TrimSpace(from), FromCompletion) {
		if parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(due), today.Location()); err == nil {
			start = parsed
		}
	}
	return AddDateInterval(start, n, unit).Format(DateLayout)
}

// DaysBetween returns the whole calendar days from a to b (negative when
// b is before a).
func DaysBetween(a, b time.Time) int {
	da := truncateDay(a)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, a.Location())
	// Go through UTC noon to stay clear of DST shifts.
	ua := time.Date(da.Year(), da.Month(), da.Day(), 12, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 12, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
