package collection

import (
	"slices"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/trigger"
)

// rule is what completing (or reopening) a task means for one
// collection/type pair.
type rule int

const (
	// closes, or advances the due date when the task recurs
	ruleCloseOrAdvance rule = iota
	ruleClose
	ruleCloseStamped
	ruleWeekly
	ruleRecurring
	ruleStretch
)

func ruleFor(collection, typ string) rule {
	switch collection {
	case DIY:
		return ruleClose
	case Parenting, FamilyFriends:
		return ruleCloseStamped
	case Index:
		switch typ {
		case TypeWeekly:
			return ruleWeekly
		case TypeRecurring:
			return ruleRecurring
		case TypeStretch:
			return ruleStretch
		}
	}
	return ruleCloseOrAdvance
}

func (r rule) complete(task *Task, now time.Time) {
	today := dateOf(now)
	switch r {
	case ruleCloseOrAdvance:
		if task.Recurring {
			advance(task, now)
			task.CompletedDates = appendMissing(task.CompletedDates, today)
			return
		}
		if task.IsClosed() {
			return
		}
		task.Status = StatusClosed
		task.CompletedDates = appendMissing(task.CompletedDates, today)
	case ruleClose:
		task.Status = StatusClosed
	case ruleCloseStamped:
		if task.IsClosed() {
			return
		}
		task.Status = StatusClosed
		task.CompletedDates = append(task.CompletedDates, now.Format(time.RFC3339))
	case ruleWeekly:
		task.CompletedDates = appendMissing(task.CompletedDates, today)
		task.Missed = slices.DeleteFunc(task.Missed, func(d string) bool { return d == today })
	case ruleRecurring:
		due := strings.TrimSpace(task.DueDate)
		if due == "" {
			due = today
		}
		task.CompletedDates = append(task.CompletedDates, due)
		diff := 0
		if parsed, err := time.ParseInLocation(trigger.DateLayout, due, now.Location()); err == nil {
			diff = trigger.DaysBetween(parsed, now)
		}
		task.LastDiff = &diff
		advance(task, now)
	case ruleStretch:
		task.CompletedDates = appendMissing(task.CompletedDates, today)
	}
}

func (r rule) reopen(task *Task, now time.Time) {
	today := dateOf(now)
	switch r {
	case ruleRecurring:
		// a recurring completion cannot be taken back
	case ruleWeekly, ruleStretch:
		task.CompletedDates = slices.DeleteFunc(task.CompletedDates, func(d string) bool { return d == today })
	case ruleCloseOrAdvance:
		if task.Recurring {
			return
		}
		task.Status = StatusOpen
	default:
		task.Status = StatusOpen
	}
}

// recurs reports whether completions of the task advance a due date instead
// of closing it.
func (r rule) recurs(task Task) bool {
	return r == ruleRecurring || (r == ruleCloseOrAdvance && task.Recurring)
}

// done is the task's completion state as seen by the Today view.
func (r rule) done(task Task, today string) bool {
	switch r {
	case ruleWeekly, ruleStretch:
		return slices.Contains(task.CompletedDates, today)
	default:
		return task.IsClosed()
	}
}

func advance(task *Task, now time.Time) {
	task.DueDate = trigger.NextDueDate(task.DueDate, task.Interval, task.Unit, task.From, now)
}

func appendMissing(list []string, value string) []string {
	if slices.Contains(list, value) {
		return list
	}
	return append(list, value)
}
