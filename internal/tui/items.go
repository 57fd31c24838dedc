package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func formatTodayItem(item model.TodayItem) string {
	marker := "[ ]"
	if item.CompletedAt != nil {
		marker = "[x]"
	}
	if item.IsLinked() {
		return fmt.Sprintf("%s %s (%s)", marker, item.Label(), item.Source.Page)
	}
	return fmt.Sprintf("%s %s", marker, item.Label())
}

func formatPendingLine(exp model.Experience) string {
	return fmt.Sprintf("%s | since %s", exp.Name, formatWhen(exp.LastTriggeredAt))
}

func (u *UI) formatExperienceLine(exp model.Experience) string {
	next := "-"
	switch {
	case exp.PendingResponse:
		next = "waiting"
	case exp.NextTrigger != nil:
		next = formatUntil(*exp.NextTrigger, u.clock.Now())
	}
	return fmt.Sprintf("%s | %s | %s", exp.Name, exp.Status, next)
}

func todayItemDetail(item model.TodayItem) []string {
	lines := []string{item.Label()}
	if item.IsLinked() {
		source := item.Source.Page
		if item.Source.Type != "" {
			source += "/" + item.Source.Type
		}
		lines = append(lines, fmt.Sprintf("From: %s #%s", source, item.Source.ID))
		lines = append(lines, fmt.Sprintf("Added: %s", formatWhen(item.AddedAt)))
	} else {
		lines = append(lines, "Ad-hoc item")
		lines = append(lines, fmt.Sprintf("Added: %s", formatWhen(item.CreatedAt)))
	}
	lines = append(lines, fmt.Sprintf("Completed: %s", formatWhen(item.CompletedAt)))
	return lines
}

func experienceDetail(exp model.Experience) []string {
	lines := []string{
		exp.Name,
		fmt.Sprintf("Status: %s", exp.Status),
		fmt.Sprintf("Schedule: %s", describeSchedule(exp)),
		fmt.Sprintf("Next: %s", formatWhen(exp.NextTrigger)),
		fmt.Sprintf("Last triggered: %s", formatWhen(exp.LastTriggeredAt)),
		fmt.Sprintf("Last response: %s", formatWhen(exp.LastRespondedAt)),
	}
	if exp.Description != "" {
		lines = append(lines, "", exp.Description)
	}
	if exp.ResponseType == model.ResponseFixedChoice {
		lines = append(lines, "", "Choices:")
		lines = append(lines, numberedChoices(exp.Responses)...)
	} else {
		lines = append(lines, "", "Open answer")
	}
	return lines
}

func describeSchedule(exp model.Experience) string {
	if exp.TriggerType == model.TriggerSet {
		return fmt.Sprintf("at %s on %s", strings.Join(exp.TimesOfDay, ", "), strings.Join(exp.DaysOfWeek, ", "))
	}
	unit := exp.IntervalType
	if unit == "" {
		unit = "minutes"
	}
	return fmt.Sprintf("every %d %s", exp.IntervalNumber, unit)
}

func numberedChoices(responses []string) []string {
	lines := make([]string, 0, len(responses))
	for i, response := range responses {
		lines = append(lines, fmt.Sprintf("  %d %s", i+1, response))
	}
	return lines
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "n/a"
	}
	return t.Local().Format(timeLayout)
}

// formatUntil renders a trigger time relative to now, e.g. "in 25m".
func formatUntil(at, now time.Time) string {
	d := at.Sub(now)
	switch {
	case d <= 0:
		return "due"
	case d < time.Hour:
		return fmt.Sprintf("in %dm", max(int(d.Round(time.Minute).Minutes()), 1))
	case d < 24*time.Hour:
		return fmt.Sprintf("in %dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return at.Local().Format(timeLayout)
	}
}
