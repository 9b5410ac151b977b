// Package calendar holds the date arithmetic behind the month, week, day and
// schedule views: navigation, day filtering, month grids, schedule grouping
// and the per-day overlap layout consumed by the renderers.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// View is one of the calendar's display modes.
type View string

const (
	ViewMonth    View = "month"
	ViewWeek     View = "week"
	ViewDay      View = "day"
	ViewSchedule View = "schedule"
)

// Views lists the modes in toolbar order.
var Views = []View{ViewSchedule, ViewMonth, ViewWeek, ViewDay}

// DefaultScheduleMonths is how far ahead the schedule view looks.
const DefaultScheduleMonths = 12

// ParseView parses a view name; an empty string selects the month view.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewMonth, nil
	case ViewMonth, ViewWeek, ViewDay, ViewSchedule:
		return v, nil
	default:
		return "", fmt.Errorf("calendar: unknown view %q", s)
	}
}

// ParseWeekStart maps the config value ("monday"/"sunday") to a weekday.
// Anything else means Monday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day, comparing
// in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfWeek returns midnight of the first day of t's week.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	diff := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -diff)
}

// WeekDays returns the seven days of t's week.
func WeekDays(t time.Time, weekStart time.Weekday) []time.Time {
	first := StartOfWeek(t, weekStart)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// AddMonths moves t by n months, clamping the day to the target month's
// length (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// Step moves the view's reference date one page forward (dir > 0) or back
// (dir < 0): a month for month/schedule, a week, or a day.
func Step(v View, t time.Time, dir int) time.Time {
	switch {
	case dir > 0:
		dir = 1
	case dir < 0:
		dir = -1
	default:
		return t
	}
	switch v {
	case ViewWeek:
		return t.AddDate(0, 0, 7*dir)
	case ViewDay:
		return t.AddDate(0, 0, dir)
	default:
		return AddMonths(t, dir)
	}
}

// Today is the reference date the toolbar's "Today" button jumps to.
func Today(now time.Time) time.Time {
	return StartOfDay(now)
}
