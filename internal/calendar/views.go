package calendar

import (
	"slices"
	"sync"
	"time"

	"evcal/internal/layout"
	"evcal/internal/locale"
	"evcal/internal/model"
)

// EventsOnDay returns the events whose start falls on day's calendar day,
// in input order.
func EventsOnDay(events []model.Event, day time.Time) []model.Event {
	var out []model.Event
	for _, ev := range events {
		if SameDay(day, ev.Start) {
			out = append(out, ev)
		}
	}
	return out
}

// MonthCell is one day of the month grid.
type MonthCell struct {
	Date    time.Time
	InMonth bool
	Today   bool
	Events  []model.Event
}

// MonthGrid returns the weeks covering t's month, padded with days of the
// neighbouring months so every row has seven cells. now marks today.
func MonthGrid(t time.Time, weekStart time.Weekday, now time.Time, events []model.Event) [][]MonthCell {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	day := StartOfWeek(first, weekStart)

	var weeks [][]MonthCell
	for !day.After(last) {
		week := make([]MonthCell, 7)
		for i := range week {
			week[i] = MonthCell{
				Date:    day,
				InMonth: day.Month() == t.Month(),
				Today:   SameDay(day, now),
				Events:  EventsOnDay(events, day),
			}
			day = day.AddDate(0, 0, 1)
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// ScheduleDay groups the events of one date in the schedule view.
type ScheduleDay struct {
	Key    string // yyyy-MM-dd
	Date   time.Time
	Events []model.Event
}

// Schedule lists the events starting between from and from+months (both
// ends inclusive by calendar day), sorted by start and grouped by date.
func Schedule(events []model.Event, from time.Time, months int) []ScheduleDay {
	if months <= 0 {
		months = DefaultScheduleMonths
	}
	lo := StartOfDay(from)
	hi := StartOfDay(AddMonths(from, months)).AddDate(0, 0, 1)

	var in []model.Event
	for _, ev := range events {
		s := ev.Start.In(from.Location())
		if !s.Before(lo) && s.Before(hi) {
			in = append(in, ev)
		}
	}
	slices.SortStableFunc(in, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})

	var out []ScheduleDay
	for _, ev := range in {
		date := StartOfDay(ev.Start.In(from.Location()))
		key := date.Format(model.DateLayout)
		if n := len(out); n > 0 && out[n-1].Key == key {
			out[n-1].Events = append(out[n-1].Events, ev)
			continue
		}
		out = append(out, ScheduleDay{Key: key, Date: date, Events: []model.Event{ev}})
	}
	return out
}

// RangeText renders the toolbar heading for view v at t in loc.
func RangeText(v View, t time.Time, weekStart time.Weekday, loc locale.Locale) string {
	switch v {
	case ViewSchedule:
		end := AddMonths(t, DefaultScheduleMonths)
		return loc.Format(t, "MMM yyyy") + " – " + loc.Format(end, "MMM yyyy")
	case ViewWeek:
		days := WeekDays(t, weekStart)
		first, last := days[0], days[6]
		if first.Month() == last.Month() && first.Year() == last.Year() {
			return loc.Format(first, "MMMM yyyy")
		}
		return loc.Format(first, "MMM") + " – " + loc.Format(last, "MMM yyyy")
	case ViewDay:
		return loc.Format(t, "MMMM d, yyyy")
	default:
		return loc.Format(t, "MMMM yyyy")
	}
}

// DayColumn is the laid-out content of one day in the day or week view.
// All-day events sit in a strip above the grid and are not positioned.
type DayColumn struct {
	Date   time.Time
	AllDay []model.Event
	Timed  []layout.Positioned
}

// DayColumns lays out each day independently. Days are computed
// concurrently; the result keeps the order of days.
func DayColumns(events []model.Event, days []time.Time, opts layout.Options) []DayColumn {
	cols := make([]DayColumn, len(days))

	var wg sync.WaitGroup
	for i, day := range days {
		wg.Add(1)
		go func(i int, day time.Time) {
			defer wg.Done()
			cols[i] = dayColumn(events, day, opts)
		}(i, day)
	}
	wg.Wait()

	return cols
}

func dayColumn(events []model.Event, day time.Time, opts layout.Options) DayColumn {
	col := DayColumn{Date: StartOfDay(day)}
	var timed []model.Event
	for _, ev := range EventsOnDay(events, day) {
		if ev.AllDay {
			col.AllDay = append(col.AllDay, ev)
			continue
		}
		timed = append(timed, ev)
	}
	col.Timed = layout.PositionEventsWith(timed, opts)
	return col
}
