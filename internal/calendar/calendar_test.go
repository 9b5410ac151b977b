package calendar

import (
	"testing"
	"time"

	"evcal/internal/layout"
	"evcal/internal/locale"
	"evcal/internal/model"
	"evcal/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"", ViewMonth, false},
		{"week", ViewWeek, false},
		{" Day ", ViewDay, false},
		{"schedule", ViewSchedule, false},
		{"year", "", true},
	}
	for _, tt := range tests {
		got, err := ParseView(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseView(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseWeekStart(t *testing.T) {
	if ParseWeekStart("Sunday") != time.Sunday {
		t.Error("sunday should map to time.Sunday")
	}
	if ParseWeekStart("monday") != time.Monday || ParseWeekStart("") != time.Monday {
		t.Error("default week start should be Monday")
	}
}

func TestWeekDays(t *testing.T) {
	// Friday 13 June 2025.
	ref := time.Date(2025, 6, 13, 15, 30, 0, 0, time.UTC)

	mon := WeekDays(ref, time.Monday)
	if !mon[0].Equal(date(2025, 6, 9)) || !mon[6].Equal(date(2025, 6, 15)) {
		t.Errorf("monday week = %v..%v", mon[0], mon[6])
	}

	sun := WeekDays(ref, time.Sunday)
	if !sun[0].Equal(date(2025, 6, 8)) || !sun[6].Equal(date(2025, 6, 14)) {
		t.Errorf("sunday week = %v..%v", sun[0], sun[6])
	}

	// A Monday is the first day of its own week.
	if got := StartOfWeek(date(2025, 6, 9), time.Monday); !got.Equal(date(2025, 6, 9)) {
		t.Errorf("StartOfWeek(monday) = %v", got)
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		in   time.Time
		n    int
		want time.Time
	}{
		{date(2025, 1, 31), 1, date(2025, 2, 28)},
		{date(2024, 1, 31), 1, date(2024, 2, 29)},
		{date(2025, 3, 31), -1, date(2025, 2, 28)},
		{date(2025, 12, 15), 1, date(2026, 1, 15)},
		{date(2025, 6, 13), 12, date(2026, 6, 13)},
	}
	for _, tt := range tests {
		if got := AddMonths(tt.in, tt.n); !got.Equal(tt.want) {
			t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestStep(t *testing.T) {
	ref := date(2025, 6, 13)
	tests := []struct {
		view View
		dir  int
		want time.Time
	}{
		{ViewMonth, 1, date(2025, 7, 13)},
		{ViewMonth, -1, date(2025, 5, 13)},
		{ViewSchedule, 1, date(2025, 7, 13)},
		{ViewWeek, 1, date(2025, 6, 20)},
		{ViewWeek, -3, date(2025, 6, 6)},
		{ViewDay, -1, date(2025, 6, 12)},
		{ViewDay, 0, ref},
	}
	for _, tt := range tests {
		if got := Step(tt.view, ref, tt.dir); !got.Equal(tt.want) {
			t.Errorf("Step(%s, %d) = %v, want %v", tt.view, tt.dir, got, tt.want)
		}
	}
}

func TestRangeText(t *testing.T) {
	tests := []struct {
		name string
		view View
		ref  time.Time
		loc  locale.Locale
		want string
	}{
		{"month", ViewMonth, date(2025, 6, 13), locale.English, "June 2025"},
		{"day", ViewDay, date(2025, 6, 13), locale.English, "June 13, 2025"},
		{"week within month", ViewWeek, date(2025, 6, 13), locale.English, "June 2025"},
		{"week across months", ViewWeek, date(2025, 7, 1), locale.English, "Jun – Jul 2025"},
		{"schedule", ViewSchedule, date(2025, 6, 13), locale.English, "Jun 2025 – Jun 2026"},
		{"indonesian month", ViewMonth, date(2025, 5, 1), locale.Indonesian, "Mei 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RangeText(tt.view, tt.ref, time.Monday, tt.loc); got != tt.want {
				t.Errorf("RangeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMonthGrid(t *testing.T) {
	events := store.SampleEvents(2025, time.UTC)
	now := time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC)

	weeks := MonthGrid(date(2025, 6, 20), time.Monday, now, events)
	// June 2025 starts on a Sunday: the grid runs Mon 26 May .. Sun 6 July.
	if len(weeks) != 6 {
		t.Fatalf("weeks = %d, want 6", len(weeks))
	}
	if first := weeks[0][0]; !first.Date.Equal(date(2025, 5, 26)) || first.InMonth {
		t.Errorf("first cell = %+v", first)
	}
	if last := weeks[5][6]; !last.Date.Equal(date(2025, 7, 6)) || last.InMonth {
		t.Errorf("last cell = %+v", last)
	}

	var today *MonthCell
	for w := range weeks {
		for d := range weeks[w] {
			if weeks[w][d].Today {
				today = &weeks[w][d]
			}
		}
	}
	if today == nil || !today.Date.Equal(date(2025, 6, 13)) {
		t.Fatalf("today cell = %+v", today)
	}
	if len(today.Events) != 5 {
		t.Errorf("June 13 has %d events, want 5", len(today.Events))
	}
}

func TestSchedule(t *testing.T) {
	events := []model.Event{
		{ID: "later", Start: time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)},
		{ID: "same-day-b", Start: time.Date(2025, 6, 13, 14, 0, 0, 0, time.UTC)},
		{ID: "same-day-a", Start: time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC)},
		{ID: "before", Start: time.Date(2025, 6, 12, 23, 0, 0, 0, time.UTC)},
		{ID: "last-day", Start: time.Date(2025, 7, 13, 22, 0, 0, 0, time.UTC)},
		{ID: "too-late", Start: time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)},
	}
	from := time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC)

	got := Schedule(events, from, 1)
	if len(got) != 3 {
		t.Fatalf("days = %d, want 3: %+v", len(got), got)
	}
	if got[0].Key != "2025-06-13" || len(got[0].Events) != 2 || got[0].Events[0].ID != "same-day-a" {
		t.Errorf("first day = %+v", got[0])
	}
	if got[1].Key != "2025-06-20" || got[2].Key != "2025-07-13" {
		t.Errorf("keys = %s, %s", got[1].Key, got[2].Key)
	}

	if len(Schedule(nil, from, 0)) != 0 {
		t.Error("empty schedule expected")
	}
}

func TestDayColumns(t *testing.T) {
	events := store.SampleEvents(2025, time.UTC)
	days := WeekDays(date(2025, 6, 13), time.Monday)

	cols := DayColumns(events, days, layout.Options{})
	if len(cols) != 7 {
		t.Fatalf("columns = %d", len(cols))
	}
	for i, c := range cols {
		if !c.Date.Equal(days[i]) {
			t.Errorf("column %d date = %v, want %v", i, c.Date, days[i])
		}
	}

	friday := cols[4]
	if len(friday.Timed) != 5 || len(friday.AllDay) != 0 {
		t.Fatalf("friday: %d timed, %d all-day", len(friday.Timed), len(friday.AllDay))
	}
	maxCount := 0
	for _, p := range friday.Timed {
		maxCount = max(maxCount, p.ColumnCount)
	}
	if maxCount != 3 {
		t.Errorf("max column count = %d, want 3", maxCount)
	}

	// 1 June 2025 is the Sunday of the previous week.
	prev := DayColumns(events, []time.Time{date(2025, 6, 1)}, layout.Options{})
	if len(prev[0].AllDay) != 2 || len(prev[0].Timed) != 0 {
		t.Errorf("June 1 = %d all-day, %d timed", len(prev[0].AllDay), len(prev[0].Timed))
	}
}

func TestSameDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	a := time.Date(2025, 6, 13, 1, 0, 0, 0, jakarta)
	b := time.Date(2025, 6, 12, 20, 0, 0, 0, time.UTC) // 03:00 on the 13th in WIB
	if !SameDay(a, b) {
		t.Error("expected same day when compared in a's location")
	}
	if SameDay(date(2025, 6, 13), date(2025, 6, 14)) {
		t.Error("different days reported equal")
	}
}
