package store

import (
	"time"

	"evcal/internal/model"
)

// SampleEvents returns the demo calendar: public holidays in May/June of
// year as all-day events, plus a day of overlapping meetings on June 13.
// Times are wall-clock times in loc.
func SampleEvents(year int, loc *time.Location) []model.Event {
	if loc == nil {
		loc = time.Local
	}
	at := func(month time.Month, day, hour, min int) time.Time {
		return time.Date(year, month, day, hour, min, 0, 0, loc)
	}
	holiday := func(id, title string, month time.Month, day int) model.Event {
		return model.Event{
			ID:     id,
			Title:  title,
			Start:  at(month, day, 0, 0),
			End:    at(month, day, 23, 59),
			Color:  model.ColorGreen,
			AllDay: true,
		}
	}
	meeting := func(id, title, desc string, color model.Color, h1, m1, h2, m2 int) model.Event {
		return model.Event{
			ID:          id,
			Title:       title,
			Description: desc,
			Start:       at(time.June, 13, h1, m1),
			End:         at(time.June, 13, h2, m2),
			Color:       color,
		}
	}

	return []model.Event{
		holiday("1", "Hari Buruh Internasional / Pekerja", time.May, 1),
		holiday("2", "International Labor Day", time.May, 1),
		holiday("3", "Hari Raya Waisak", time.May, 12),
		holiday("4", "Waisak Day (Buddha's Anniversary)", time.May, 12),
		holiday("5", "Cuti Bersama Waisak", time.May, 13),
		holiday("6", "Joint Holiday for Waisak Day", time.May, 13),
		holiday("7", "Kenaikan Isa Al Masih", time.May, 29),
		holiday("8", "Ascension Day of Jesus Christ", time.May, 29),
		holiday("9", "Cuti Bersama Kenaikan Isa Al Masih", time.May, 30),
		holiday("10", "Joint Holiday after Ascension Day", time.May, 30),
		holiday("11", "Hari Lahir Pancasila", time.June, 1),
		holiday("12", "Pancasila Day", time.June, 1),
		holiday("13", "Idul Adha (Lebaran Haji)", time.June, 6),
		holiday("14", "Idul Adha", time.June, 6),
		holiday("15", "Eid al-Adha", time.June, 6),
		meeting("16", "Team Meeting", "Weekly team sync", model.ColorBlue, 10, 0, 11, 0),
		meeting("17", "Project Review", "Review Q2 progress", model.ColorPurple, 14, 0, 15, 30),
		meeting("18", "Design Review", "Review new UI designs", model.ColorRed, 10, 30, 11, 30),
		meeting("19", "Client Call", "Discuss project timeline", model.ColorYellow, 10, 45, 11, 15),
		meeting("20", "Quick Standup", "Daily team check-in", model.ColorPurple, 10, 0, 10, 15),
	}
}
