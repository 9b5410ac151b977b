package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"evcal/internal/model"
)

const productID = "-//evcal//calendar//EN"

// Export serializes events as a VCALENDAR named name. All-day events are
// written as DATE values with an exclusive DTEND.
func Export(events []model.Event, name string, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := now.UTC()
	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		ve.SetProperty(ical.ComponentProperty("COLOR"), string(e.Color.OrDefault()))

		if e.AllDay {
			start := dateOnly(e.Start)
			end := dateOnly(e.End).AddDate(0, 0, 1)
			ve.SetAllDayStartAt(start)
			ve.SetAllDayEndAt(end)
			continue
		}
		ve.SetStartAt(e.Start)
		ve.SetEndAt(e.End)
	}
	return cal.Serialize()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
