// Package ics imports subscribed iCalendar feeds into the event store and
// exports the store as a VCALENDAR.
package ics

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "evcal/internal/log"
	"evcal/internal/model"
)

const dateValueLayout = "20060102"

// Parse converts the VEVENTs of body into events in loc.
//
// Recurring events contribute their first instance only. RECURRENCE-ID
// overrides and cancelled events are skipped. Every event carries
// src.ID as SourceID and src.Color.
func Parse(src Source, body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var (
		events    []model.Event
		recurring int
	)
	for _, ve := range cal.Events() {
		if ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
			continue
		}
		if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
			continue
		}
		ev, err := toEvent(src, ve, loc)
		if err != nil {
			appLog.Error("ics vevent skipped", err, "id", src.ID)
			continue
		}
		if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
			recurring++
		}
		events = append(events, ev)
	}

	slices.SortStableFunc(events, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})

	appLog.Debug("ics parsed", "id", src.ID, "events", len(events), "recurring", recurring)
	return events, nil
}

func toEvent(src Source, ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	ev := model.Event{
		Color:    src.Color.OrDefault(),
		SourceID: src.ID,
	}
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.ID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}

	if isDateValue(dtStart) {
		start, err := time.ParseInLocation(dateValueLayout, dtStart.Value, loc)
		if err != nil {
			return ev, err
		}
		// DTEND of an all-day event is exclusive.
		end := start.AddDate(0, 0, 1)
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if t, err := time.ParseInLocation(dateValueLayout, p.Value, loc); err == nil && t.After(start) {
				end = t
			}
		}
		ev.AllDay = true
		ev.Start = start
		ev.End = end.Add(-time.Millisecond)
		return ev, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, err
	}
	ev.Start = start.In(loc)
	ev.End = ev.Start
	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		ev.End = end.In(loc)
	}
	return ev, nil
}

// isDateValue reports whether a DTSTART holds a DATE rather than a DATE-TIME.
func isDateValue(p *ical.IANAProperty) bool {
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return len(p.Value) == len(dateValueLayout) && !strings.Contains(p.Value, "T")
}
