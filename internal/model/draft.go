package model

import (
	"strings"
	"time"

	"evcal/internal/apperr"
)

// Form defaults for a new event.
const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "10:00"

	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Draft is the edit form payload. It carries the same fields the create/edit
// dialog collects; Event validates it and produces a storable Event.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`       // yyyy-MM-dd
	StartTime   string `json:"start_time"` // HH:mm, ignored when AllDay
	EndTime     string `json:"end_time"`   // HH:mm, ignored when AllDay
	Color       Color  `json:"color"`
	AllDay      bool   `json:"all_day"`
}

// NewDraft returns an empty form for the given day with default times.
func NewDraft(day time.Time) Draft {
	return Draft{
		Date:      day.Format(DateLayout),
		StartTime: DefaultStartTime,
		EndTime:   DefaultEndTime,
		Color:     DefaultColor,
	}
}

// DraftFromEvent pre-fills the edit form from an existing event.
func DraftFromEvent(ev Event) Draft {
	return Draft{
		Title:       ev.Title,
		Description: ev.Description,
		Date:        ev.Start.Format(DateLayout),
		StartTime:   ev.Start.Format(ClockLayout),
		EndTime:     ev.End.Format(ClockLayout),
		Color:       ev.Color.OrDefault(),
		AllDay:      ev.AllDay,
	}
}

// Event validates the draft and builds an Event in loc. The returned Event has
// no ID; the store assigns one on create.
//
// All-day events span [00:00, 23:59:59.999] of the chosen date. Timed events
// must end after they start.
func (d Draft) Event(loc *time.Location) (Event, error) {
	if loc == nil {
		loc = time.Local
	}

	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Event{}, apperr.New(apperr.CodeInvalidInput, "title is required")
	}

	if strings.TrimSpace(d.Date) == "" {
		return Event{}, apperr.New(apperr.CodeInvalidInput, "date is required")
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(d.Date), loc)
	if err != nil {
		return Event{}, apperr.Wrap(apperr.CodeInvalidFormat, err, "date %q", d.Date)
	}

	color := d.Color.OrDefault()
	if !color.Valid() {
		return Event{}, apperr.New(apperr.CodeInvalidInput, "unknown color %q", d.Color)
	}

	ev := Event{
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		Color:       color,
		AllDay:      d.AllDay,
	}

	if d.AllDay {
		ev.Start = day
		ev.End = time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
		return ev, nil
	}

	start, err := clockOn(day, orDefault(d.StartTime, DefaultStartTime))
	if err != nil {
		return Event{}, apperr.Wrap(apperr.CodeInvalidFormat, err, "start time %q", d.StartTime)
	}
	end, err := clockOn(day, orDefault(d.EndTime, DefaultEndTime))
	if err != nil {
		return Event{}, apperr.Wrap(apperr.CodeInvalidFormat, err, "end time %q", d.EndTime)
	}
	if !end.After(start) {
		return Event{}, apperr.New(apperr.CodeInvalidInput, "end time %s must be after start time %s",
			end.Format(ClockLayout), start.Format(ClockLayout))
	}

	ev.Start = start
	ev.End = end
	return ev, nil
}

// clockOn places an HH:mm wall-clock time on day.
func clockOn(day time.Time, clock string) (time.Time, error) {
	c, err := time.Parse(ClockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
