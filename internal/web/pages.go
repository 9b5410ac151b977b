package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"evcal/internal/calendar"
	"evcal/internal/layout"
	"evcal/internal/locale"
	appLog "evcal/internal/log"
	"evcal/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type viewLink struct {
	Name   string
	Href   string
	Active bool
}

type monthCellView struct {
	Date    string
	Day     int
	InMonth bool
	Today   bool
	Events  []model.Event
}

type boxView struct {
	Event    model.Event
	Style    template.CSS
	TimeText string
	Compact  bool
}

// Boxes of events shorter than this show title and time on one line.
const compactDuration = 45 * time.Minute

type dayColumnView struct {
	Date   string
	Label  string
	Today  bool
	AllDay []model.Event
	Boxes  []boxView
}

type scheduleItemView struct {
	Event    model.Event
	TimeText string
}

type scheduleDayView struct {
	Label string
	Today bool
	Items []scheduleItemView
}

type pageData struct {
	Locale    locale.Locale
	Locales   []viewLink
	View      string
	Views     []viewLink
	RangeText string
	PrevHref  string
	NextHref  string
	TodayHref string
	NewHref   string

	WeekdayLabels []string
	Month         [][]monthCellView

	Hours      []string
	GridHeight float64
	Columns    []dayColumnView

	Schedule []scheduleDayView
}

// pageState is the query state of /calendar.
type pageState struct {
	view calendar.View
	date time.Time
	loc  locale.Locale
}

func (p pageState) href(v calendar.View, d time.Time, tag string) string {
	q := url.Values{}
	q.Set("view", string(v))
	q.Set("date", d.Format(model.DateLayout))
	q.Set("locale", tag)
	return "/calendar?" + q.Encode()
}

// GET /calendar?view=&date=&locale=
//
// Server-rendered calendar. The root element carries data-ready="true" once
// rendered so the snapshot capturer knows the page is complete.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date, err := s.parseDate(q.Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tag := q.Get("locale")
	if tag == "" {
		tag = s.cfg.Locale
	}
	loc, _ := locale.Lookup(tag)

	data := s.buildPage(pageState{view: view, date: date, loc: loc})

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "calendar.html", data); err != nil {
		appLog.Error("render calendar page failed", err, "view", view)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) buildPage(st pageState) pageData {
	weekStart := calendar.ParseWeekStart(s.cfg.WeekStart)
	today := s.today()

	data := pageData{
		Locale:    st.loc,
		View:      string(st.view),
		RangeText: calendar.RangeText(st.view, st.date, weekStart, st.loc),
		PrevHref:  st.href(st.view, calendar.Step(st.view, st.date, -1), st.loc.Tag),
		NextHref:  st.href(st.view, calendar.Step(st.view, st.date, 1), st.loc.Tag),
		TodayHref: st.href(st.view, today, st.loc.Tag),
		NewHref:   "/events/new?" + url.Values{"date": {st.date.Format(model.DateLayout)}, "locale": {st.loc.Tag}}.Encode(),
	}
	for _, v := range calendar.Views {
		data.Views = append(data.Views, viewLink{Name: string(v), Href: st.href(v, st.date, st.loc.Tag), Active: v == st.view})
	}
	for _, l := range locale.Available() {
		data.Locales = append(data.Locales, viewLink{Name: l.Name, Href: st.href(st.view, st.date, l.Tag), Active: l.Tag == st.loc.Tag})
	}

	switch st.view {
	case calendar.ViewMonth:
		s.buildMonth(&data, st, weekStart, today)
	case calendar.ViewWeek:
		s.buildColumns(&data, st, calendar.WeekDays(st.date, weekStart), today)
	case calendar.ViewDay:
		s.buildColumns(&data, st, []time.Time{st.date}, today)
	case calendar.ViewSchedule:
		s.buildSchedule(&data, st, today)
	}
	return data
}

func (s *Server) buildMonth(data *pageData, st pageState, weekStart time.Weekday, today time.Time) {
	for _, d := range calendar.WeekDays(st.date, weekStart) {
		data.WeekdayLabels = append(data.WeekdayLabels, st.loc.Format(d, "EEE"))
	}
	first := time.Date(st.date.Year(), st.date.Month(), 1, 0, 0, 0, 0, st.date.Location())
	events := s.store.Between(calendar.StartOfWeek(first, weekStart), first.AddDate(0, 1, 7))

	for _, week := range calendar.MonthGrid(st.date, weekStart, today, events) {
		row := make([]monthCellView, 0, len(week))
		for _, c := range week {
			row = append(row, monthCellView{Date: c.Date.Format(model.DateLayout), Day: c.Date.Day(), InMonth: c.InMonth, Today: c.Today, Events: c.Events})
		}
		data.Month = append(data.Month, row)
	}
}

func (s *Server) buildColumns(data *pageData, st pageState, days []time.Time, today time.Time) {
	grid := s.cfg.Grid()
	for h := 0; h < 24; h++ {
		data.Hours = append(data.Hours, st.loc.HourLabel(h))
	}
	data.GridHeight = 24 * grid.RowHeight

	events := s.store.Between(days[0], days[len(days)-1].AddDate(0, 0, 1))
	for _, col := range calendar.DayColumns(events, days, s.cfg.LayoutOptions()) {
		cv := dayColumnView{
			Date:   col.Date.Format(model.DateLayout),
			Label:  st.loc.Format(col.Date, "EEE d"),
			Today:  calendar.SameDay(col.Date, today),
			AllDay: col.AllDay,
		}
		for _, p := range col.Timed {
			cv.Boxes = append(cv.Boxes, boxView{
				Event:    p.Event,
				Style:    template.CSS(layout.Geometry(p, grid).Style()),
				TimeText: st.loc.Format(p.Event.Start, "h:mm a") + " – " + st.loc.Format(p.Event.End, "h:mm a"),
				Compact:  p.Event.Duration() < compactDuration,
			})
		}
		data.Columns = append(data.Columns, cv)
	}
}

func (s *Server) buildSchedule(data *pageData, st pageState, today time.Time) {
	for _, d := range calendar.Schedule(s.store.List(), st.date, s.cfg.ScheduleMonths) {
		dv := scheduleDayView{
			Label: st.loc.Format(d.Date, "EEEE, MMMM d, yyyy"),
			Today: calendar.SameDay(d.Date, today),
		}
		for _, ev := range d.Events {
			item := scheduleItemView{Event: ev, TimeText: st.loc.AllDay}
			if !ev.AllDay {
				item.TimeText = st.loc.Format(ev.Start, "h:mm a") + " – " + st.loc.Format(ev.End, "h:mm a")
			}
			dv.Items = append(dv.Items, item)
		}
		data.Schedule = append(data.Schedule, dv)
	}
}
