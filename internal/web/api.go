package web

import (
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"evcal/internal/apperr"
	"evcal/internal/calendar"
	"evcal/internal/capture"
	"evcal/internal/config"
	"evcal/internal/ics"
	"evcal/internal/layout"
	appLog "evcal/internal/log"
	"evcal/internal/model"
)

func (s *Server) loc() *time.Location {
	return s.cfg.Location()
}

func (s *Server) today() time.Time {
	return calendar.Today(s.now().In(s.loc()))
}

// parseDate reads a yyyy-MM-dd query value; empty means today.
func (s *Server) parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.today(), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, v, s.loc())
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.CodeInvalidFormat, err, "date %q: want yyyy-MM-dd", v)
	}
	return t, nil
}

// GET /api/events[?from=yyyy-MM-dd&to=yyyy-MM-dd]
//
// Without a range every event is returned in insertion order. With a range,
// events starting in [from, to] (whole days) are returned sorted by start.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(s.store.List())})
		return
	}

	from, err := s.parseDate(q.Get("from"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	to := from
	if q.Get("to") != "" {
		if to, err = s.parseDate(q.Get("to")); err != nil {
			writeAppError(w, err)
			return
		}
	}
	if to.Before(from) {
		writeAppError(w, apperr.New(apperr.CodeInvalidInput, "to is before from"))
		return
	}
	events := s.store.Between(from, to.AddDate(0, 0, 1))
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(events)})
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
}

func nonNil(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	return events
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Event: ev, Draft: model.DraftFromEvent(ev)})
}

type eventResponse struct {
	Event model.Event `json:"event"`
	Draft model.Draft `json:"draft"`
}

func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (model.Event, error) {
	var d model.Draft
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return model.Event{}, apperr.Wrap(apperr.CodeInvalidFormat, err, "invalid JSON body")
	}
	return d.Event(s.loc())
}

// POST /api/events with a model.Draft body.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.decodeDraft(w, r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	created, err := s.store.Create(ev)
	if err != nil {
		writeAppError(w, err)
		return
	}
	appLog.Info("event created", "id", created.ID, "title", created.Title)
	w.Header().Set("Location", "/api/events/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// PUT /api/events/{id} with a model.Draft body.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.decodeDraft(w, r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	updated, err := s.store.Update(chi.URLParam(r, "id"), ev)
	if err != nil {
		writeAppError(w, err)
		return
	}
	appLog.Info("event updated", "id", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeAppError(w, err)
		return
	}
	appLog.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

type positionedResponse struct {
	layout.Positioned
	Box layout.Box `json:"box"`
}

type dayLayoutResponse struct {
	Date   string               `json:"date"`
	AllDay []model.Event        `json:"all_day"`
	Events []positionedResponse `json:"events"`
}

func (s *Server) dayLayout(col calendar.DayColumn) dayLayoutResponse {
	grid := s.cfg.Grid()
	out := dayLayoutResponse{
		Date:   col.Date.Format(model.DateLayout),
		AllDay: nonNil(col.AllDay),
		Events: make([]positionedResponse, 0, len(col.Timed)),
	}
	for _, p := range col.Timed {
		out.Events = append(out.Events, positionedResponse{Positioned: p, Box: layout.Geometry(p, grid)})
	}
	return out
}

// GET /api/layout/day?date=yyyy-MM-dd
func (s *Server) handleDayLayout(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	cols := calendar.DayColumns(s.store.OnDay(day), []time.Time{day}, s.cfg.LayoutOptions())
	writeJSON(w, http.StatusOK, s.dayLayout(cols[0]))
}

type weekLayoutResponse struct {
	WeekStart string              `json:"week_start"`
	Days      []dayLayoutResponse `json:"days"`
}

// GET /api/layout/week?date=yyyy-MM-dd
func (s *Server) handleWeekLayout(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	days := calendar.WeekDays(day, calendar.ParseWeekStart(s.cfg.WeekStart))
	events := s.store.Between(days[0], days[6].AddDate(0, 0, 1))

	resp := weekLayoutResponse{WeekStart: s.cfg.WeekStart}
	for _, col := range calendar.DayColumns(events, days, s.cfg.LayoutOptions()) {
		resp.Days = append(resp.Days, s.dayLayout(col))
	}
	writeJSON(w, http.StatusOK, resp)
}

type scheduleDayResponse struct {
	Date   string        `json:"date"`
	Events []model.Event `json:"events"`
}

type scheduleResponse struct {
	From   string                `json:"from"`
	Months int                   `json:"months"`
	Days   []scheduleDayResponse `json:"days"`
}

// GET /api/schedule?from=yyyy-MM-dd&months=12
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := s.parseDate(q.Get("from"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	months := s.cfg.ScheduleMonths
	if v := q.Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 120 {
			writeError(w, http.StatusBadRequest, "months must be between 1 and 120")
			return
		}
		months = n
	}

	resp := scheduleResponse{
		From:   from.Format(model.DateLayout),
		Months: months,
		Days:   []scheduleDayResponse{},
	}
	for _, d := range calendar.Schedule(s.store.List(), from, months) {
		resp.Days = append(resp.Days, scheduleDayResponse{Date: d.Key, Events: d.Events})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/calendar.ics exports the whole store.
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.store.List(), "evcal", s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	_, _ = w.Write([]byte(body))
}

type refreshResponse struct {
	Sources []ics.SourceStatus `json:"sources"`
	Error   string             `json:"error,omitempty"`
}

func (s *Server) handleRefreshStatus(w http.ResponseWriter, _ *http.Request) {
	if s.refresher == nil {
		writeJSON(w, http.StatusOK, refreshResponse{Sources: []ics.SourceStatus{}})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Sources: s.refresher.Status()})
}

// POST /api/refresh re-imports every subscription now. Per-source failures
// are reported in the body; the request itself still succeeds.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "no subscriptions configured")
		return
	}
	statuses, err := s.refresher.Refresh(r.Context())
	resp := refreshResponse{Sources: statuses}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/snapshot captures the calendar page into the preview file.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.capturer == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot capture not enabled")
		return
	}
	target := SnapshotTarget(s.cfg, r.URL.RawQuery)
	out := s.cfg.Snapshot.Output
	if err := s.capturer.CaptureToFile(r.Context(), target, out); err != nil {
		appLog.Error("snapshot failed", err, "url", target.URL)
		writeError(w, http.StatusBadGateway, "snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": filepath.Base(out), "preview": "/preview.png"})
}

// SnapshotTarget is the page the capturer loads: snapshot.url when set,
// otherwise this server's own /calendar with rawQuery. Basic auth
// credentials are only attached for the server's own page.
func SnapshotTarget(cfg *config.Config, rawQuery string) capture.Target {
	if cfg.Snapshot.URL != "" {
		return capture.Target{URL: cfg.Snapshot.URL}
	}
	target := capture.Target{URL: SelfURL(cfg.Listen) + "/calendar"}
	if rawQuery != "" {
		target.URL += "?" + rawQuery
	}
	if a := cfg.BasicAuth; a != nil && a.Username != "" && a.Password != "" {
		target = target.BasicAuth(a.Username, a.Password)
	}
	return target
}

// SelfURL is the base URL a local browser uses to reach listen.
func SelfURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
