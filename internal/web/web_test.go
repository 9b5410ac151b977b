package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"evcal/internal/capture"
	"evcal/internal/config"
	"evcal/internal/ics"
	"evcal/internal/model"
	"evcal/internal/store"
)

var fixedNow = time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Snapshot.Output = filepath.Join(t.TempDir(), "calendar.png")

	st := store.New()
	st.Seed(store.SampleEvents(2025, time.UTC))

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewServer(cfg, st, opts...), st
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestEventCRUD(t *testing.T) {
	s, st := newTestServer(t)
	h := s.Handler()
	before := st.Len()

	rec := do(t, h, http.MethodPost, "/api/events",
		`{"title":"Lunch","date":"2025-06-13","start_time":"12:00","end_time":"13:00","color":"yellow"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/events = %d %s", rec.Code, rec.Body.String())
	}
	created := decode[model.Event](t, rec)
	if created.ID == "" || created.Color != model.ColorYellow || created.Duration() != time.Hour {
		t.Errorf("created = %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/events/"+created.ID {
		t.Errorf("Location = %q", loc)
	}

	rec = do(t, h, http.MethodGet, "/api/events/"+created.ID, "")
	got := decode[eventResponse](t, rec)
	if got.Event.Title != "Lunch" || got.Draft.StartTime != "12:00" {
		t.Errorf("GET = %+v", got)
	}

	rec = do(t, h, http.MethodPut, "/api/events/"+created.ID,
		`{"title":"Long lunch","date":"2025-06-13","start_time":"12:00","end_time":"14:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT = %d %s", rec.Code, rec.Body.String())
	}
	if updated := decode[model.Event](t, rec); updated.ID != created.ID || updated.Duration() != 2*time.Hour {
		t.Errorf("updated = %+v", updated)
	}

	rec = do(t, h, http.MethodDelete, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE = %d", rec.Code)
	}
	if st.Len() != before {
		t.Errorf("store Len() = %d, want %d", st.Len(), before)
	}
}

func TestEventErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"missing title", http.MethodPost, "/api/events", `{"date":"2025-06-13"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"end before start", http.MethodPost, "/api/events", `{"title":"x","date":"2025-06-13","start_time":"10:00","end_time":"09:00"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad date", http.MethodPost, "/api/events", `{"title":"x","date":"13/06/2025"}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"malformed json", http.MethodPost, "/api/events", `{"title":`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"unknown field", http.MethodPost, "/api/events", `{"title":"x","date":"2025-06-13","where":"here"}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"get missing", http.MethodGet, "/api/events/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"delete missing", http.MethodDelete, "/api/events/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"bad layout date", http.MethodGet, "/api/layout/day?date=tomorrow", "", http.StatusBadRequest, "INVALID_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if got := decode[errorResponse](t, rec); got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestSubscriptionEventsAreReadOnly(t *testing.T) {
	s, st := newTestServer(t)
	st.ReplaceSource("work", []model.Event{{ID: "imported", Title: "Imported", Start: fixedNow, End: fixedNow.Add(time.Hour)}})

	rec := do(t, s.Handler(), http.MethodDelete, "/api/events/imported", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("DELETE imported = %d, want 409", rec.Code)
	}
}

func TestListEventsRange(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	all := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events", ""))
	if len(all.Events) != 20 {
		t.Errorf("all events = %d, want 20", len(all.Events))
	}

	june := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events?from=2025-06-01&to=2025-06-06", ""))
	if len(june.Events) != 5 {
		t.Errorf("June 1-6 events = %d, want 5", len(june.Events))
	}

	rec := do(t, h, http.MethodGet, "/api/events?from=2025-06-10&to=2025-06-01", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reversed range = %d, want 400", rec.Code)
	}
}

func TestDayLayout(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/layout/day?date=2025-06-13", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[dayLayoutResponse](t, rec)
	if resp.Date != "2025-06-13" || len(resp.Events) != 5 || len(resp.AllDay) != 0 {
		t.Fatalf("resp = %+v", resp)
	}

	want := map[string]struct{ col, count int }{
		"Team Meeting":   {0, 3},
		"Quick Standup":  {1, 3},
		"Design Review":  {1, 3},
		"Client Call":    {2, 3},
		"Project Review": {0, 1},
	}
	for _, p := range resp.Events {
		w, ok := want[p.Event.Title]
		if !ok {
			t.Errorf("unexpected event %q", p.Event.Title)
			continue
		}
		if p.Column != w.col || p.ColumnCount != w.count {
			t.Errorf("%s = %d/%d, want %d/%d", p.Event.Title, p.Column, p.ColumnCount, w.col, w.count)
		}
	}

	// Team Meeting starts at 10:00 on a 60px grid.
	if resp.Events[0].Box.TopPx != 600 || resp.Events[0].Box.HeightPx != 60 {
		t.Errorf("box = %+v", resp.Events[0].Box)
	}
}

func TestDayLayoutDefaultsToToday(t *testing.T) {
	s, _ := newTestServer(t)
	resp := decode[dayLayoutResponse](t, do(t, s.Handler(), http.MethodGet, "/api/layout/day", ""))
	if resp.Date != "2025-06-13" {
		t.Errorf("date = %q, want today", resp.Date)
	}
}

func TestWeekLayout(t *testing.T) {
	s, _ := newTestServer(t)
	resp := decode[weekLayoutResponse](t, do(t, s.Handler(), http.MethodGet, "/api/layout/week?date=2025-06-04", ""))
	if len(resp.Days) != 7 || resp.Days[0].Date != "2025-06-02" {
		t.Fatalf("days = %+v", resp.Days)
	}
	// Friday 6 June carries the three Idul Adha entries as all-day events.
	if got := len(resp.Days[4].AllDay); got != 3 {
		t.Errorf("June 6 all-day = %d, want 3", got)
	}
}

func TestSchedule(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	resp := decode[scheduleResponse](t, do(t, h, http.MethodGet, "/api/schedule?from=2025-05-01&months=1", ""))
	if resp.Months != 1 || len(resp.Days) == 0 || resp.Days[0].Date != "2025-05-01" {
		t.Fatalf("resp = %+v", resp)
	}
	// May 1 .. June 1 inclusive.
	last := resp.Days[len(resp.Days)-1]
	if last.Date != "2025-06-01" {
		t.Errorf("last day = %s, want 2025-06-01", last.Date)
	}

	if rec := do(t, h, http.MethodGet, "/api/schedule?months=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("months=abc = %d, want 400", rec.Code)
	}
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/calendar.ics", "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if n := strings.Count(rec.Body.String(), "BEGIN:VEVENT"); n != 20 {
		t.Errorf("exported %d events, want 20", n)
	}
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) ([]ics.SourceStatus, error) {
	f.calls++
	return []ics.SourceStatus{{ID: "work", Events: 3}}, f.err
}

func (f *fakeRefresher) Status() []ics.SourceStatus {
	return []ics.SourceStatus{{ID: "work", Events: 3}}
}

func TestRefresh(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := do(t, s.Handler(), http.MethodPost, "/api/refresh", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("refresh without refresher = %d", rec.Code)
	}

	fr := &fakeRefresher{err: errors.New("ics: 1 of 1 sources failed")}
	s, _ = newTestServer(t, WithRefresher(fr))
	rec := do(t, s.Handler(), http.MethodPost, "/api/refresh", "")
	if rec.Code != http.StatusOK || fr.calls != 1 {
		t.Fatalf("refresh = %d, calls = %d", rec.Code, fr.calls)
	}
	if resp := decode[refreshResponse](t, rec); len(resp.Sources) != 1 || resp.Error == "" {
		t.Errorf("resp = %+v", resp)
	}

	status := decode[refreshResponse](t, do(t, s.Handler(), http.MethodGet, "/api/refresh", ""))
	if len(status.Sources) != 1 {
		t.Errorf("status = %+v", status)
	}
}

type fakeCapturer struct {
	url string
}

func (f *fakeCapturer) CaptureToFile(_ context.Context, target capture.Target, path string) error {
	f.url = target.URL
	return os.WriteFile(path, []byte("\x89PNG"), 0o644)
}

// httpCapturer loads the page over HTTP the way the browser would, so it
// sees what the server answers for the target's headers.
type httpCapturer struct {
	status int
}

func (c *httpCapturer) CaptureToFile(ctx context.Context, target capture.Target, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return err
	}
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("load %s: %s", target.URL, resp.Status)
	}
	return os.WriteFile(path, []byte("\x89PNG"), 0o644)
}

func TestSnapshotBehindBasicAuth(t *testing.T) {
	hc := &httpCapturer{}
	s, _ := newTestServer(t, WithCapturer(hc))
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	s.cfg.Listen = strings.TrimPrefix(ts.URL, "http://")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/snapshot?view=day", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("snapshot = %d, want 200", resp.StatusCode)
	}
	if hc.status != http.StatusOK {
		t.Errorf("capturer page load = %d, want 200", hc.status)
	}
}

func TestSnapshotTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := SnapshotTarget(cfg, ""); got.URL != "http://127.0.0.1:8080/calendar" || len(got.Headers) != 0 {
		t.Errorf("target = %+v", got)
	}

	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	got := SnapshotTarget(cfg, "view=week")
	if got.URL != "http://127.0.0.1:8080/calendar?view=week" || got.Headers["Authorization"] == "" {
		t.Errorf("target with auth = %+v", got)
	}

	// Credentials stay on this server.
	cfg.Snapshot.URL = "https://example.com/board"
	if got := SnapshotTarget(cfg, ""); got.URL != cfg.Snapshot.URL || len(got.Headers) != 0 {
		t.Errorf("external target = %+v", got)
	}
}

func TestSnapshotAndPreview(t *testing.T) {
	fc := &fakeCapturer{}
	s, _ := newTestServer(t, WithCapturer(fc))
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/preview.png", ""); rec.Code != http.StatusNotFound {
		t.Errorf("preview before snapshot = %d, want 404", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/snapshot?view=week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot = %d %s", rec.Code, rec.Body.String())
	}
	if fc.url != "http://127.0.0.1:8080/calendar?view=week" {
		t.Errorf("captured url = %q", fc.url)
	}

	rec = do(t, h, http.MethodGet, "/preview.png", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "\x89PNG" {
		t.Errorf("preview = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCalendarPage(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		target string
		want   []string
	}{
		{"/calendar", []string{`data-ready="true"`, "June 2025", "Team Meeting", "Pancasila Day"}},
		{"/calendar?view=week&date=2025-06-13", []string{"June 2025", "Client Call", "top:600.00px", "12 AM"}},
		{"/calendar?view=day&date=2025-06-13&locale=id", []string{`lang="id"`, "Juni 13, 2025", "Quick Standup"}},
		{"/calendar?view=schedule&date=2025-05-01", []string{"May 2025 – May 2026", "Hari Buruh", "All day"}},
		{"/calendar?view=schedule&date=2030-01-01", []string{"No events in this time period"}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("page missing %q", w)
				}
			}
		})
	}

	if rec := do(t, h, http.MethodGet, "/calendar?view=year", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown view = %d, want 400", rec.Code)
	}
}

func TestShortEventsRenderCompact(t *testing.T) {
	s, _ := newTestServer(t)
	body := do(t, s.Handler(), http.MethodGet, "/calendar?view=day&date=2025-06-13", "").Body.String()

	// Quick Standup lasts 15 minutes, Client Call 30, Team Meeting an hour.
	for _, want := range []string{`class="event ev-purple compact" style`, `class="event ev-yellow compact" style`, `class="event ev-blue" style`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRootRedirectsAndStatic(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/", ""); rec.Code != http.StatusFound || rec.Header().Get("Location") != "/calendar" {
		t.Errorf("GET / = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := do(t, h, http.MethodGet, "/static/style.css", ""); rec.Code != http.StatusOK {
		t.Errorf("style.css = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health with auth = %d, want 200", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/events", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/events without credentials = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("/api/events with credentials = %d", rec.Code)
	}
}

func TestSelfURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:8080": "http://127.0.0.1:8080",
		":9000":          "http://127.0.0.1:9000",
		"0.0.0.0:80":     "http://127.0.0.1:80",
		"cal.local:8080": "http://cal.local:8080",
	}
	for in, want := range tests {
		if got := SelfURL(in); got != want {
			t.Errorf("SelfURL(%q) = %q, want %q", in, got, want)
		}
	}
}
