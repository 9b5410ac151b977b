package web

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"evcal/internal/apperr"
	"evcal/internal/calendar"
	"evcal/internal/locale"
	appLog "evcal/internal/log"
	"evcal/internal/model"
)

// formPage is the data of templates/event.html.
type formPage struct {
	Locale    locale.Locale
	Heading   string
	Action    string
	DeleteURL string
	Draft     model.Draft
	Colors    []model.Color
	Error     string
	ReadOnly  bool
	SourceID  string
	BackHref  string
}

func (s *Server) localeOf(tag string) locale.Locale {
	if tag == "" {
		tag = s.cfg.Locale
	}
	l, _ := locale.Lookup(tag)
	return l
}

// dayHref links back to the day view of a yyyy-MM-dd date.
func dayHref(date, tag string) string {
	q := url.Values{}
	q.Set("view", string(calendar.ViewDay))
	if date != "" {
		q.Set("date", date)
	}
	q.Set("locale", tag)
	return "/calendar?" + q.Encode()
}

func (s *Server) renderForm(w http.ResponseWriter, status int, p formPage) {
	p.Colors = model.Colors
	if p.BackHref == "" {
		p.BackHref = dayHref(p.Draft.Date, p.Locale.Tag)
	}
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, "event.html", p); err != nil {
		appLog.Error("render event form failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func draftFromForm(r *http.Request) model.Draft {
	return model.Draft{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Date:        r.PostFormValue("date"),
		StartTime:   r.PostFormValue("start_time"),
		EndTime:     r.PostFormValue("end_time"),
		Color:       model.Color(r.PostFormValue("color")),
		AllDay:      r.PostFormValue("all_day") != "",
	}
}

func (s *Server) parseEventForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return apperr.Wrap(apperr.CodeInvalidFormat, err, "invalid form body")
	}
	return nil
}

// GET /events/new?date=yyyy-MM-dd
func (s *Server) handleNewEventForm(w http.ResponseWriter, r *http.Request) {
	lc := s.localeOf(r.URL.Query().Get("locale"))
	day, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, apperr.MessageOf(err), http.StatusBadRequest)
		return
	}
	s.renderForm(w, http.StatusOK, formPage{
		Locale:  lc,
		Heading: "New event",
		Action:  "/events?locale=" + url.QueryEscape(lc.Tag),
		Draft:   model.NewDraft(day),
	})
}

// POST /events
func (s *Server) handleCreateEventForm(w http.ResponseWriter, r *http.Request) {
	lc := s.localeOf(r.URL.Query().Get("locale"))
	page := formPage{
		Locale:  lc,
		Heading: "New event",
		Action:  "/events?locale=" + url.QueryEscape(lc.Tag),
	}
	if err := s.parseEventForm(w, r); err != nil {
		page.Error = apperr.MessageOf(err)
		s.renderForm(w, statusOf(err), page)
		return
	}
	page.Draft = draftFromForm(r)

	ev, err := page.Draft.Event(s.loc())
	if err == nil {
		ev, err = s.store.Create(ev)
	}
	if err != nil {
		page.Error = apperr.MessageOf(err)
		s.renderForm(w, statusOf(err), page)
		return
	}
	appLog.Info("event created", "id", ev.ID, "title", ev.Title, "via", "form")
	http.Redirect(w, r, dayHref(ev.Start.Format(model.DateLayout), lc.Tag), http.StatusSeeOther)
}

func (s *Server) editPage(lc locale.Locale, ev model.Event) formPage {
	tag := url.QueryEscape(lc.Tag)
	return formPage{
		Locale:    lc,
		Heading:   "Edit event",
		Action:    "/events/" + url.PathEscape(ev.ID) + "?locale=" + tag,
		DeleteURL: "/events/" + url.PathEscape(ev.ID) + "/delete?locale=" + tag,
		Draft:     model.DraftFromEvent(ev),
		ReadOnly:  ev.ReadOnly(),
		SourceID:  ev.SourceID,
	}
}

// GET /events/{id}/edit
func (s *Server) handleEditEventForm(w http.ResponseWriter, r *http.Request) {
	lc := s.localeOf(r.URL.Query().Get("locale"))
	ev, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, apperr.MessageOf(err), statusOf(err))
		return
	}
	s.renderForm(w, http.StatusOK, s.editPage(lc, ev))
}

// POST /events/{id}
func (s *Server) handleUpdateEventForm(w http.ResponseWriter, r *http.Request) {
	lc := s.localeOf(r.URL.Query().Get("locale"))
	current, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, apperr.MessageOf(err), statusOf(err))
		return
	}
	page := s.editPage(lc, current)
	if err := s.parseEventForm(w, r); err != nil {
		page.Error = apperr.MessageOf(err)
		s.renderForm(w, statusOf(err), page)
		return
	}
	if !page.ReadOnly {
		page.Draft = draftFromForm(r)
	}

	ev, err := page.Draft.Event(s.loc())
	if err == nil {
		ev, err = s.store.Update(current.ID, ev)
	}
	if err != nil {
		page.Error = apperr.MessageOf(err)
		s.renderForm(w, statusOf(err), page)
		return
	}
	appLog.Info("event updated", "id", ev.ID, "via", "form")
	http.Redirect(w, r, dayHref(ev.Start.Format(model.DateLayout), lc.Tag), http.StatusSeeOther)
}

// POST /events/{id}/delete
func (s *Server) handleDeleteEventForm(w http.ResponseWriter, r *http.Request) {
	lc := s.localeOf(r.URL.Query().Get("locale"))
	ev, err := s.store.Get(chi.URLParam(r, "id"))
	if err == nil {
		err = s.store.Delete(ev.ID)
	}
	if err != nil {
		if apperr.Is(err, apperr.CodeConflict) {
			page := s.editPage(lc, ev)
			page.Error = apperr.MessageOf(err)
			s.renderForm(w, http.StatusConflict, page)
			return
		}
		http.Error(w, apperr.MessageOf(err), statusOf(err))
		return
	}
	appLog.Info("event deleted", "id", ev.ID, "via", "form")
	http.Redirect(w, r, dayHref(ev.Start.Format(model.DateLayout), lc.Tag), http.StatusSeeOther)
}
