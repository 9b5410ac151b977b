package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"evcal/internal/apperr"
	"evcal/internal/capture"
	"evcal/internal/config"
	"evcal/internal/ics"
	appLog "evcal/internal/log"
	"evcal/internal/store"
)

// Refresher re-imports the subscribed feeds. *ics.Refresher satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) ([]ics.SourceStatus, error)
	Status() []ics.SourceStatus
}

// Capturer renders a PNG of a page. *capture.Capturer satisfies it.
type Capturer interface {
	CaptureToFile(ctx context.Context, target capture.Target, path string) error
}

// Server serves the calendar pages and the JSON API over the event store.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	refresher Refresher
	capturer  Capturer
	router    chi.Router
	now       func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithRefresher enables POST /api/refresh.
func WithRefresher(r Refresher) Option {
	return func(s *Server) { s.refresher = r }
}

// WithCapturer enables POST /api/snapshot.
func WithCapturer(c Capturer) Option {
	return func(s *Server) { s.capturer = c }
}

// WithClock overrides time.Now, used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server for st.
func NewServer(cfg *config.Config, st *store.Store, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		store: st,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
	r.Get("/calendar", s.handleCalendar)
	r.Get("/preview.png", s.handlePreview)

	r.Route("/events", func(r chi.Router) {
		r.Get("/new", s.handleNewEventForm)
		r.Post("/", s.handleCreateEventForm)
		r.Get("/{id}/edit", s.handleEditEventForm)
		r.Post("/{id}", s.handleUpdateEventForm)
		r.Post("/{id}/delete", s.handleDeleteEventForm)
	})
	r.Handle("/static/*", s.staticFileServer())

	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/{id}", s.handleGetEvent)
			r.Put("/{id}", s.handleUpdateEvent)
			r.Delete("/{id}", s.handleDeleteEvent)
		})
		r.Get("/layout/day", s.handleDayLayout)
		r.Get("/layout/week", s.handleWeekLayout)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/calendar.ics", s.handleExport)
		r.Get("/refresh", s.handleRefreshStatus)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/snapshot", s.handleSnapshot)
	})
	return r
}

// Handler returns the router, wrapped with basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="evcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static files not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last snapshot written by the capture pipeline.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.cfg.Snapshot.Output)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusOf maps coded errors onto HTTP status codes.
func statusOf(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput, apperr.CodeInvalidFormat:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeAppError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := statusOf(err)
	msg := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: string(code)})
}
