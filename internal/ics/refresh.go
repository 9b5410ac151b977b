package ics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "evcal/internal/log"
	"evcal/internal/model"
)

// Sink receives the parsed events of one source, replacing what it held
// for that source before. *store.Store satisfies it.
type Sink interface {
	ReplaceSource(sourceID string, events []model.Event) int
}

// SourceStatus is the outcome of the latest refresh of one source.
type SourceStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Events    int       `json:"events"`
	FromCache bool      `json:"from_cache"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Refresher pulls every source into a Sink, on demand or on a cron schedule.
type Refresher struct {
	fetcher *Fetcher
	sink    Sink
	sources []Source
	loc     *time.Location

	// refreshing serializes runs so a slow cron tick and a manual refresh
	// never interleave ReplaceSource calls.
	refreshing sync.Mutex

	mu     sync.RWMutex
	status []SourceStatus

	cron *cron.Cron
}

// NewRefresher wires a fetcher to a sink. loc is the display timezone
// imported events are converted to.
func NewRefresher(f *Fetcher, sink Sink, sources []Source, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{fetcher: f, sink: sink, sources: sources, loc: loc}
}

// Refresh fetches and imports all sources sequentially. A failing source
// keeps its previously imported events; the returned error counts failures.
func (r *Refresher) Refresh(ctx context.Context) ([]SourceStatus, error) {
	r.refreshing.Lock()
	defer r.refreshing.Unlock()

	statuses := make([]SourceStatus, 0, len(r.sources))
	failed := 0
	for _, src := range r.sources {
		st := SourceStatus{ID: src.ID, Name: src.Name, UpdatedAt: time.Now()}

		events, fromCache, err := r.refreshOne(ctx, src)
		if err != nil {
			failed++
			st.Error = err.Error()
			appLog.Error("ics refresh failed", err, "id", src.ID, "url", redactURL(src.URL))
		} else {
			removed := r.sink.ReplaceSource(src.ID, events)
			st.Events = len(events)
			st.FromCache = fromCache
			appLog.Info("ics source imported", "id", src.ID, "events", len(events), "replaced", removed, "from_cache", fromCache)
		}
		statuses = append(statuses, st)
	}

	r.mu.Lock()
	r.status = statuses
	r.mu.Unlock()

	if failed > 0 {
		return statuses, fmt.Errorf("ics: %d of %d sources failed", failed, len(r.sources))
	}
	return statuses, nil
}

func (r *Refresher) refreshOne(ctx context.Context, src Source) ([]model.Event, bool, error) {
	res, err := r.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, false, err
	}
	events, err := Parse(src, res.Body, r.loc)
	if err != nil {
		return nil, res.FromCache, err
	}
	return events, res.FromCache, nil
}

// Status returns the outcome of the latest Refresh.
func (r *Refresher) Status() []SourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]SourceStatus(nil), r.status...)
}

// Start runs Refresh on a standard 5-field cron schedule until ctx is
// cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithLocation(r.loc))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.Refresh(ctx); err != nil {
			appLog.Debug("scheduled refresh finished with errors", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("ics: invalid refresh schedule %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	appLog.Info("ics refresh scheduled", "schedule", schedule, "sources", len(r.sources))

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
