// Package store keeps the calendar's events in memory.
//
// Events live in a plain slice and every operation is a linear scan, which is
// plenty for a single calendar. A Store is safe for concurrent use: HTTP
// handlers and the subscription refresh job share one instance.
package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"evcal/internal/apperr"
	"evcal/internal/model"
)

// Store is an in-memory event list.
type Store struct {
	mu     sync.RWMutex
	events []model.Event
	newID  func() string
}

// New returns an empty Store that assigns random UUIDs to new events.
func New() *Store {
	return &Store{newID: uuid.NewString}
}

// Seed appends events as-is (IDs are assigned when missing).
func (s *Store) Seed(events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = s.newID()
		}
		s.events = append(s.events, ev)
	}
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// List returns a copy of all events in insertion order.
func (s *Store) List() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Get returns the event with the given ID.
func (s *Store) Get(id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.events[i], nil
	}
	return model.Event{}, apperr.New(apperr.CodeNotFound, "event %q not found", id)
}

// Create stores ev under a fresh ID (or ev.ID when set and unused) and
// returns the stored copy.
func (s *Store) Create(ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = s.newID()
	} else if s.indexOf(ev.ID) >= 0 {
		return model.Event{}, apperr.New(apperr.CodeConflict, "event %q already exists", ev.ID)
	}
	s.events = append(s.events, ev)
	return ev, nil
}

// Update replaces the fields of event id with those of ev, keeping the ID and
// the source. Subscription events cannot be edited.
func (s *Store) Update(id string, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Event{}, apperr.New(apperr.CodeNotFound, "event %q not found", id)
	}
	if s.events[i].ReadOnly() {
		return model.Event{}, apperr.New(apperr.CodeConflict, "event %q belongs to subscription %q", id, s.events[i].SourceID)
	}
	ev.ID = id
	ev.SourceID = s.events[i].SourceID
	s.events[i] = ev
	return ev, nil
}

// Delete removes event id. Subscription events cannot be deleted.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return apperr.New(apperr.CodeNotFound, "event %q not found", id)
	}
	if s.events[i].ReadOnly() {
		return apperr.New(apperr.CodeConflict, "event %q belongs to subscription %q", id, s.events[i].SourceID)
	}
	s.events = slices.Delete(s.events, i, i+1)
	return nil
}

// ReplaceSource drops every event of sourceID and appends events in its
// place, tagging them with sourceID. It returns the number of removed events.
func (s *Store) ReplaceSource(sourceID string, events []model.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.events)
	s.events = slices.DeleteFunc(s.events, func(ev model.Event) bool {
		return ev.SourceID == sourceID
	})
	removed := before - len(s.events)

	for _, ev := range events {
		ev.SourceID = sourceID
		switch {
		case ev.ID == "":
			ev.ID = s.newID()
		case s.indexOf(ev.ID) >= 0:
			ev.ID = s.scopedID(sourceID, ev.ID)
		}
		s.events = append(s.events, ev)
	}
	return removed
}

// scopedID derives an ID for an imported event whose UID is already taken.
// It depends only on sourceID and uid, so the event keeps its ID across
// refreshes.
func (s *Store) scopedID(sourceID, uid string) string {
	id := sourceID + ":" + uid
	for n := 2; s.indexOf(id) >= 0; n++ {
		id = fmt.Sprintf("%s:%s#%d", sourceID, uid, n)
	}
	return id
}

// OnDay returns the events whose start falls on the calendar day of day,
// sorted by start.
func (s *Store) OnDay(day time.Time) []model.Event {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return s.Between(from, from.AddDate(0, 0, 1))
}

// Between returns the events starting in [from, to), sorted by start.
func (s *Store) Between(from, to time.Time) []model.Event {
	s.mu.RLock()
	var out []model.Event
	for _, ev := range s.events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.events, func(ev model.Event) bool {
		return ev.ID == id
	})
}
