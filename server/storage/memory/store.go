// memory based implementation for testing and examples
package memory

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-sis/icalport/export"
	"github.com/campus-sis/icalport/server/storage"
)

func generateETag(ev *export.Event) string {
	data := fmt.Sprintf("%s/%s/%d/%d", ev.ID, ev.Title, ev.StartAt.UnixNano(), ev.UpdatedAt.UnixNano())
	hash := sha1.Sum([]byte(data))
	return `"` + hex.EncodeToString(hash[:]) + `"`
}

// Store implements storage.EventSource using in-memory maps.
type Store struct {
	mu     sync.RWMutex
	events map[string]*export.Event
	bySlug map[string]string // slug -> event ID

	now func() time.Time
}

// New creates a new in-memory event store.
func New() *Store {
	return &Store{
		events: make(map[string]*export.Event),
		bySlug: make(map[string]string),
		now:    time.Now,
	}
}

func (s *Store) GetEvent(_ context.Context, id string) (*export.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}

	clone := *ev
	return &clone, nil
}

func (s *Store) GetEventBySlug(ctx context.Context, slug string) (*export.Event, error) {
	s.mu.RLock()
	id, ok := s.bySlug[slug]
	s.mu.RUnlock()

	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}

	return s.GetEvent(ctx, id)
}

// ListUpcoming returns published and cancelled events whose start falls in
// the requested window, ordered by start time. Drafts and archived events
// never appear in public feeds.
func (s *Store) ListUpcoming(_ context.Context, opts *storage.ListOptions) ([]*export.Event, error) {
	from := s.now()
	var until *time.Time
	limit := 0
	if opts != nil {
		if opts.From != nil {
			from = *opts.From
		}
		until = opts.Until
		limit = opts.Limit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*export.Event
	for _, ev := range s.events {
		if ev.Status != export.StatusPublished && ev.Status != export.StatusCancelled {
			continue
		}
		if ev.StartAt.Before(from) {
			continue
		}
		if until != nil && ev.StartAt.After(*until) {
			continue
		}
		clone := *ev
		events = append(events, &clone)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartAt.Before(events[j].StartAt)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}

func (s *Store) CreateEvent(_ context.Context, ev *export.Event) error {
	if ev == nil || ev.Title == "" {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "event title is required",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Slug == "" {
		ev.Slug = export.Slugify(ev.Title)
	}

	if _, exists := s.events[ev.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "event already exists",
		}
	}
	if _, exists := s.bySlug[ev.Slug]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "event slug already taken",
		}
	}

	now := s.now()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = ev.CreatedAt
	}
	ev.ETag = generateETag(ev)

	clone := *ev
	s.events[ev.ID] = &clone
	s.bySlug[ev.Slug] = ev.ID

	return nil
}
