package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-sis/icalport/export"
	"github.com/campus-sis/icalport/server/storage"
)

func testStore() *Store {
	s := New()
	s.now = func() time.Time {
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return s
}

func published(title string, start time.Time) *export.Event {
	return &export.Event{
		Title:   title,
		StartAt: start,
		EndAt:   start.Add(time.Hour),
		Status:  export.StatusPublished,
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	ev := published("Career Fair", time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.CreateEvent(ctx, ev))

	assert.NotEmpty(t, ev.ID, "ID should be assigned")
	assert.Equal(t, "career-fair", ev.Slug)
	assert.False(t, ev.CreatedAt.IsZero())
	assert.Regexp(t, `^"[0-9a-f]{40}"$`, ev.ETag, "quoted sha1 entity tag")

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Career Fair", got.Title)

	bySlug, err := store.GetEventBySlug(ctx, "career-fair")
	require.NoError(t, err)
	assert.Equal(t, ev.ID, bySlug.ID)
}

func TestGetEventNotFound(t *testing.T) {
	store := testStore()

	_, err := store.GetEvent(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))

	_, err = store.GetEventBySlug(context.Background(), "missing")
	assert.True(t, storage.IsNotFound(err))
}

func TestCreateEventValidation(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	t.Run("missing title", func(t *testing.T) {
		err := store.CreateEvent(ctx, &export.Event{})
		var storageErr *storage.Error
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, storage.ErrInvalidInput, storageErr.Type)
	})

	t.Run("duplicate id", func(t *testing.T) {
		ev := published("First", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
		ev.ID = "dup"
		require.NoError(t, store.CreateEvent(ctx, ev))

		again := published("Second", time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
		again.ID = "dup"
		err := store.CreateEvent(ctx, again)
		var storageErr *storage.Error
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, storage.ErrAlreadyExists, storageErr.Type)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		first := published("Same Name", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, store.CreateEvent(ctx, first))

		second := published("Same Name", time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
		err := store.CreateEvent(ctx, second)
		var storageErr *storage.Error
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, storage.ErrAlreadyExists, storageErr.Type)
	})
}

func TestListUpcoming(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	past := published("Past Event", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	soon := published("Soon Event", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	later := published("Later Event", time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	draft := published("Draft Event", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC))
	draft.Status = export.StatusDraft
	cancelled := published("Cancelled Event", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	cancelled.Status = export.StatusCancelled

	for _, ev := range []*export.Event{past, soon, later, draft, cancelled} {
		require.NoError(t, store.CreateEvent(ctx, ev))
	}

	t.Run("defaults to now, sorted, drafts hidden", func(t *testing.T) {
		events, err := store.ListUpcoming(ctx, nil)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "Soon Event", events[0].Title)
		assert.Equal(t, "Cancelled Event", events[1].Title)
		assert.Equal(t, "Later Event", events[2].Title)
	})

	t.Run("window bounds", func(t *testing.T) {
		from := time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
		until := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
		events, err := store.ListUpcoming(ctx, &storage.ListOptions{From: &from, Until: &until})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Cancelled Event", events[0].Title)
	})

	t.Run("limit", func(t *testing.T) {
		events, err := store.ListUpcoming(ctx, &storage.ListOptions{Limit: 1})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Soon Event", events[0].Title)
	})
}

func TestCreateEventETagDiffersPerEvent(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	first := published("First", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	second := published("Second", time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.CreateEvent(ctx, first))
	require.NoError(t, store.CreateEvent(ctx, second))

	assert.NotEqual(t, first.ETag, second.ETag)

	got, err := store.GetEvent(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ETag, got.ETag, "stored tag survives retrieval")
}

func TestReturnedEventsAreCopies(t *testing.T) {
	store := testStore()
	ctx := context.Background()

	ev := published("Original", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.CreateEvent(ctx, ev))

	got, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	got.Title = "Mutated"

	again, err := store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}
