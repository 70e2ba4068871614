package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-sis/icalport/export"
	"github.com/campus-sis/icalport/recurrence"
	"github.com/campus-sis/icalport/server/storage/memory"
)

func testHandler(t *testing.T) (*Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	handler, err := NewHandler("/calendar/", store, nil, nil, nil)
	require.NoError(t, err)
	return handler, store
}

func seedEvent(t *testing.T, store *memory.Store) *export.Event {
	t.Helper()
	ev := &export.Event{
		ID:             "evt-1",
		Title:          "Career Fair",
		StartAt:        time.Now().AddDate(0, 0, 7),
		EndAt:          time.Now().AddDate(0, 0, 7).Add(2 * time.Hour),
		Status:         export.StatusPublished,
		RecurrenceRule: "FREQ=WEEKLY;COUNT=4",
		URL:            "https://example.edu/events/career-fair",
	}
	require.NoError(t, store.CreateEvent(context.Background(), ev))
	return ev
}

func TestHandlerExportEvent(t *testing.T) {
	handler, store := testHandler(t)
	seedEvent(t, store)

	req := httptest.NewRequest(http.MethodGet, "/calendar/events/evt-1.ics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.MimeTypeCalendar, rec.Header().Get(HeaderContentType))
	assert.Equal(t, `attachment; filename="career-fair.ics"`, rec.Header().Get(HeaderContentDisposition))

	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR\r\n")
	assert.Contains(t, body, "SUMMARY:Career Fair")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;COUNT=4")
}

func TestHandlerExportEventBySlug(t *testing.T) {
	handler, store := testHandler(t)
	seedEvent(t, store)

	req := httptest.NewRequest(http.MethodGet, "/calendar/events/by-slug/career-fair.ics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SUMMARY:Career Fair")

	t.Run("unknown slug", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/calendar/events/by-slug/missing.ics", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandlerExportEventConditionalGet(t *testing.T) {
	handler, store := testHandler(t)
	seedEvent(t, store)

	req := httptest.NewRequest(http.MethodGet, "/calendar/events/evt-1.ics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	revalidate := httptest.NewRequest(http.MethodGet, "/calendar/events/evt-1.ics", nil)
	revalidate.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, revalidate)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandlerExportEventNotFound(t *testing.T) {
	handler, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/calendar/events/missing.ics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExportCalendar(t *testing.T) {
	handler, store := testHandler(t)
	seedEvent(t, store)

	second := &export.Event{
		Title:   "Awards Night",
		StartAt: time.Now().AddDate(0, 0, 14),
		EndAt:   time.Now().AddDate(0, 0, 14).Add(time.Hour),
		Status:  export.StatusPublished,
	}
	require.NoError(t, store.CreateEvent(context.Background(), second))

	req := httptest.NewRequest(http.MethodGet, "/calendar/calendar.ics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VCALENDAR"))
}

func TestHandlerExportCalendarXCal(t *testing.T) {
	handler, store := testHandler(t)
	seedEvent(t, store)

	req := httptest.NewRequest(http.MethodGet, "/calendar/calendar.ics?format=xcal&name=spring", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.MimeTypeCalendarXML, rec.Header().Get(HeaderContentType))
	assert.Equal(t, `attachment; filename="spring.xml"`, rec.Header().Get(HeaderContentDisposition))
	assert.Contains(t, rec.Body.String(), "<icalendar")
}

func TestHandlerOccurrencePreview(t *testing.T) {
	handler, store := testHandler(t)
	ev := seedEvent(t, store)

	req := httptest.NewRequest(http.MethodGet, "/calendar/events/evt-1/occurrences?limit=3", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MimeTypeJSON, rec.Header().Get(HeaderContentType))

	var body struct {
		Description string   `json:"description"`
		Occurrences []string `json:"occurrences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "Weekly, 4 times", body.Description)
	require.Len(t, body.Occurrences, 3, "limit wins over COUNT")
	assert.Equal(t, ev.StartAt.Format(time.DateOnly), body.Occurrences[0])
}

func TestHandlerOccurrencePreviewClampsLimit(t *testing.T) {
	handler, store := testHandler(t)

	openEnded := &export.Event{
		ID:             "evt-open",
		Title:          "Open Rehearsal",
		StartAt:        time.Now().AddDate(0, 0, 1),
		EndAt:          time.Now().AddDate(0, 0, 1).Add(time.Hour),
		Status:         export.StatusPublished,
		RecurrenceRule: "FREQ=DAILY",
	}
	require.NoError(t, store.CreateEvent(context.Background(), openEnded))

	req := httptest.NewRequest(http.MethodGet, "/calendar/events/evt-open/occurrences?limit=2000000", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Occurrences []string `json:"occurrences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Occurrences, recurrence.DefaultMaxOccurrences,
		"client limit may only lower the engine cap")
}

func TestHandlerImport(t *testing.T) {
	handler, store := testHandler(t)

	calendar := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//External//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:imported-1\r\n" +
		"DTSTAMP:20250101T120000Z\r\n" +
		"DTSTART:20250410T090000Z\r\n" +
		"SUMMARY:Imported Event\r\n" +
		"STATUS:CONFIRMED\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	req := httptest.NewRequest(http.MethodPost, "/calendar/import", strings.NewReader(calendar))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Imported)
	assert.Equal(t, 0, body.Skipped)

	stored, err := store.GetEvent(context.Background(), "imported-1")
	require.NoError(t, err)
	assert.Equal(t, "Imported Event", stored.Title)
	assert.Equal(t, export.StatusPublished, stored.Status)

	t.Run("re-import skips duplicates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/calendar/import", strings.NewReader(calendar))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 0, body.Imported)
		assert.Equal(t, 1, body.Skipped)
	})
}

func TestHandlerImportBadBody(t *testing.T) {
	handler, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/calendar/import", strings.NewReader("junk"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUnknownRoute(t *testing.T) {
	handler, _ := testHandler(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/calendar/nope"},
		{http.MethodDelete, "/calendar/calendar.ics"},
		{http.MethodPost, "/calendar/events/evt-1.ics"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestNewHandlerRequiresStore(t *testing.T) {
	_, err := NewHandler("/calendar/", nil, nil, nil, nil)
	assert.Error(t, err)
}
