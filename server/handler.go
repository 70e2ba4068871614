// Package server provides the HTTP-facing collaborator for calendar
// exports. It is a thin streaming layer: it fetches event projections from
// an EventSource, hands them to the exporter or the recurrence engine, and
// writes the result as a file download or JSON. All calendar logic lives in
// the export and recurrence packages.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campus-sis/icalport/export"
	"github.com/campus-sis/icalport/ingest"
	"github.com/campus-sis/icalport/recurrence"
	"github.com/campus-sis/icalport/server/storage"
)

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"

	MimeTypeJSON = "application/json; charset=utf-8"
)

// Handler serves calendar export, occurrence preview and import requests
// under a URL prefix.
//
// Routes (relative to the prefix):
//
//	GET  calendar.ics                 all upcoming events (?name=, ?format=xcal)
//	GET  events/<id>.ics              single event export (?format=xcal)
//	GET  events/by-slug/<slug>.ics    single event export by URL slug
//	GET  events/<id>/occurrences      JSON occurrence preview (?limit=)
//	POST import                       store events parsed from an .ics body
type Handler struct {
	prefix   string
	store    storage.EventSource
	exporter *export.Exporter
	engine   *recurrence.Engine
	logger   *slog.Logger
}

// NewHandler creates a Handler. store is required; a nil exporter, engine or
// logger falls back to package defaults.
func NewHandler(prefix string, store storage.EventSource, exporter *export.Exporter, engine *recurrence.Engine, logger *slog.Logger) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("event source is required")
	}

	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	if exporter == nil {
		exporter = export.NewExporter()
	}
	if engine == nil {
		engine = recurrence.NewEngine()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		prefix:   prefix,
		store:    store,
		exporter: exporter,
		engine:   engine,
		logger:   logger,
	}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	rel := strings.Trim(strings.TrimPrefix(r.URL.Path, h.prefix), "/")

	switch {
	case r.Method == http.MethodGet && rel == "calendar.ics":
		h.handleCalendar(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(rel, "events/by-slug/") && strings.HasSuffix(rel, ".ics"):
		slug := strings.TrimSuffix(strings.TrimPrefix(rel, "events/by-slug/"), ".ics")
		h.handleEventBySlug(w, r, slug)
	case r.Method == http.MethodGet && strings.HasPrefix(rel, "events/") && strings.HasSuffix(rel, ".ics"):
		id := strings.TrimSuffix(strings.TrimPrefix(rel, "events/"), ".ics")
		h.handleEvent(w, r, id)
	case r.Method == http.MethodGet && strings.HasPrefix(rel, "events/") && strings.HasSuffix(rel, "/occurrences"):
		id := strings.TrimSuffix(strings.TrimPrefix(rel, "events/"), "/occurrences")
		h.handleOccurrences(w, r, id)
	case r.Method == http.MethodPost && rel == "import":
		h.handleImport(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request, id string) {
	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, err, "event_id", id)
		return
	}
	h.writeEvent(w, r, ev)
}

func (h *Handler) handleEventBySlug(w http.ResponseWriter, r *http.Request, slug string) {
	ev, err := h.store.GetEventBySlug(r.Context(), slug)
	if err != nil {
		h.writeStorageError(w, err, "event_slug", slug)
		return
	}
	h.writeEvent(w, r, ev)
}

func (h *Handler) writeEvent(w http.ResponseWriter, r *http.Request, ev *export.Event) {
	// Storage-provided entity tags let clients revalidate subscriptions
	// without re-downloading the document.
	if ev.ETag != "" {
		w.Header().Set("ETag", ev.ETag)
		if r.Header.Get("If-None-Match") == ev.ETag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	if r.URL.Query().Get("format") == "xcal" {
		exp, err := h.exporter.ExportEventsXCal([]export.Event{*ev}, ev.Title)
		if err != nil {
			h.logger.Error("failed to render xcal document", "error", err, "event_id", ev.ID)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeAttachment(w, exp)
		return
	}

	h.writeAttachment(w, h.exporter.ExportEvent(*ev))
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListUpcoming(r.Context(), nil)
	if err != nil {
		h.logger.Error("failed to list upcoming events", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	events := make([]export.Event, 0, len(records))
	for _, ev := range records {
		events = append(events, *ev)
	}
	name := r.URL.Query().Get("name")

	if r.URL.Query().Get("format") == "xcal" {
		exp, err := h.exporter.ExportEventsXCal(events, name)
		if err != nil {
			h.logger.Error("failed to render xcal document", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeAttachment(w, exp)
		return
	}

	h.writeAttachment(w, h.exporter.ExportEvents(events, name))
}

func (h *Handler) handleOccurrences(w http.ResponseWriter, r *http.Request, id string) {
	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, err, "event_id", id)
		return
	}

	// The engine's cap bounds both expansion work and cache entry size, so a
	// client-supplied limit may only lower it, never raise it.
	limit := h.engine.MaxOccurrences()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	occurrences := h.engine.OccurrencesCapped(ev.StartAt, nil, ev.RecurrenceRule, limit)
	dates := make([]string, len(occurrences))
	for i, occ := range occurrences {
		dates[i] = occ.Format(time.DateOnly)
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"description": recurrence.Describe(ev.RecurrenceRule),
		"occurrences": dates,
	})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	events, err := ingest.ParseEvents(r.Body)
	if err != nil {
		h.logger.Error("failed to parse imported calendar", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	imported, skipped := 0, 0
	for i := range events {
		err := h.store.CreateEvent(r.Context(), &events[i])
		var storageErr *storage.Error
		switch {
		case err == nil:
			imported++
		case errors.As(err, &storageErr) && storageErr.Type == storage.ErrAlreadyExists:
			skipped++
		default:
			h.logger.Error("failed to store imported event",
				"error", err,
				"event_id", events[i].ID)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.logger.Info("imported calendar", "imported", imported, "skipped", skipped)
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"imported": imported,
		"skipped":  skipped,
	})
}

func (h *Handler) writeAttachment(w http.ResponseWriter, exp export.Export) {
	w.Header().Set(HeaderContentType, exp.ContentType)
	w.Header().Set(HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(exp.Content))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(HeaderContentType, MimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeStorageError(w http.ResponseWriter, err error, args ...any) {
	if storage.IsNotFound(err) {
		h.logger.Info("event not found", args...)
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}
	h.logger.Error("storage failure", append([]any{"error", err}, args...)...)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
