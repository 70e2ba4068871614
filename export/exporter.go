// Package export serializes portal events into calendar-interchange text.
//
// The produced documents are RFC 5545 flavored .ics files: a VCALENDAR
// envelope with one VEVENT block per event, CRLF line endings, escaped TEXT
// values and folded long lines, the format consumed byte-for-byte by
// Outlook, Google Calendar and friends. Recurrence rules are embedded
// verbatim on their event, never expanded into multiple VEVENTs.
//
// The exporter does not validate events; well-formedness (non-empty title,
// end not before start, required dates present) is the caller's
// responsibility. Missing optional fields cause property omission, not
// errors.
package export

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MimeTypeCalendar is the content type for .ics downloads.
	MimeTypeCalendar = "text/calendar; charset=utf-8"
	// MimeTypeCalendarXML is the content type for xCal downloads.
	MimeTypeCalendarXML = "application/calendar+xml; charset=utf-8"
)

// Export is a rendered calendar document plus the metadata an HTTP handler
// needs to stream it as a file download.
type Export struct {
	Content     string
	Filename    string
	ContentType string
}

// Exporter renders events as iCalendar documents. The zero value is not
// usable; construct one with NewExporter and override fields as needed.
// Exporters are stateless and safe for concurrent use.
type Exporter struct {
	// ProdID identifies the generating product in the VCALENDAR header.
	ProdID string
	// CalendarName, CalendarDesc and TimeZone feed the X-WR-* extension
	// headers.
	CalendarName string
	CalendarDesc string
	TimeZone     string
	// UIDDomain is the fixed domain suffix of every generated UID. It must
	// stay stable across exports so calendar clients can deduplicate.
	UIDDomain string
	// OrganizerAddr is the fixed organizational mailbox placed on ORGANIZER
	// lines.
	OrganizerAddr string
	// OrgSlug prefixes default multi-event filenames.
	OrgSlug string

	// now is overridable for tests; it only affects default filenames.
	now func() time.Time
}

// NewExporter creates an Exporter with the portal's defaults.
func NewExporter() *Exporter {
	return &Exporter{
		ProdID:        "-//Campus SIS//Events Portal//EN",
		CalendarName:  "Campus Events",
		CalendarDesc:  "Events published by student affairs services",
		TimeZone:      "UTC",
		UIDDomain:     "events.campus-sis.org",
		OrganizerAddr: "events@campus-sis.org",
		OrgSlug:       "campus",
		now:           time.Now,
	}
}

// ExportEvent wraps a single event in a calendar document. The suggested
// filename is derived from the slugified title.
func (x *Exporter) ExportEvent(ev Event) Export {
	name := Slugify(ev.Title)
	if name == "" {
		name = "event"
	}

	return Export{
		Content:     x.envelope(x.buildVEvent(ev)),
		Filename:    name + ".ics",
		ContentType: MimeTypeCalendar,
	}
}

// ExportEvents wraps events in a single calendar document, one VEVENT per
// event. When collectionName is empty the filename falls back to a dated
// generic name.
func (x *Exporter) ExportEvents(events []Event, collectionName string) Export {
	blocks := make([]string, 0, len(events))
	for _, ev := range events {
		blocks = append(blocks, x.buildVEvent(ev))
	}

	name := Slugify(collectionName)
	if name == "" {
		name = fmt.Sprintf("%s-events-%s", x.OrgSlug, x.clock().Format("2006-01-02"))
	}

	return Export{
		Content:     x.envelope(blocks...),
		Filename:    name + ".ics",
		ContentType: MimeTypeCalendar,
	}
}

func (x *Exporter) clock() time.Time {
	if x.now == nil {
		return time.Now()
	}
	return x.now()
}

// envelope wraps pre-rendered VEVENT blocks in the VCALENDAR header and
// footer. Every line is CRLF terminated, including the last.
func (x *Exporter) envelope(blocks ...string) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + x.ProdID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		foldLine("X-WR-CALNAME:" + escapeText(x.CalendarName)),
		"X-WR-TIMEZONE:" + x.TimeZone,
		foldLine("X-WR-CALDESC:" + escapeText(x.CalendarDesc)),
	}
	lines = append(lines, blocks...)
	lines = append(lines, "END:VCALENDAR")

	return strings.Join(lines, "\r\n") + "\r\n"
}

// buildVEvent renders one VEVENT block. Field order is fixed; optional
// properties (DESCRIPTION, LOCATION, RRULE, ORGANIZER) are omitted entirely
// when their source field is empty.
func (x *Exporter) buildVEvent(ev Event) string {
	touched := ev.UpdatedAt
	if touched.IsZero() {
		touched = ev.CreatedAt
	}

	lines := []string{"BEGIN:VEVENT"}
	add := func(line string) {
		lines = append(lines, foldLine(line))
	}

	add("UID:" + x.uid(ev))
	// DTSTAMP records when this calendar object was last touched; it is
	// always a timed UTC value, even for all-day events.
	add("DTSTAMP" + formatUTC(touched))
	add("DTSTART" + formatDate(ev.StartAt, ev.AllDay))
	add("DTEND" + formatDate(ev.EndAt, ev.AllDay))
	add("SUMMARY:" + escapeText(ev.Title))
	if ev.Description != "" {
		add("DESCRIPTION:" + escapeText(ev.Description))
	}
	if ev.Location != "" {
		add("LOCATION:" + escapeText(ev.Location))
	}
	add("STATUS:" + icalStatus(ev.Status))
	if ev.RecurrenceRule != "" {
		// Stored values may or may not carry the label already.
		add("RRULE:" + strings.TrimPrefix(ev.RecurrenceRule, "RRULE:"))
	}
	add("CREATED" + formatUTC(ev.CreatedAt))
	add("LAST-MODIFIED" + formatUTC(touched))
	if ev.OrganizerName != "" {
		add("ORGANIZER;CN=" + escapeText(ev.OrganizerName) + ":MAILTO:" + x.OrganizerAddr)
	}
	add("URL:" + ev.URL)
	lines = append(lines, "END:VEVENT")

	return strings.Join(lines, "\r\n")
}

// uid derives a globally unique, stable identifier for the event. Repeated
// exports of the same event must produce the same UID so calendar clients
// treat them as updates rather than duplicates.
func (x *Exporter) uid(ev Event) string {
	return fmt.Sprintf("event-%s@%s", ev.ID, x.UIDDomain)
}

// formatDate renders a date property value including its leading separator:
// ";VALUE=DATE:20060102" for all-day events, ":20060102T150405Z" in UTC
// otherwise. A zero time renders as an empty string.
func formatDate(t time.Time, allDay bool) string {
	if t.IsZero() {
		return ""
	}
	if allDay {
		return ";VALUE=DATE:" + t.Format("20060102")
	}
	return ":" + t.UTC().Format("20060102T150405Z")
}

func formatUTC(t time.Time) string {
	return formatDate(t, false)
}
