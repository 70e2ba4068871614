// Package ingest parses calendar-interchange files back into portal event
// projections. It backs the admin "import external calendar" workflow:
// student organizations hand over .ics exports from other tools, and the
// portal turns each VEVENT into an event record for review.
//
// Parsing is lenient in the same spirit as the recurrence package:
// components that lack the minimum viable fields (UID, DTSTART) are skipped
// rather than failing the whole import.
package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/campus-sis/icalport/export"
)

// ParseEvents decodes .ics data from r into event projections. Every
// VCALENDAR in the stream is consumed; non-VEVENT components are ignored.
func ParseEvents(r io.Reader) ([]export.Event, error) {
	dec := ical.NewDecoder(r)

	var events []export.Event
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			if ev, ok := eventFromComponent(comp); ok {
				events = append(events, ev)
			}
		}
	}

	return events, nil
}

func eventFromComponent(comp *ical.Component) (export.Event, bool) {
	var ev export.Event

	uid := comp.Props.Get(ical.PropUID)
	if uid == nil || uid.Value == "" {
		return ev, false
	}
	ev.ID = uid.Value

	// A missing DTSTART comes back as a zero time with no error.
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil || start.IsZero() {
		return ev, false
	}
	ev.StartAt = start
	ev.AllDay = isDateOnly(comp.Props.Get(ical.PropDateTimeStart))

	ev.EndAt = start
	if end, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.UTC); err == nil && !end.IsZero() {
		ev.EndAt = end
	}

	if summary, err := comp.Props.Text(ical.PropSummary); err == nil {
		ev.Title = summary
	}
	if description, err := comp.Props.Text(ical.PropDescription); err == nil {
		ev.Description = description
	}
	if location, err := comp.Props.Text(ical.PropLocation); err == nil {
		ev.Location = location
	}

	ev.Status = portalStatus(comp.Props.Get(ical.PropStatus))
	ev.Slug = export.Slugify(ev.Title)

	if rrule := comp.Props.Get(ical.PropRecurrenceRule); rrule != nil {
		ev.RecurrenceRule = rrule.Value
	}
	if url := comp.Props.Get(ical.PropURL); url != nil {
		ev.URL = url.Value
	}
	if organizer := comp.Props.Get(ical.PropOrganizer); organizer != nil {
		ev.OrganizerName = organizer.Params.Get(ical.ParamCommonName)
	}
	if created, err := comp.Props.DateTime(ical.PropCreated, time.UTC); err == nil {
		ev.CreatedAt = created
	}
	if modified, err := comp.Props.DateTime(ical.PropLastModified, time.UTC); err == nil {
		ev.UpdatedAt = modified
	}

	return ev, true
}

func isDateOnly(prop *ical.Prop) bool {
	if prop == nil {
		return false
	}
	return strings.EqualFold(prop.Params.Get(ical.ParamValue), "DATE")
}

// portalStatus maps an iCalendar STATUS back onto the portal's lifecycle
// states. TENTATIVE and anything unknown land on draft, the safe state for
// imported content awaiting review.
func portalStatus(prop *ical.Prop) export.Status {
	if prop == nil {
		return export.StatusDraft
	}
	switch strings.ToUpper(prop.Value) {
	case "CONFIRMED":
		return export.StatusPublished
	case "CANCELLED":
		return export.StatusCancelled
	default:
		return export.StatusDraft
	}
}
