package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// xCalNamespace is the XML namespace of RFC 6321 (xCal) documents.
const xCalNamespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// ExportEventsXCal renders events as an RFC 6321 style xCal document, the
// XML representation of the same calendar data ExportEvents produces as
// .ics. Field selection, status mapping and UID derivation are identical;
// TEXT escaping and line folding do not apply since XML carries its own
// encoding.
func (x *Exporter) ExportEventsXCal(events []Event, collectionName string) (Export, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	icalendar := doc.CreateElement("icalendar")
	icalendar.CreateAttr("xmlns", xCalNamespace)
	vcalendar := icalendar.CreateElement("vcalendar")

	props := vcalendar.CreateElement("properties")
	addXCalValue(props, "version", "text", "2.0")
	addXCalValue(props, "prodid", "text", x.ProdID)
	addXCalValue(props, "calscale", "text", "GREGORIAN")
	addXCalValue(props, "method", "text", "PUBLISH")

	components := vcalendar.CreateElement("components")
	for _, ev := range events {
		x.addXCalEvent(components, ev)
	}

	doc.Indent(2)
	content, err := doc.WriteToString()
	if err != nil {
		return Export{}, fmt.Errorf("serialize xcal document: %w", err)
	}

	name := Slugify(collectionName)
	if name == "" {
		name = fmt.Sprintf("%s-events-%s", x.OrgSlug, x.clock().Format("2006-01-02"))
	}

	return Export{
		Content:     content,
		Filename:    name + ".xml",
		ContentType: MimeTypeCalendarXML,
	}, nil
}

func (x *Exporter) addXCalEvent(components *etree.Element, ev Event) {
	touched := ev.UpdatedAt
	if touched.IsZero() {
		touched = ev.CreatedAt
	}

	vevent := components.CreateElement("vevent")
	props := vevent.CreateElement("properties")

	addXCalValue(props, "uid", "text", x.uid(ev))
	addXCalDate(props, "dtstamp", touched, false)
	addXCalDate(props, "dtstart", ev.StartAt, ev.AllDay)
	addXCalDate(props, "dtend", ev.EndAt, ev.AllDay)
	addXCalValue(props, "summary", "text", stripTags(ev.Title))
	if ev.Description != "" {
		addXCalValue(props, "description", "text", stripTags(ev.Description))
	}
	if ev.Location != "" {
		addXCalValue(props, "location", "text", stripTags(ev.Location))
	}
	addXCalValue(props, "status", "text", icalStatus(ev.Status))
	if ev.RecurrenceRule != "" {
		// The rule rides along as raw text, matching the verbatim embedding
		// of the .ics path rather than RFC 6321's structured recur value.
		addXCalValue(props, "rrule", "text", strings.TrimPrefix(ev.RecurrenceRule, "RRULE:"))
	}
	addXCalDate(props, "created", ev.CreatedAt, false)
	addXCalDate(props, "last-modified", touched, false)
	if ev.OrganizerName != "" {
		organizer := props.CreateElement("organizer")
		parameters := organizer.CreateElement("parameters")
		parameters.CreateElement("cn").CreateElement("text").SetText(stripTags(ev.OrganizerName))
		organizer.CreateElement("cal-address").SetText("mailto:" + x.OrganizerAddr)
	}
	addXCalValue(props, "url", "uri", ev.URL)
}

func addXCalValue(props *etree.Element, name, valueType, value string) {
	props.CreateElement(name).CreateElement(valueType).SetText(value)
}

func addXCalDate(props *etree.Element, name string, t time.Time, allDay bool) {
	if t.IsZero() {
		return
	}
	if allDay {
		addXCalValue(props, name, "date", t.Format("2006-01-02"))
		return
	}
	addXCalValue(props, name, "date-time", t.UTC().Format("2006-01-02T15:04:05Z"))
}
