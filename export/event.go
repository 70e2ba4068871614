package export

import "time"

// Status is the lifecycle state of a portal event, as stored by the events
// service.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCancelled Status = "cancelled"
	StatusArchived  Status = "archived"
)

// Event is a read-only projection of a scheduled portal event, carrying just
// the fields the exporter consumes. The storage layer owns the full record;
// the exporter never mutates or persists one.
type Event struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Location    string

	StartAt time.Time
	EndAt   time.Time
	AllDay  bool

	Status         Status
	OrganizerName  string
	RecurrenceRule string // raw rule string, embedded verbatim, never expanded

	CreatedAt time.Time
	UpdatedAt time.Time

	// URL is the event's canonical public address.
	URL string

	// ETag is the entity tag of the stored record, set by the storage layer
	// and left out of serialized output. Handlers use it for conditional GET.
	ETag string
}

// icalStatus maps a portal status onto the closed set of iCalendar STATUS
// values. Anything outside the known set, archived included, renders as
// TENTATIVE.
func icalStatus(s Status) string {
	switch s {
	case StatusPublished:
		return "CONFIRMED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusDraft:
		return "TENTATIVE"
	default:
		return "TENTATIVE"
	}
}
