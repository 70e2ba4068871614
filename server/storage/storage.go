// Package storage defines the event-source interface the calendar handlers
// read from. The portal's CRUD services own the real records; this package
// only describes the boundary and the error taxonomy handlers use to pick
// status codes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-sis/icalport/export"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a not-found storage error.
func IsNotFound(err error) bool {
	var storageErr *Error
	return errors.As(err, &storageErr) && storageErr.Type == ErrNotFound
}

// ListOptions filters upcoming-event listings.
type ListOptions struct {
	// From is the inclusive lower bound on StartAt. Implementations default
	// it to "now" when nil.
	From *time.Time
	// Until is the inclusive upper bound on StartAt, unbounded when nil.
	Until *time.Time
	// Limit caps the number of returned events; 0 means no limit.
	Limit int
}

// EventSource is implemented by backends that can supply event projections
// for export. Implementations must return *Error values so handlers can map
// failures to HTTP status codes.
type EventSource interface {
	// GetEvent fetches a single event by its opaque identifier.
	GetEvent(ctx context.Context, id string) (*export.Event, error)
	// GetEventBySlug fetches a single event by its URL slug.
	GetEventBySlug(ctx context.Context, slug string) (*export.Event, error)
	// ListUpcoming lists publicly exportable events ordered by start time.
	// A nil opts means "everything from now on".
	ListUpcoming(ctx context.Context, opts *ListOptions) ([]*export.Event, error)
	// CreateEvent stores a new event, assigning ID and Slug when absent.
	CreateEvent(ctx context.Context, ev *export.Event) error
}
