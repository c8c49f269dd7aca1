package eventsync

import (
	"errors"
	"fmt"

	"admincal/internal/model"
)

var (
	// ErrEventNotFound is returned when an interaction names a key that is
	// not in the current collection.
	ErrEventNotFound = errors.New("event not found")

	// ErrNotReschedulable is returned when a drag targets an event whose
	// source has no due date to patch.
	ErrNotReschedulable = errors.New("event cannot be rescheduled")

	// ErrInvalidDraft is returned when a confirmed meeting draft has no id,
	// so the resulting event could never be addressed.
	ErrInvalidDraft = errors.New("meeting draft has no id")

	// ErrDuplicateEvent is returned when a new meeting reuses the id of a
	// meeting already in the collection.
	ErrDuplicateEvent = errors.New("event already exists")
)

// FetchError reports a failed fetch of one source during a refresh.
type FetchError struct {
	Source model.SourceType
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LookupError reports a failed employee directory lookup on activation.
type LookupError struct {
	EmployeeID string
	Err        error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup employee %s: %v", e.EmployeeID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user for this failure.
func (e *LookupError) UserMessage() string {
	return "Error fetching employee details"
}

// UpdateError reports a failed due date patch after a drag. The event has
// been rolled back to Previous by the time the caller sees it.
type UpdateError struct {
	Key      model.Key
	Previous string
	Err      error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update due date of %s: %v", e.Key, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }
