package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every lookup miss so the HTTP layer can map the
// whole family to 404.
var ErrNotFound = errors.New("not found")

var (
	ErrStationNotFound = fmt.Errorf("invalid station id: %w", ErrNotFound)
	ErrUnknownField    = fmt.Errorf("unknown field: %w", ErrNotFound)
)

// CategoryNotFoundError reports that a known station carries no reading for
// the requested category.
type CategoryNotFoundError struct {
	Category Category
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("station does not provide %s measurements", e.Category)
}

func (e *CategoryNotFoundError) Unwrap() error { return ErrNotFound }

// FetchError is an upstream failure: transport error, timeout or non-2xx.
// StatusCode is zero when no response was received.
type FetchError struct {
	Feed       string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch feed %s: %v", e.Feed, e.Err)
	}
	return fmt.Sprintf("fetch feed %s: status %d: %s", e.Feed, e.StatusCode, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is a malformed feed document, or a single station that could not
// be built. StationID is empty for document-level errors.
type ParseError struct {
	Feed      string
	StationID string
	Err       error
}

func (e *ParseError) Error() string {
	switch {
	case e.StationID != "":
		return fmt.Sprintf("parse station %s: %v", e.StationID, e.Err)
	case e.Feed != "":
		return fmt.Sprintf("parse feed %s: %v", e.Feed, e.Err)
	default:
		return fmt.Sprintf("parse: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }
