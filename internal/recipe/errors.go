package recipe

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that the requested recipe does not exist.
	ErrNotFound = errors.New("Recipe not found") //nolint:staticcheck // surfaced verbatim to API clients
	// ErrUnknownUser signals that the owning user does not exist.
	ErrUnknownUser = errors.New("user not found")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FetchError wraps a transport failure while retrieving a source page.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
