package gateway

import (
	"fmt"

	"github.com/PropertyListing/internal/domain"
)

// ValidationError is returned before any request is sent when the page query is malformed.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying error, which always wraps domain.ErrInvalidQuery.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the properties API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("properties API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("properties API returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps 400 to ErrInvalidQuery and 404 to ErrPropertyNotFound.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case 400:
		return domain.ErrInvalidQuery
	case 404:
		return domain.ErrPropertyNotFound
	}
	return nil
}

// Temporary reports whether the failure is the upstream's fault and should count against the breaker.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
