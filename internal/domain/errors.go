package domain

import "errors"

var (
	// ErrInvalidQuery is returned when page or filter parameters break the query contract.
	ErrInvalidQuery = errors.New("invalid property query")

	ErrPropertyNotFound = errors.New("property not found")

	// ErrUpstreamUnavailable is returned while the properties API is considered down.
	ErrUpstreamUnavailable = errors.New("properties API unavailable")

	// ErrListingNotFound is returned for unknown or expired listing sessions.
	ErrListingNotFound = errors.New("listing not found")

	// ErrUnexpectedPage is returned when a fetched page does not match the requested cursor.
	ErrUnexpectedPage = errors.New("unexpected page in response")
)
