package core

import "errors"

var (
	// ErrRemoteUnavailable is returned when a downstream service could not be reached
	// or answered with a transport level failure.
	ErrRemoteUnavailable = errors.New("remote service unavailable")

	// ErrMalformedResponse is returned when a payload did not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrConfigNotFound is returned when master data is still missing after tenant fallback.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrNoRecordsFound is returned when active version selection runs on an empty history.
	ErrNoRecordsFound = errors.New("no records found")
)
