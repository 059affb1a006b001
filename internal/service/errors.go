package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent expected conditions that callers check with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped with context via fmt.Errorf("%w")
// 3. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one
	// making the request. Returned when a user attempts to read or modify a task
	// they do not own. API layer should map this to HTTP 404 Not Found so that
	// foreign task identifiers are indistinguishable from missing ones.
	ErrNotOwned = errors.New("resource is owned by another user")
)
