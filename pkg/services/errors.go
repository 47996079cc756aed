package services

import "errors"

// Distinguishable error kinds surfaced by the services. The API layer maps
// them to status codes; the services themselves never deal in HTTP.
var (
	ErrNotFound        = errors.New("not found")
	ErrEmailTaken      = errors.New("email already in use")
	ErrBookUnavailable = errors.New("no available copies")
	ErrAlreadyReturned = errors.New("loan already returned")
)
