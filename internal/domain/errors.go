package domain

import "errors"

// ErrNotFound is returned when a referenced user, location, or allocation
// does not exist. Wrapping sites append the entity kind and id, e.g.
// "not found: user 7". Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing location name, malformed scheduled time).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidTransition is returned when a tracking state machine precondition
// is violated: starting an allocation that is already live, or stopping one
// that is already offline. Handlers should map this to HTTP 409 Conflict.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrInvalidTimestamp is returned when a tracking timestamp is malformed or
// precedes the session start. Handlers should map this to HTTP 422.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ErrForbidden is returned when the acting user lacks the role or ownership
// required by an operation. Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrStore is returned by store implementations when the underlying
// persistence read or write failed. The operation is aborted without any
// partial write. Handlers should map this to HTTP 503.
var ErrStore = errors.New("store failure")
