package model

import "errors"

// Error kinds shared by the store, service and API layers. Callers wrap these
// with context and match them with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	// ErrMirrorSync means the relational write committed but the document
	// mirror has not caught up yet. The outbox entry stays pending.
	ErrMirrorSync = errors.New("mirror sync pending")
)
