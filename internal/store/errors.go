package store

import "errors"

// Common errors returned by store implementations
var (
	// ErrTaskNotFound is returned when a task lookup matches no row.
	ErrTaskNotFound = errors.New("task not found")
)
