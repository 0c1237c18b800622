package store

import "errors"

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested task record does not exist.
	// Concurrent deletion (callback disposal, the retention sweeper) makes
	// this a normal outcome, not an invariant violation.
	ErrNotFound = errors.New("task record not found")

	// ErrDuplicate is returned when creating a record whose task ID is
	// already present.
	ErrDuplicate = errors.New("task record already exists")
)
