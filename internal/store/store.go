package store

import (
	"context"
	"time"
)

// TaskStore is the task record persistence contract consumed by the
// admission path, the dispatcher's handlers, callback delivery, and the
// retention sweeper. Implementations must provide atomic read-modify-write
// per key; callers must tolerate ErrNotFound as a normal outcome of
// concurrent deletion.
type TaskStore interface {
	// Create persists a new record. Returns ErrDuplicate if a record with
	// the same task ID already exists.
	Create(ctx context.Context, rec *Record) error

	// Get retrieves a record by task ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, taskID string) (*Record, error)

	// Update merges a partial change set into the record (see Record.Apply)
	// and bumps the updated timestamp. Returns ErrNotFound if absent.
	Update(ctx context.Context, taskID string, changes Fields) error

	// Delete removes a record. Returns ErrNotFound if absent.
	Delete(ctx context.Context, taskID string) error

	// DeleteOlderThan removes every record created before the cutoff and
	// reports how many were removed. Used by the retention sweeper.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
