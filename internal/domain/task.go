package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskType identifies the kind of work a task performs.
type TaskType string

// Supported task types.
const (
	TaskTypeMask      TaskType = "mask"
	TaskTypeEmbedding TaskType = "embedding"
	TaskTypeRerank    TaskType = "rerank"
)

// TaskStatus represents the lifecycle state of a task record.
type TaskStatus string

// Possible task status values. Status only moves forward: pending tasks
// become processing (or fail at admission), processing tasks reach exactly
// one of the terminal states, and terminal states are absorbing.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Common validation errors for tasks.
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrInvalidTaskType    = errors.New("invalid task type")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrStatusRegression   = errors.New("task status cannot move backward")
	ErrTerminalTaskStatus = errors.New("task status is terminal")
)

// NewTaskID returns a fresh opaque task identifier.
func NewTaskID() string {
	return uuid.New().String()
}

// IsValidTaskType reports whether t is one of the supported task types.
func IsValidTaskType(t TaskType) bool {
	switch t {
	case TaskTypeMask, TaskTypeEmbedding, TaskTypeRerank:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is an absorbing state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Valid reports whether s is a recognized task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a forward
// transition. Pending may fail directly (admission failures never reach
// processing), processing reaches exactly one terminal state, and terminal
// states accept nothing.
func (s TaskStatus) CanTransitionTo(next TaskStatus) error {
	if !next.Valid() {
		return ErrInvalidTaskStatus
	}
	if s.Terminal() {
		return ErrTerminalTaskStatus
	}
	switch s {
	case TaskStatusPending:
		if next == TaskStatusPending {
			return ErrStatusRegression
		}
	case TaskStatusProcessing:
		if next == TaskStatusPending || next == TaskStatusProcessing {
			return ErrStatusRegression
		}
	}
	return nil
}

// QueueEntry is the ephemeral work ticket placed on the admission queue.
// It exists only between admission and dispatch; the task record in the
// store is the durable source of truth.
type QueueEntry struct {
	TaskID string
	Type   TaskType
}

// Validate checks the entry for structural problems.
func (e QueueEntry) Validate() error {
	if e.TaskID == "" {
		return ErrEmptyTaskID
	}
	if !IsValidTaskType(e.Type) {
		return ErrInvalidTaskType
	}
	return nil
}

// Timestamps carries the creation/update clock pair shared by task records.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTimestamps returns both timestamps set to the current UTC time.
func NewTimestamps() Timestamps {
	now := time.Now().UTC()
	return Timestamps{CreatedAt: now, UpdatedAt: now}
}
