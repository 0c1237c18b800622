// Package queue implements the bounded in-memory admission queue that
// decouples request admission from task execution. The queue is volatile:
// only persisted task records survive a restart.
package queue

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/nexusdata/nexusdata/internal/domain"
)

// ErrQueueFull is returned when admission is rejected because the queue is
// at capacity. This is the system's only backpressure mechanism.
var ErrQueueFull = errors.New("admission queue is full")

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 100

// Status is a point-in-time snapshot of the queue used by the queue-status
// endpoint and the telemetry gauges.
type Status struct {
	Waiting    int      `json:"waiting"`
	Processing int      `json:"processing"`
	InFlight   []string `json:"in_flight,omitempty"`
}

// AdmissionQueue is a bounded FIFO of pending task descriptors plus the
// processing set tracking identifiers between dequeue and completion
// acknowledgment. Enqueue never blocks; Dequeue never blocks.
type AdmissionQueue struct {
	entries chan domain.QueueEntry
	logger  *slog.Logger

	mu         sync.Mutex
	processing map[string]domain.TaskType
}

// New creates an admission queue with the given capacity. Non-positive
// capacities fall back to DefaultCapacity.
func New(capacity int, logger *slog.Logger) *AdmissionQueue {
	if capacity <= 0 {
		logger.Warn("invalid queue capacity specified, using default",
			"specified_capacity", capacity,
			"default_capacity", DefaultCapacity)
		capacity = DefaultCapacity
	}

	return &AdmissionQueue{
		entries:    make(chan domain.QueueEntry, capacity),
		logger:     logger,
		processing: make(map[string]domain.TaskType),
	}
}

// Enqueue admits a task descriptor. Returns ErrQueueFull when the queue is
// at capacity; the admission path must then mark the task record failed.
func (q *AdmissionQueue) Enqueue(entry domain.QueueEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	select {
	case q.entries <- entry:
		q.logger.Debug("task enqueued",
			"task_id", entry.TaskID,
			"task_type", entry.Type,
			"queue_len", len(q.entries),
			"queue_cap", cap(q.entries))
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue pulls the oldest descriptor, if any. A successful dequeue moves
// the task identifier into the processing set; the dispatcher must call
// Complete once the handler returns, regardless of outcome.
func (q *AdmissionQueue) Dequeue() (domain.QueueEntry, bool) {
	select {
	case entry := <-q.entries:
		q.mu.Lock()
		q.processing[entry.TaskID] = entry.Type
		q.mu.Unlock()

		q.logger.Debug("task dequeued",
			"task_id", entry.TaskID,
			"task_type", entry.Type)
		return entry, true
	default:
		return domain.QueueEntry{}, false
	}
}

// Complete removes a task identifier from the processing set. Completing an
// unknown identifier is a no-op.
func (q *AdmissionQueue) Complete(taskID string) {
	q.mu.Lock()
	_, ok := q.processing[taskID]
	delete(q.processing, taskID)
	q.mu.Unlock()

	if ok {
		q.logger.Debug("task completed", "task_id", taskID)
	}
}

// Status reports the current waiting count and the in-flight identifiers.
func (q *AdmissionQueue) Status() Status {
	q.mu.Lock()
	inFlight := make([]string, 0, len(q.processing))
	for id := range q.processing {
		inFlight = append(inFlight, id)
	}
	q.mu.Unlock()

	sort.Strings(inFlight)
	return Status{
		Waiting:    len(q.entries),
		Processing: len(inFlight),
		InFlight:   inFlight,
	}
}

// Capacity returns the configured bound of the queue.
func (q *AdmissionQueue) Capacity() int {
	return cap(q.entries)
}
