package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/platform/metrics"
	"github.com/nexusdata/nexusdata/internal/queue"
	"github.com/nexusdata/nexusdata/internal/store"
)

// TaskService owns the admission path: it creates the durable task record
// and hands a work ticket to the queue. The record always exists before
// the ticket does, so the dispatcher can rely on lookups succeeding unless
// a purge raced it.
type TaskService struct {
	store  store.TaskStore
	queue  *queue.AdmissionQueue
	logger *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(taskStore store.TaskStore, q *queue.AdmissionQueue, logger *slog.Logger) *TaskService {
	return &TaskService{store: taskStore, queue: q, logger: logger}
}

// Submit creates a pending task record and enqueues it for the worker.
// When the queue is at capacity the record is marked failed and
// queue.ErrQueueFull is returned so the transport layer can answer with a
// service-unavailable condition.
func (s *TaskService) Submit(ctx context.Context, taskType domain.TaskType, handle string, fields store.Fields) (string, error) {
	taskID := domain.NewTaskID()

	record, err := store.NewRecord(taskID, taskType, handle, fields)
	if err != nil {
		return "", fmt.Errorf("failed to build task record: %w", err)
	}
	if err := s.store.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to persist task record: %w", err)
	}

	err = s.queue.Enqueue(domain.QueueEntry{TaskID: taskID, Type: taskType})
	if err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			metrics.TaskRejected(string(taskType))
			s.markAdmissionFailed(ctx, taskID)
		}
		return taskID, err
	}

	metrics.TaskAdmitted(string(taskType))
	s.logger.Info("task admitted", "task_id", taskID, "type", taskType)
	return taskID, nil
}

// Get returns the current record for a task identifier.
func (s *TaskService) Get(ctx context.Context, taskID string) (*store.Record, error) {
	return s.store.Get(ctx, taskID)
}

// QueueStatus reports the waiting and in-flight population of the queue.
func (s *TaskService) QueueStatus() queue.Status {
	return s.queue.Status()
}

// markAdmissionFailed records the backpressure rejection on the task so a
// polling caller can observe it.
func (s *TaskService) markAdmissionFailed(ctx context.Context, taskID string) {
	changes := store.Fields{
		store.KeyStatus: domain.TaskStatusFailed,
		"error":         "task queue is full",
	}
	if err := s.store.Update(ctx, taskID, changes); err != nil {
		s.logger.Error("failed to mark rejected task as failed", "task_id", taskID, "error", err)
	}
}
