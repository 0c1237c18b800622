package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/platform/metrics"
	"github.com/nexusdata/nexusdata/internal/queue"
)

// Dispatcher is the single consumer of the admission queue. One task runs
// at a time; the loop itself never fails, it only logs and moves on.
type Dispatcher struct {
	queue        *queue.AdmissionQueue
	handlers     *Handlers
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewDispatcher creates a Dispatcher polling at the given interval when
// the queue is empty.
func NewDispatcher(q *queue.AdmissionQueue, handlers *Handlers, pollInterval time.Duration, logger *slog.Logger) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Dispatcher{
		queue:        q,
		handlers:     handlers,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run drains the queue until ctx is cancelled. Each dequeued entry is
// acknowledged with queue.Complete regardless of the handler's outcome,
// keeping the processing set an exact picture of in-flight work.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", "poll_interval", d.pollInterval)
	timer := time.NewTimer(d.pollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			d.logger.Info("dispatcher stopped")
			return
		}

		entry, ok := d.queue.Dequeue()
		if !ok {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.pollInterval)
			select {
			case <-ctx.Done():
				d.logger.Info("dispatcher stopped")
				return
			case <-timer.C:
			}
			continue
		}

		d.process(ctx, entry)
	}
}

func (d *Dispatcher) process(ctx context.Context, entry domain.QueueEntry) {
	start := time.Now()
	defer func() {
		metrics.ObserveTaskDuration(string(entry.Type), time.Since(start).Seconds())
		metrics.SetQueueStatus(d.queue.Status())
	}()
	defer d.queue.Complete(entry.TaskID)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked", "task_id", entry.TaskID, "type", entry.Type, "panic", r)
		}
	}()

	d.handlers.Handle(ctx, entry)
}
