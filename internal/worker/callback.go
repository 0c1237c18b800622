package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/platform/metrics"
	"github.com/nexusdata/nexusdata/internal/store"
)

// Finalizer writes a task's terminal state and, when the task carries a
// callback handle, delivers the outcome with a single outbound POST.
// Delivery is at-most-once: a 2xx response disposes of the record, any
// other outcome leaves the record for polling until the retention sweep
// claims it.
type Finalizer struct {
	store  store.TaskStore
	client *http.Client
	logger *slog.Logger
}

// NewFinalizer creates a Finalizer whose callback POSTs are bounded by
// timeout.
func NewFinalizer(taskStore store.TaskStore, timeout time.Duration, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		store:  taskStore,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Finalize persists the terminal status together with the result (or
// error) fields, then attempts callback delivery. Store and delivery
// failures are logged, never returned: by this point the task's outcome
// is decided and nothing upstream can act on an error.
func (f *Finalizer) Finalize(ctx context.Context, record *store.Record, status domain.TaskStatus, fields store.Fields) {
	changes := make(store.Fields, len(fields)+1)
	for k, v := range fields {
		changes[k] = v
	}
	changes[store.KeyStatus] = status

	if err := f.store.Update(ctx, record.TaskID, changes); err != nil {
		f.logger.Error("failed to persist terminal task state",
			"task_id", record.TaskID, "status", status, "error", err)
		return
	}
	metrics.TaskFinished(string(record.Type), string(status))

	if record.Handle == "" {
		// No callback target. The record stays for polling callers; the
		// retention sweep removes it later.
		return
	}

	if err := f.deliver(ctx, record.TaskID, record.Handle, status, fields); err != nil {
		metrics.CallbackDelivered("failed")
		f.logger.Warn("callback delivery failed, leaving record for retention sweep",
			"task_id", record.TaskID, "handle", record.Handle, "error", err)
		return
	}
	metrics.CallbackDelivered("ok")

	// Delivery confirmed, the record has served its purpose.
	if err := f.store.Delete(ctx, record.TaskID); err != nil {
		f.logger.Error("failed to delete delivered task record",
			"task_id", record.TaskID, "error", err)
	}
}

func (f *Finalizer) deliver(ctx context.Context, taskID, handle string, status domain.TaskStatus, fields store.Fields) error {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["task_id"] = taskID
	payload["status"] = string(status)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, handle, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	f.logger.Info("callback delivered", "task_id", taskID, "status", status)
	return nil
}
