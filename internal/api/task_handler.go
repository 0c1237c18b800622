package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexusdata/nexusdata/internal/api/shared"
	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/platform/metrics"
	"github.com/nexusdata/nexusdata/internal/queue"
	"github.com/nexusdata/nexusdata/internal/service"
	"github.com/nexusdata/nexusdata/internal/store"
)

// TaskHandler exposes task admission, polling and queue introspection.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// SubmitMask handles POST /api/v1/mask/.
func (h *TaskHandler) SubmitMask(w http.ResponseWriter, r *http.Request) {
	var req MaskTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	fields := store.Fields{
		"text":     req.Text,
		"strategy": req.Strategy,
	}
	if len(req.Schema) > 0 {
		fields["schema"] = req.Schema
	}
	if len(req.ForceConvert) > 0 {
		fields["force_convert"] = req.ForceConvert
	}
	h.submit(w, r, domain.TaskTypeMask, req.Handle, fields)
}

// SubmitEmbedding handles POST /api/v1/embedding/.
func (h *TaskHandler) SubmitEmbedding(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.submit(w, r, domain.TaskTypeEmbedding, req.Handle, store.Fields{"text": req.Text})
}

// SubmitRerank handles POST /api/v1/rerank/.
func (h *TaskHandler) SubmitRerank(w http.ResponseWriter, r *http.Request) {
	var req RerankTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	fields := store.Fields{
		"query": req.Query,
		"texts": req.Texts,
	}
	if req.TopK > 0 {
		fields["top_k"] = req.TopK
	}
	h.submit(w, r, domain.TaskTypeRerank, req.Handle, fields)
}

// GetMask handles GET /api/v1/mask/{taskID}.
func (h *TaskHandler) GetMask(w http.ResponseWriter, r *http.Request) {
	h.getTask(w, r, domain.TaskTypeMask)
}

// GetEmbedding handles GET /api/v1/embedding/{taskID}.
func (h *TaskHandler) GetEmbedding(w http.ResponseWriter, r *http.Request) {
	h.getTask(w, r, domain.TaskTypeEmbedding)
}

// GetRerank handles GET /api/v1/rerank/{taskID}.
func (h *TaskHandler) GetRerank(w http.ResponseWriter, r *http.Request) {
	h.getTask(w, r, domain.TaskTypeRerank)
}

// QueueStatus handles GET /api/v1/queue/status.
func (h *TaskHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status := h.tasks.QueueStatus()
	metrics.SetQueueStatus(status)
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

func (h *TaskHandler) submit(w http.ResponseWriter, r *http.Request, taskType domain.TaskType, handle string, fields store.Fields) {
	taskID, err := h.tasks.Submit(r.Context(), taskType, handle, fields)
	if err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			shared.RespondWithError(w, r, http.StatusServiceUnavailable, "task queue is full")
			return
		}
		h.logger.Error("task admission failed", "type", taskType, "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to admit task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitResponse{
		TaskID: taskID,
		Status: string(domain.TaskStatusPending),
	})
}

func (h *TaskHandler) getTask(w http.ResponseWriter, r *http.Request, taskType domain.TaskType) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "task id is required")
		return
	}

	record, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error("task lookup failed", "task_id", taskID, "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to load task")
		return
	}
	if record.Type != taskType {
		// The record exists under a different resource path.
		shared.RespondWithError(w, r, http.StatusNotFound, "task not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, record)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
