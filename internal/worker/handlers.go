package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nexusdata/nexusdata/internal/domain"
	"github.com/nexusdata/nexusdata/internal/mask"
	"github.com/nexusdata/nexusdata/internal/service"
	"github.com/nexusdata/nexusdata/internal/store"
)

// Handlers routes dequeued entries to the domain service matching their
// type. Every path through Handle ends in a Finalize call or a logged
// no-op; errors never propagate to the dispatcher.
type Handlers struct {
	store      store.TaskStore
	masker     *mask.Engine
	embeddings *service.EmbeddingService
	reranker   *service.RerankService
	finalizer  *Finalizer
	logger     *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	taskStore store.TaskStore,
	masker *mask.Engine,
	embeddings *service.EmbeddingService,
	reranker *service.RerankService,
	finalizer *Finalizer,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		store:      taskStore,
		masker:     masker,
		embeddings: embeddings,
		reranker:   reranker,
		finalizer:  finalizer,
		logger:     logger,
	}
}

// Handle executes one task end to end: load, mark processing, invoke the
// domain service, finalize. A missing record is a no-op because only a
// purge can remove a record between admission and dispatch.
func (h *Handlers) Handle(ctx context.Context, entry domain.QueueEntry) {
	record, err := h.store.Get(ctx, entry.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.logger.Warn("task record missing at dispatch, skipping",
				"task_id", entry.TaskID, "type", entry.Type)
			return
		}
		h.logger.Error("failed to load task record", "task_id", entry.TaskID, "error", err)
		return
	}

	if err := h.store.Update(ctx, entry.TaskID, store.Fields{store.KeyStatus: domain.TaskStatusProcessing}); err != nil {
		h.logger.Error("failed to mark task processing", "task_id", entry.TaskID, "error", err)
		return
	}

	var result store.Fields
	switch entry.Type {
	case domain.TaskTypeMask:
		result, err = h.runMask(ctx, record)
	case domain.TaskTypeEmbedding:
		result, err = h.runEmbedding(ctx, record)
	case domain.TaskTypeRerank:
		result, err = h.runRerank(ctx, record)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrInvalidTaskType, entry.Type)
	}

	if err != nil {
		h.logger.Warn("task failed", "task_id", entry.TaskID, "type", entry.Type, "error", err)
		h.finalizer.Finalize(ctx, record, domain.TaskStatusFailed, store.Fields{"error": err.Error()})
		return
	}
	h.finalizer.Finalize(ctx, record, domain.TaskStatusCompleted, result)
}

func (h *Handlers) runMask(ctx context.Context, record *store.Record) (store.Fields, error) {
	req := mask.Request{
		Text:         stringField(record.Fields, "text"),
		Strategy:     domain.MaskStrategy(stringField(record.Fields, "strategy")),
		Schema:       stringSlice(record.Fields, "schema"),
		ForceConvert: forcePairs(record.Fields, "force_convert"),
	}

	res, err := h.masker.Mask(ctx, req)
	if err != nil {
		return nil, err
	}

	fields := store.Fields{
		"masked_text": res.MaskedText,
		"mapping":     res.Mapping,
		"entities":    res.Entities,
	}
	if len(res.Resolutions) > 0 {
		fields["resolutions"] = res.Resolutions
	}
	return fields, nil
}

func (h *Handlers) runEmbedding(ctx context.Context, record *store.Record) (store.Fields, error) {
	vector, err := h.embeddings.GenerateEmbedding(ctx, stringField(record.Fields, "text"))
	if err != nil {
		return nil, err
	}
	return store.Fields{"embedding": vector}, nil
}

func (h *Handlers) runRerank(ctx context.Context, record *store.Record) (store.Fields, error) {
	rankings, err := h.reranker.Rerank(ctx,
		stringField(record.Fields, "query"),
		stringSlice(record.Fields, "texts"),
		intField(record.Fields, "top_k"),
	)
	if err != nil {
		return nil, err
	}
	return store.Fields{"rankings": rankings}, nil
}

// Field coercion. Records round-trip through JSON, so slices arrive as
// []any and numbers as float64.

func stringField(fields store.Fields, key string) string {
	s, _ := fields[key].(string)
	return s
}

func intField(fields store.Fields, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func stringSlice(fields store.Fields, key string) []string {
	switch v := fields[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func forcePairs(fields store.Fields, key string) []domain.ForceConvertPair {
	var pairs []domain.ForceConvertPair
	switch v := fields[key].(type) {
	case []domain.ForceConvertPair:
		return v
	case map[string]string:
		for original, target := range v {
			pairs = append(pairs, domain.ForceConvertPair{Original: original, Target: target})
		}
	case map[string]any:
		for original, target := range v {
			if t, ok := target.(string); ok {
				pairs = append(pairs, domain.ForceConvertPair{Original: original, Target: t})
			}
		}
	case []any:
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			original, _ := m["original"].(string)
			target, _ := m["target"].(string)
			if original != "" {
				pairs = append(pairs, domain.ForceConvertPair{Original: original, Target: target})
			}
		}
	}
	return pairs
}
