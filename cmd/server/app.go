package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nexusdata/nexusdata/internal/api"
	"github.com/nexusdata/nexusdata/internal/config"
	"github.com/nexusdata/nexusdata/internal/mask"
	"github.com/nexusdata/nexusdata/internal/platform/filestore"
	"github.com/nexusdata/nexusdata/internal/platform/gemini"
	"github.com/nexusdata/nexusdata/internal/platform/postgres"
	"github.com/nexusdata/nexusdata/internal/platform/redisstore"
	"github.com/nexusdata/nexusdata/internal/queue"
	"github.com/nexusdata/nexusdata/internal/service"
	"github.com/nexusdata/nexusdata/internal/store"
	"github.com/nexusdata/nexusdata/internal/worker"
)

// application bundles every constructed dependency of the process. All
// wiring happens in newApplication; nothing holds package-level state.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	store      store.TaskStore
	queue      *queue.AdmissionQueue
	dispatcher *worker.Dispatcher
	sweeper    *worker.Sweeper
	tasks      *api.TaskHandler
	ocr        *api.OCRHandler
	cleanup    func()
}

// newApplication builds the full dependency graph from configuration.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	taskStore, cleanup, err := newTaskStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var llm *gemini.Client
	if cfg.LLM.Enabled() {
		llm, err = gemini.New(ctx, cfg.LLM, logger)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
	} else {
		logger.Warn("no gemini API key configured, similarity resolution, extraction, embedding and OCR are disabled")
	}

	q := queue.New(cfg.Queue.Capacity, logger)
	taskService := service.NewTaskService(taskStore, q, logger)

	// The nil interfaces degrade gracefully: the mask engine falls back
	// to its fixed schema, embedding and rerank tasks fail with a clear
	// error.
	var (
		classifier mask.TypeClassifier
		extractor  mask.Extractor
		embedder   service.Embedder = unavailableEmbedder{}
		recognizer api.Recognizer   = unavailableRecognizer{}
	)
	if llm != nil {
		classifier = mask.NewEmbeddingClassifier(llm, mask.FixedTypeLabels(), logger)
		extractor = llm
		embedder = llm
		recognizer = llm
	}

	engine := mask.NewEngine(classifier, extractor, cfg.Mask.AESPassphrase, logger)
	embeddings := service.NewEmbeddingService(embedder, logger)
	reranker := service.NewRerankService(embedder, logger)

	finalizer := worker.NewFinalizer(taskStore, time.Duration(cfg.Callback.TimeoutSeconds)*time.Second, logger)
	handlers := worker.NewHandlers(taskStore, engine, embeddings, reranker, finalizer, logger)
	dispatcher := worker.NewDispatcher(q, handlers, time.Duration(cfg.Queue.PollIntervalSeconds)*time.Second, logger)
	sweeper := worker.NewSweeper(
		taskStore,
		time.Duration(cfg.Retention.MaxAgeHours)*time.Hour,
		time.Duration(cfg.Retention.SweepIntervalMinutes)*time.Minute,
		logger,
	)

	return &application{
		config:     cfg,
		logger:     logger,
		store:      taskStore,
		queue:      q,
		dispatcher: dispatcher,
		sweeper:    sweeper,
		tasks:      api.NewTaskHandler(taskService, logger),
		ocr:        api.NewOCRHandler(recognizer, logger),
		cleanup:    cleanup,
	}, nil
}

// newTaskStore selects the record store backend from configuration.
func newTaskStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.TaskStore, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case "memory":
		logger.Info("using in-memory task store")
		return store.NewMemoryTaskStore(), noop, nil
	case "file":
		s, err := filestore.New(cfg.Store.File.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open file store: %w", err)
		}
		logger.Info("using file task store", "dir", cfg.Store.File.Dir)
		return s, noop, nil
	case "redis":
		s, err := redisstore.New(redisstore.Config{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("using redis task store", "addr", cfg.Store.Redis.Addr)
		return s, noop, nil
	case "postgres":
		s, err := postgres.New(ctx, cfg.Store.Postgres.URL, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("failed to close postgres pool", "error", err)
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// unavailableEmbedder stands in when no model client is configured.
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, fmt.Errorf("no model client configured")
}

type unavailableRecognizer struct{}

func (unavailableRecognizer) RecognizeText(context.Context, string, []byte) (string, error) {
	return "", fmt.Errorf("no model client configured")
}
