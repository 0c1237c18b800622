// Package main implements the entry point for the nexusdata server,
// which exposes asynchronous text-processing tasks (PII masking,
// embedding, reranking) and synchronous OCR behind an HTTP API.
package main

import (
	"context"
	"log"

	"github.com/nexusdata/nexusdata/internal/config"
	"github.com/nexusdata/nexusdata/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store_driver", cfg.Store.Driver,
		"queue_capacity", cfg.Queue.Capacity,
		"llm_enabled", cfg.LLM.Enabled())

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.run(ctx); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
