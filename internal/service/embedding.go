package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Embedder turns text into a vector. Satisfied by the Gemini platform
// client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ErrEmptyText is returned when an embedding is requested for blank input.
var ErrEmptyText = errors.New("text must not be empty")

// EmbeddingService wraps the model client with input validation.
type EmbeddingService struct {
	embedder Embedder
	logger   *slog.Logger
}

// NewEmbeddingService creates an EmbeddingService.
func NewEmbeddingService(embedder Embedder, logger *slog.Logger) *EmbeddingService {
	return &EmbeddingService{embedder: embedder, logger: logger}
}

// GenerateEmbedding returns the vector for one text.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	s.logger.Debug("generated embedding", "dimensions", len(vector))
	return vector, nil
}
