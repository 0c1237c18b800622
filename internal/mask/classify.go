package mask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// Embedder produces a vector representation of a short text. Satisfied by
// the Gemini platform client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// TypeClassifier resolves a caller-supplied type label to the canonical
// schema label it most closely means.
type TypeClassifier interface {
	Classify(ctx context.Context, label string) (canonical string, similarity float64, err error)
}

// ErrNoCatalog is returned when a classifier has no labels to resolve
// against.
var ErrNoCatalog = errors.New("type classifier has no catalog labels")

// EmbeddingClassifier resolves labels by cosine similarity between the
// label's embedding and precomputed embeddings of the catalog labels.
// Catalog embeddings are computed lazily on first use and retried on the
// next call if the warm-up fails.
type EmbeddingClassifier struct {
	embedder Embedder
	labels   []string
	logger   *slog.Logger

	mu      sync.Mutex
	vectors [][]float64
}

// NewEmbeddingClassifier creates a classifier over the given catalog. The
// catalog order is the tie-break order: on an exact similarity tie the
// earlier label wins.
func NewEmbeddingClassifier(embedder Embedder, labels []string, logger *slog.Logger) *EmbeddingClassifier {
	return &EmbeddingClassifier{
		embedder: embedder,
		labels:   labels,
		logger:   logger,
	}
}

// Classify returns the catalog label nearest to the supplied label. Exact
// catalog matches short-circuit without touching the embedder.
func (c *EmbeddingClassifier) Classify(ctx context.Context, label string) (string, float64, error) {
	if len(c.labels) == 0 {
		return "", 0, ErrNoCatalog
	}

	for _, known := range c.labels {
		if known == label {
			return known, 1, nil
		}
	}

	catalog, err := c.catalogVectors(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to embed catalog labels: %w", err)
	}

	vec, err := c.embedder.Embed(ctx, label)
	if err != nil {
		return "", 0, fmt.Errorf("failed to embed label %q: %w", label, err)
	}

	best := 0
	bestScore := math.Inf(-1)
	for i, candidate := range catalog {
		score := Cosine(vec, candidate)
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	c.logger.Debug("resolved type label by similarity",
		"label", label,
		"canonical", c.labels[best],
		"similarity", bestScore)
	return c.labels[best], bestScore, nil
}

// catalogVectors returns the catalog embeddings, computing them under the
// lock on first use. A failed warm-up leaves vectors nil so the next call
// tries again instead of pinning the error for the process lifetime.
func (c *EmbeddingClassifier) catalogVectors(ctx context.Context) ([][]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vectors != nil {
		return c.vectors, nil
	}

	vectors := make([][]float64, len(c.labels))
	for i, label := range c.labels {
		vec, err := c.embedder.Embed(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", label, err)
		}
		vectors[i] = vec
	}
	c.vectors = vectors
	return vectors, nil
}

// Cosine computes cosine similarity between two vectors. Mismatched or
// zero-length vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
