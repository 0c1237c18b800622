package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nexusdata/nexusdata/internal/mask"
)

// Ranking is one scored candidate in a rerank result, ordered best first.
type Ranking struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// RerankService orders candidate texts by semantic relevance to a query,
// scoring each candidate by cosine similarity of embeddings.
type RerankService struct {
	embedder Embedder
	logger   *slog.Logger
}

// NewRerankService creates a RerankService.
func NewRerankService(embedder Embedder, logger *slog.Logger) *RerankService {
	return &RerankService{embedder: embedder, logger: logger}
}

// Rerank scores texts against query and returns the top topK rankings in
// descending score order. An empty candidate list yields an empty result,
// not an error. topK values outside [1, len(texts)] are clamped.
func (s *RerankService) Rerank(ctx context.Context, query string, texts []string, topK int) ([]Ranking, error) {
	if query == "" {
		return nil, ErrEmptyText
	}
	if len(texts) == 0 {
		return []Ranking{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rankings := make([]Ranking, len(texts))
	for i, text := range texts {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed candidate %d: %w", i, err)
		}
		rankings[i] = Ranking{Index: i, Text: text, Score: mask.Cosine(queryVec, vec)}
	}

	// Stable sort keeps the original order for equal scores.
	sort.SliceStable(rankings, func(i, j int) bool { return rankings[i].Score > rankings[j].Score })

	if topK < 1 || topK > len(rankings) {
		topK = len(rankings)
	}
	s.logger.Debug("reranked candidates", "candidates", len(texts), "returned", topK)
	return rankings[:topK], nil
}
