// Package gemini wraps the Google Gemini API behind the small interfaces
// the domain layer consumes: text embedding, schema-driven entity
// extraction and image text recognition.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/nexusdata/nexusdata/internal/config"
)

var (
	// ErrInvalidConfig is returned when the client cannot be constructed
	// from the supplied configuration.
	ErrInvalidConfig = errors.New("invalid gemini configuration")
	// ErrInvalidResponse is returned when the API answers with something
	// the caller cannot use.
	ErrInvalidResponse = errors.New("invalid gemini response")
)

// Client talks to the Gemini API. It satisfies mask.Embedder,
// mask.Extractor, service.Embedder and the OCR dependency of the API
// layer.
type Client struct {
	client         *genai.Client
	model          string
	embeddingModel string
	logger         *slog.Logger
}

// New creates a Client from the LLM configuration.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model cannot be empty", ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create client: %v", ErrInvalidConfig, err)
	}

	return &Client{
		client:         client,
		model:          cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		logger:         logger,
	}, nil
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrInvalidResponse)
	}

	vector := make([]float64, len(res.Embeddings[0].Values))
	for i, v := range res.Embeddings[0].Values {
		vector[i] = float64(v)
	}
	return vector, nil
}

const extractPromptFormat = `从下面的文本中抽取指定类型的实体。
实体类型: %s
文本:
%s

只输出一个JSON对象，键为实体类型，值为文本中出现的实体原文数组。没有匹配的类型请省略。不要输出其他内容。`

// Extract asks the model for entity surface matches per requested label.
// The model's answer is parsed as a JSON object of label to matches.
func (c *Client) Extract(ctx context.Context, text string, labels []string) (map[string][]string, error) {
	prompt := fmt.Sprintf(extractPromptFormat, strings.Join(labels, "、"), text)

	raw, err := c.generateText(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	var entities map[string][]string
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &entities); err != nil {
		return nil, fmt.Errorf("%w: failed to parse extraction output: %v", ErrInvalidResponse, err)
	}

	// Models occasionally hallucinate matches; keep only literal
	// substrings of the input.
	for label, values := range entities {
		kept := values[:0]
		for _, v := range values {
			if v != "" && strings.Contains(text, v) {
				kept = append(kept, v)
			}
		}
		entities[label] = kept
	}
	return entities, nil
}

const ocrPrompt = `识别图片中的全部文字，按原始阅读顺序输出纯文本，不要解释。`

// RecognizeText performs OCR over one image.
func (c *Client) RecognizeText(ctx context.Context, mimeType string, image []byte) (string, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			{Text: ocrPrompt},
		},
	}}
	text, err := c.generateText(ctx, contents)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) generateText(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", ErrInvalidResponse)
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", ErrInvalidResponse)
	}
	return text, nil
}

// stripCodeFence removes a markdown code fence the model sometimes wraps
// JSON output in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
