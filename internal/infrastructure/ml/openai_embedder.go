package ml

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ports"
)

// OpenAIEmbedder implements ports.EmbeddingProvider against OpenAI-compatible /embeddings APIs.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
}

var _ ports.EmbeddingProvider = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds an embedder; an empty baseURL keeps the library default.
func NewOpenAIEmbedder(baseURL, apiKey, model string, batchSize int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     openai.EmbeddingModel(model),
		batchSize: batchSize,
	}
}

// Embed requests vectors batch by batch; results are placed by their reported index.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, e.batchSize) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: e.model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create embeddings: %w", domain.ErrEmbedding, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: api returned %d embeddings for %d texts", domain.ErrEmbedding, len(resp.Data), len(batch))
		}

		vecs := make([][]float32, len(batch))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(batch) || vecs[item.Index] != nil {
				return nil, fmt.Errorf("%w: unexpected embedding index %d", domain.ErrEmbedding, item.Index)
			}
			vecs[item.Index] = item.Embedding
		}
		out = append(out, vecs...)
	}

	return out, nil
}
