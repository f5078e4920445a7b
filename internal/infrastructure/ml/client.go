package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ports"
)

// Client talks to a self-hosted embedding service (e.g., a sentence-transformers server).
type Client struct {
	endpoint  string
	apiKey    string
	batchSize int
	http      *http.Client
}

var _ ports.EmbeddingProvider = (*Client)(nil)

// NewClient creates a reusable HTTP client; batchSize <= 0 sends everything in one request.
func NewClient(endpoint, apiKey string, batchSize int) *Client {
	return &Client{
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		apiKey:    apiKey,
		batchSize: batchSize,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Model   string      `json:"model"`
	Vectors [][]float32 `json:"vectors"`
	Dim     int         `json:"dim"`
}

// Embed posts texts to /embed in batches and returns one vector per text, in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range batches(texts, c.batchSize) {
		var resp embedResponse
		if err := c.post(ctx, "/embed", embedRequest{Texts: batch}, &resp); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		if len(resp.Vectors) != len(batch) {
			return nil, fmt.Errorf("%w: service returned %d vectors for %d texts", domain.ErrEmbedding, len(resp.Vectors), len(batch))
		}
		out = append(out, resp.Vectors...)
	}

	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}

func batches(texts []string, size int) [][]string {
	if size <= 0 || size >= len(texts) {
		return [][]string{texts}
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		out = append(out, texts[start:end])
	}
	return out
}
