package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ClauseScanner/internal/config"
	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ports"
)

const systemPrompt = "You are a helpful legal assistant."

const rewritePrompt = `You are a senior legal expert.
You are rewriting a contract clause for clarity ONLY.

STRICT RULES:
- Do NOT add new legal concepts
- Do NOT add liability caps, damages, numbers, or exclusions
- Do NOT remove or limit existing rights
- Do NOT introduce new obligations
- Preserve the original legal meaning
- Do NOT add conversational filler (e.g., "Here is the rewrite").
- Output ONLY the rewritten clause text.

TASK:
Rewrite the clause below to be clearer and more balanced in wording ONLY.
The clause was flagged for: %s

Clause:
%s`

// Rewriter implements ports.RewriteGenerator backed by OpenAI-compatible chat APIs
// (OpenRouter by default).
type Rewriter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

var _ ports.RewriteGenerator = (*Rewriter)(nil)

// NewRewriter builds a client from configuration.
func NewRewriter(cfg config.RewriteConfig) *Rewriter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Rewriter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Rewrite asks the model for a clarity-only rewrite of clause. Any failure, including an empty
// completion, is reported as domain.ErrGeneration.
func (r *Rewriter) Rewrite(ctx context.Context, clause, category string) (string, error) {
	if r == nil || r.client == nil {
		return "", fmt.Errorf("%w: rewriter is nil", domain.ErrGeneration)
	}
	if r.model == "" {
		return "", fmt.Errorf("%w: rewriter misconfigured", domain.ErrGeneration)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(rewritePrompt, category, clause)},
		},
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: api error %d: %s", domain.ErrGeneration, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrGeneration)
	}

	text := CleanCompletion(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGeneration)
	}
	return text, nil
}

// CleanCompletion trims whitespace, surrounding code fences and wrapping quotes.
func CleanCompletion(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "```") && !strings.Contains(text, "\n"):
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```"))
	case strings.HasPrefix(text, "```"):
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
			lines = lines[:n-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}
