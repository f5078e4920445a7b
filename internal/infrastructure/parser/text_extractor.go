package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"ClauseScanner/internal/ingest"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor accepts UTF-8 plain-text contracts.
type TextExtractor struct{}

var _ ingest.Extractor = (*TextExtractor)(nil)

// NewTextExtractor builds the extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Format identifies the extractor inside the registry.
func (t *TextExtractor) Format() string {
	return "text"
}

// Extract strips a byte-order mark and normalizes line endings.
func (t *TextExtractor) Extract(ctx context.Context, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
