package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ClauseScanner/internal/ingest"
)

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, td, th, blockquote, pre"

// HTMLExtractor pulls readable clause text out of HTML contracts.
type HTMLExtractor struct{}

var _ ingest.Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor builds the extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Format identifies the extractor inside the registry.
func (h *HTMLExtractor) Format() string {
	return "html"
}

// Extract returns one paragraph per outermost block element, separated by blank lines so the
// splitter prefers paragraph boundaries. Documents without block elements fall back to body text.
func (h *HTMLExtractor) Extract(ctx context.Context, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	doc.Find("script, style, noscript, head").Remove()

	var paragraphs []string
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		if sel.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		if text := collapseSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return collapseSpace(doc.Find("body").Text()), nil
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
