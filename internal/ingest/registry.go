package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ClauseScanner/internal/domain"
)

// Extractor turns the raw bytes of one document format into plain text.
type Extractor interface {
	Format() string
	Extract(ctx context.Context, content []byte) (string, error)
}

// Registry keeps a mapping from format names to their extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: map[string]Extractor{}}
}

// Register adds or replaces an extractor implementation.
func (r *Registry) Register(extractor Extractor) {
	if r.extractors == nil {
		r.extractors = map[string]Extractor{}
	}
	r.extractors[extractor.Format()] = extractor
}

// Resolve returns an extractor by format or ErrUnsupportedFormat if it is absent.
func (r *Registry) Resolve(format string) (Extractor, error) {
	if extractor, ok := r.extractors[format]; ok {
		return extractor, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
}

// FormatFromName infers a format from a file name extension; unknown extensions yield "".
func FormatFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".md":
		return "text"
	case ".html", ".htm", ".xhtml":
		return "html"
	default:
		return ""
	}
}
