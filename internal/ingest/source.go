package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ports"
)

// Splitter chunks plain text; langchaingo text splitters satisfy it.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// Source implements ports.SegmentSource via registered extractors and a splitter.
type Source struct {
	registry *Registry
	splitter Splitter
	minLen   int
	logger   *slog.Logger
}

var _ ports.SegmentSource = (*Source)(nil)

// NewSource wires the extractor registry with a splitter. Chunks of minLen runes or fewer
// are dropped.
func NewSource(reg *Registry, splitter Splitter, minLen int, log *slog.Logger) *Source {
	return &Source{
		registry: reg,
		splitter: splitter,
		minLen:   minLen,
		logger:   log,
	}
}

// Segments extracts text from doc and splits it into ordered segments with ids chunk_<i>,
// where i is the position of the chunk before short chunks are discarded.
func (s *Source) Segments(ctx context.Context, doc domain.Document) ([]domain.Segment, error) {
	if s.registry == nil || s.splitter == nil {
		return nil, fmt.Errorf("segment source is not configured")
	}

	format := doc.Format
	if format == "" {
		format = FormatFromName(doc.Name)
	}

	extractor, err := s.registry.Resolve(format)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.Name, err)
	}

	text, err := extractor.Extract(ctx, doc.Content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.Name, err)
	}
	if strings.TrimSpace(text) == "" {
		s.debug("no text extracted", "document", doc.Name, "format", format)
		return []domain.Segment{}, nil
	}

	chunks, err := s.splitter.SplitText(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", doc.Name, err)
	}

	segments := make([]domain.Segment, 0, len(chunks))
	for i, chunk := range chunks {
		if utf8.RuneCountInString(chunk) <= s.minLen {
			continue
		}
		segments = append(segments, domain.Segment{
			ID:       fmt.Sprintf("chunk_%d", i),
			Text:     chunk,
			Metadata: map[string]string{"source_type": "contract_" + format},
		})
	}

	s.debug("document segmented", "document", doc.Name, "format", format, "chunks", len(chunks), "segments", len(segments))
	return segments, nil
}

func (s *Source) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
