package ports

import (
	"context"

	"ClauseScanner/internal/domain"
)

// SegmentSource turns a raw contract into ordered text segments.
type SegmentSource interface {
	Segments(ctx context.Context, doc domain.Document) ([]domain.Segment, error)
}

// EmbeddingProvider maps texts to fixed-dimension vectors, one per input, in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// RewriteGenerator produces a candidate rewrite of a risky clause (e.g., via an LLM).
type RewriteGenerator interface {
	Rewrite(ctx context.Context, clause, category string) (string, error)
}

// ReportRepository persists analysis reports for audit and later lookup.
type ReportRepository interface {
	SaveReport(ctx context.Context, report domain.Report) error
	GetReport(ctx context.Context, id string) (domain.Report, error)
	ReportsByCategory(ctx context.Context, category string, limit uint64) ([]string, error)
}

// Recorder receives analysis telemetry (Prometheus, etc.).
type Recorder interface {
	ObserveAnalysis(status domain.ReportStatus)
	ObserveMatch(category string, action domain.Action)
	ObserveRewrite(outcome domain.RewriteOutcome)
	ObserveDetection(seconds float64)
}
