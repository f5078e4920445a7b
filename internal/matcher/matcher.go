package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"ClauseScanner/internal/catalogue"
	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ports"
)

// DefaultThreshold is the operational similarity cutoff.
const DefaultThreshold = 0.75

// Matcher scores segments against a risk catalogue using an injected embedding provider.
// It holds no per-request state and is safe for concurrent use.
type Matcher struct {
	embedder ports.EmbeddingProvider
	logger   *slog.Logger
}

// New wires the embedding provider; logger may be nil.
func New(embedder ports.EmbeddingProvider, logger *slog.Logger) *Matcher {
	return &Matcher{embedder: embedder, logger: logger}
}

type scored struct {
	match   domain.Match
	riskIdx int
	segIdx  int
}

// Detect returns every (risk, segment) pair whose cosine similarity is at least threshold,
// sorted by score descending, then catalogue order, then segment order.
// Empty segments or an empty catalogue produce an empty result without embedding calls.
func (m *Matcher) Detect(ctx context.Context, segments []domain.Segment, cat *catalogue.Catalogue, threshold float64) ([]domain.Match, error) {
	if len(segments) == 0 || cat.Len() == 0 {
		return []domain.Match{}, nil
	}
	if m.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbedding)
	}
	threshold = clampThreshold(threshold)

	defs := cat.Definitions()
	hypotheses := make([]string, len(defs))
	for i, def := range defs {
		hypotheses[i] = def.Hypothesis
	}
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	var riskVecs, segVecs [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecs, err := m.embed(gctx, "risk definitions", hypotheses)
		riskVecs = vecs
		return err
	})
	g.Go(func() error {
		vecs, err := m.embed(gctx, "segments", texts)
		segVecs = vecs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := sameDimension(riskVecs, segVecs); err != nil {
		return nil, err
	}

	sims := Matrix(riskVecs, segVecs)

	var hits []scored
	for r, def := range defs {
		for s, seg := range segments {
			if sims[r][s] < threshold {
				continue
			}
			score := clampScore(sims[r][s])
			hits = append(hits, scored{
				match: domain.Match{
					RiskCategory:    def.Category,
					RiskDefinition:  def.Hypothesis,
					SegmentID:       seg.ID,
					SegmentText:     seg.Text,
					SimilarityScore: score,
				},
				riskIdx: r,
				segIdx:  s,
			})
		}
	}

	slices.SortFunc(hits, func(a, b scored) int {
		switch {
		case a.match.SimilarityScore > b.match.SimilarityScore:
			return -1
		case a.match.SimilarityScore < b.match.SimilarityScore:
			return 1
		case a.riskIdx != b.riskIdx:
			return a.riskIdx - b.riskIdx
		default:
			return a.segIdx - b.segIdx
		}
	})

	matches := make([]domain.Match, len(hits))
	for i, h := range hits {
		matches[i] = h.match
	}

	m.debug("detection done", "risks", len(defs), "segments", len(segments), "threshold", threshold, "matches", len(matches))
	return matches, nil
}

func (m *Matcher) embed(ctx context.Context, what string, texts []string) ([][]float32, error) {
	vecs, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, fmt.Errorf("embed %s: %w", what, err)
		}
		return nil, fmt.Errorf("%w: embed %s: %w", domain.ErrEmbedding, what, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: embed %s: got %d vectors for %d inputs", domain.ErrEmbedding, what, len(vecs), len(texts))
	}
	return vecs, nil
}

func sameDimension(groups ...[][]float32) error {
	dim := -1
	for _, vecs := range groups {
		for _, v := range vecs {
			if len(v) == 0 {
				return fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
			}
			if dim == -1 {
				dim = len(v)
				continue
			}
			if len(v) != dim {
				return fmt.Errorf("%w: inconsistent dimensions %d and %d", domain.ErrEmbedding, dim, len(v))
			}
		}
	}
	return nil
}

func clampThreshold(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Rounding can push identical vectors marginally past 1.
func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	return s
}

func (m *Matcher) debug(msg string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
