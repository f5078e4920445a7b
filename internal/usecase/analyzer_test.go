package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClauseScanner/internal/catalogue"
	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/matcher"
)

const (
	terminationHypothesis = "Either party may terminate this agreement at any time without notice."
	liabilityHypothesis   = "The supplier's liability under this agreement is unlimited."
	terminationClause     = "Either party may end this agreement whenever it wishes."
	liabilityClause       = "The Supplier accepts unlimited liability for all losses."
)

// identityEmbedder returns identical vectors for identical strings and orthogonal ones otherwise.
// Clauses listed in aliases embed like their hypothesis.
type identityEmbedder struct {
	mu      sync.Mutex
	aliases map[string]string
	axes    map[string]int
	err     error
}

func (e *identityEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.axes == nil {
		e.axes = map[string]int{}
	}

	const dim = 16
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if alias, ok := e.aliases[text]; ok {
			text = alias
		}
		axis, ok := e.axes[text]
		if !ok {
			axis = len(e.axes) % dim
			e.axes[text] = axis
		}
		v := make([]float32, dim)
		v[axis] = 1
		out[i] = v
	}
	return out, nil
}

type stubGenerator struct {
	mu    sync.Mutex
	calls []string
	text  string
	err   error
}

func (g *stubGenerator) Rewrite(_ context.Context, clause, category string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, category+"|"+clause)
	return g.text, g.err
}

type memoryRepository struct {
	saved []domain.Report
	err   error
}

func (r *memoryRepository) SaveReport(_ context.Context, report domain.Report) error {
	r.saved = append(r.saved, report)
	return r.err
}

func (r *memoryRepository) GetReport(context.Context, string) (domain.Report, error) {
	return domain.Report{}, domain.ErrReportNotFound
}

func (r *memoryRepository) ReportsByCategory(context.Context, string, uint64) ([]string, error) {
	return nil, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	analyses map[domain.ReportStatus]int
	rewrites map[domain.RewriteOutcome]int
	matches  int
	timings  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		analyses: map[domain.ReportStatus]int{},
		rewrites: map[domain.RewriteOutcome]int{},
	}
}

func (r *countingRecorder) ObserveAnalysis(status domain.ReportStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses[status]++
}

func (r *countingRecorder) ObserveMatch(string, domain.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches++
}

func (r *countingRecorder) ObserveRewrite(outcome domain.RewriteOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewrites[outcome]++
}

func (r *countingRecorder) ObserveDetection(float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings++
}

type fixture struct {
	analyzer  *Analyzer
	generator *stubGenerator
	repo      *memoryRepository
	recorder  *countingRecorder
	embedder  *identityEmbedder
}

func newFixture(generator *stubGenerator) *fixture {
	emb := &identityEmbedder{aliases: map[string]string{
		terminationClause: terminationHypothesis,
		liabilityClause:   liabilityHypothesis,
	}}
	cat := catalogue.New(
		domain.RiskDefinition{Category: "Ambiguous Termination", Hypothesis: terminationHypothesis},
		domain.RiskDefinition{Category: "Uncapped Liability", Hypothesis: liabilityHypothesis},
	)
	f := &fixture{
		generator: generator,
		repo:      &memoryRepository{},
		recorder:  newCountingRecorder(),
		embedder:  emb,
	}
	deps := AnalyzerDeps{
		Catalogue:  cat,
		Matcher:    matcher.New(emb, nil),
		Repository: f.repo,
		Recorder:   f.recorder,
		Threshold:  0.75,
		Now:        func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	if generator != nil {
		deps.Generator = generator
	}
	f.analyzer = NewAnalyzer(deps)
	return f
}

func twoSegments() []domain.Segment {
	return []domain.Segment{
		{ID: "chunk_0", Text: terminationClause},
		{ID: "chunk_1", Text: liabilityClause},
	}
}

func TestAnalyzeSegmentsEndToEnd(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{text: "Either party may terminate this agreement by giving thirty days' written notice."}
	f := newFixture(gen)

	report, err := f.analyzer.AnalyzeSegments(context.Background(), "nda.txt", twoSegments())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, 2, report.NumChunks)
	require.Equal(t, 2, report.NumRisks)
	require.Len(t, report.Risks, 2)

	termination := report.Risks[0]
	assert.Equal(t, "Ambiguous Termination", termination.RiskCategory)
	assert.InDelta(t, 1.0, termination.SimilarityScore, 1e-9)
	assert.Equal(t, domain.ActionRewrite, termination.Action)
	assert.Equal(t, gen.text, termination.SuggestedClause)
	require.NotNil(t, termination.Rewrite)
	assert.True(t, termination.Rewrite.IsValidated)

	liability := report.Risks[1]
	assert.Equal(t, "Uncapped Liability", liability.RiskCategory)
	assert.InDelta(t, 1.0, liability.SimilarityScore, 1e-9)
	assert.Equal(t, domain.ActionReviewOnly, liability.Action)
	assert.Equal(t, ReviewOnlyMessage, liability.SuggestedClause)
	assert.Nil(t, liability.Rewrite)

	assert.Equal(t, []string{"Ambiguous Termination|" + terminationClause}, gen.calls)

	require.Len(t, f.repo.saved, 1)
	assert.Equal(t, report.ID, f.repo.saved[0].ID)
	assert.Equal(t, 1, f.recorder.analyses[domain.StatusSuccess])
	assert.Equal(t, 1, f.recorder.rewrites[domain.RewriteValidated])
	assert.Equal(t, 2, f.recorder.matches)
	assert.Equal(t, 1, f.recorder.timings)
}

func TestAnalyzeSegmentsRejectedRewrite(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{text: "Either party may terminate; in no event shall the Supplier owe more than $100."}
	f := newFixture(gen)

	report, err := f.analyzer.AnalyzeSegments(context.Background(), "nda.txt", twoSegments())
	require.NoError(t, err)
	require.Len(t, report.Risks, 2)

	rewritten := report.Risks[0]
	assert.Equal(t, domain.ActionRewrite, rewritten.Action)
	assert.Equal(t, RejectedRewriteMessage, rewritten.SuggestedClause)
	require.NotNil(t, rewritten.Rewrite)
	assert.False(t, rewritten.Rewrite.IsValidated)
	assert.Equal(t, gen.text, rewritten.Rewrite.SuggestedText)
	assert.Equal(t, 1, f.recorder.rewrites[domain.RewriteRejected])
}

func TestAnalyzeSegmentsGenerationFailure(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("upstream timeout")}
	f := newFixture(gen)

	report, err := f.analyzer.AnalyzeSegments(context.Background(), "nda.txt", twoSegments())
	require.NoError(t, err)
	require.Len(t, report.Risks, 2)

	assert.Equal(t, domain.ActionRewrite, report.Risks[0].Action)
	assert.Equal(t, GenerationFailedMessage, report.Risks[0].SuggestedClause)
	assert.Nil(t, report.Risks[0].Rewrite)
	assert.Equal(t, 1, f.recorder.rewrites[domain.RewriteGenerationFailed])
}

func TestAnalyzeSegmentsWithoutGenerator(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)

	report, err := f.analyzer.AnalyzeSegments(context.Background(), "nda.txt", twoSegments())
	require.NoError(t, err)
	require.Len(t, report.Risks, 2)
	assert.Equal(t, GenerationFailedMessage, report.Risks[0].SuggestedClause)
}

func TestAnalyzeSegmentsNoSegments(t *testing.T) {
	t.Parallel()

	f := newFixture(&stubGenerator{})

	report, err := f.analyzer.AnalyzeSegments(context.Background(), "blank.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, NoTextMessage, report.Message)
	assert.Empty(t, report.Risks)
	assert.NotNil(t, report.Risks)
	assert.Zero(t, report.NumRisks)
	assert.Len(t, f.repo.saved, 1)
}

func TestAnalyzeSegmentsEmbeddingFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(&stubGenerator{})
	f.embedder.err = errors.New("embedding service down")

	_, err := f.analyzer.AnalyzeSegments(context.Background(), "nda.txt", twoSegments())
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Empty(t, f.repo.saved)
	assert.Equal(t, 1, f.recorder.analyses[domain.StatusFailed])
}

func TestAnalyzeSegmentsPersistenceFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(&stubGenerator{text: "Either party may terminate on thirty days' written notice."})
	f.repo.err = errors.New("database unavailable")

	report, err := f.analyzer.AnalyzeSegments(context.Background(), "nda.txt", twoSegments())
	require.NoError(t, err)
	assert.Equal(t, 2, report.NumRisks)
}

type stubSource struct {
	segments []domain.Segment
	err      error
}

func (s stubSource) Segments(context.Context, domain.Document) ([]domain.Segment, error) {
	return s.segments, s.err
}

func TestAnalyzeUsesSegmentSource(t *testing.T) {
	t.Parallel()

	f := newFixture(&stubGenerator{text: "Either party may terminate on thirty days' written notice."})
	f.analyzer.source = stubSource{segments: twoSegments()}

	report, err := f.analyzer.Analyze(context.Background(), domain.Document{Name: "nda.txt", Format: "text"})
	require.NoError(t, err)
	assert.Equal(t, "nda.txt", report.Filename)
	assert.Equal(t, 2, report.NumRisks)

	f.analyzer.source = stubSource{err: domain.ErrUnsupportedFormat}
	_, err = f.analyzer.Analyze(context.Background(), domain.Document{Name: "nda.pdf"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
