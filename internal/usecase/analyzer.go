package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ClauseScanner/internal/catalogue"
	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/matcher"
	"ClauseScanner/internal/policy"
	"ClauseScanner/internal/ports"
)

// Fallback texts shown instead of a rewrite.
const (
	ReviewOnlyMessage = "Legal review recommended. This clause affects liability, " +
		"damages, or remedies and should not be rewritten automatically."
	RejectedRewriteMessage    = "Legal review recommended due to potential legal modification."
	GenerationFailedMessage   = "Legal review recommended. (generation unavailable)"
	NoTextMessage             = "No text could be extracted from the document."
	defaultRewriteConcurrency = 4
)

// AnalyzerDeps wires all driven adapters into the analysis workflow.
type AnalyzerDeps struct {
	Source             ports.SegmentSource
	Catalogue          *catalogue.Catalogue
	Matcher            *matcher.Matcher
	Generator          ports.RewriteGenerator
	Repository         ports.ReportRepository
	Recorder           ports.Recorder
	Threshold          float64
	RewriteConcurrency int
	Logger             *slog.Logger
	Now                func() time.Time
}

// Analyzer implements the contract-analysis workflow: segment, detect, decide, rewrite, validate.
type Analyzer struct {
	source      ports.SegmentSource
	catalogue   *catalogue.Catalogue
	matcher     *matcher.Matcher
	generator   ports.RewriteGenerator
	repository  ports.ReportRepository
	recorder    ports.Recorder
	threshold   float64
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewAnalyzer constructs the orchestration component.
func NewAnalyzer(deps AnalyzerDeps) *Analyzer {
	concurrency := deps.RewriteConcurrency
	if concurrency <= 0 {
		concurrency = defaultRewriteConcurrency
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Analyzer{
		source:      deps.Source,
		catalogue:   deps.Catalogue,
		matcher:     deps.Matcher,
		generator:   deps.Generator,
		repository:  deps.Repository,
		recorder:    deps.Recorder,
		threshold:   deps.Threshold,
		concurrency: concurrency,
		logger:      deps.Logger,
		now:         now,
	}
}

// Catalogue exposes the loaded catalogue for status reporting.
func (a *Analyzer) Catalogue() *catalogue.Catalogue {
	return a.catalogue
}

// Analyze segments doc and runs the full workflow over its segments.
func (a *Analyzer) Analyze(ctx context.Context, doc domain.Document) (domain.Report, error) {
	if a.source == nil {
		return domain.Report{}, fmt.Errorf("segment source is not configured")
	}

	segments, err := a.source.Segments(ctx, doc)
	if err != nil {
		a.observeAnalysis(domain.StatusFailed)
		return domain.Report{}, fmt.Errorf("segment document: %w", err)
	}

	return a.AnalyzeSegments(ctx, doc.Name, segments)
}

// AnalyzeSegments runs detection, policy and rewriting for caller-supplied segments.
// Embedding failures abort the analysis; rewrite failures degrade to fallback text.
func (a *Analyzer) AnalyzeSegments(ctx context.Context, filename string, segments []domain.Segment) (domain.Report, error) {
	report := domain.Report{
		ID:        uuid.NewString(),
		Filename:  filename,
		NumChunks: len(segments),
		Risks:     []domain.AssessedMatch{},
		Status:    domain.StatusSuccess,
		CreatedAt: a.now().UTC(),
	}

	if len(segments) == 0 {
		report.Message = NoTextMessage
		a.finish(ctx, report)
		return report, nil
	}

	if a.matcher == nil {
		return domain.Report{}, fmt.Errorf("matcher is not configured")
	}

	started := time.Now()
	matches, err := a.matcher.Detect(ctx, segments, a.catalogue, a.threshold)
	if a.recorder != nil {
		a.recorder.ObserveDetection(time.Since(started).Seconds())
	}
	if err != nil {
		a.observeAnalysis(domain.StatusFailed)
		return domain.Report{}, fmt.Errorf("detect risks: %w", err)
	}

	report.Risks = a.assess(ctx, matches)
	report.NumRisks = len(report.Risks)

	a.finish(ctx, report)
	return report, nil
}

func (a *Analyzer) assess(ctx context.Context, matches []domain.Match) []domain.AssessedMatch {
	assessed := make([]domain.AssessedMatch, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, m := range matches {
		action := policy.Decide(m.RiskCategory, m.SegmentText)
		assessed[i] = domain.AssessedMatch{Match: m, Action: action}
		if a.recorder != nil {
			a.recorder.ObserveMatch(m.RiskCategory, action)
		}

		if action != domain.ActionRewrite {
			assessed[i].SuggestedClause = ReviewOnlyMessage
			continue
		}

		i, m := i, m
		g.Go(func() error {
			assessed[i].SuggestedClause, assessed[i].Rewrite = a.rewrite(gctx, m)
			return nil
		})
	}
	_ = g.Wait()

	return assessed
}

// rewrite never fails: generation and validation problems turn into fallback text.
func (a *Analyzer) rewrite(ctx context.Context, m domain.Match) (string, *domain.RewriteResult) {
	if a.generator == nil {
		a.observeRewrite(domain.RewriteGenerationFailed)
		return GenerationFailedMessage, nil
	}

	text, err := a.generator.Rewrite(ctx, m.SegmentText, m.RiskCategory)
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		a.warn("rewrite generation failed", "chunk_id", m.SegmentID, "category", m.RiskCategory, "error", err)
		a.observeRewrite(domain.RewriteGenerationFailed)
		return GenerationFailedMessage, nil
	}

	result := &domain.RewriteResult{SuggestedText: text, IsValidated: policy.Validate(text)}
	if !result.IsValidated {
		a.warn("rewrite rejected by safety validator", "chunk_id", m.SegmentID, "category", m.RiskCategory)
		a.observeRewrite(domain.RewriteRejected)
		return RejectedRewriteMessage, result
	}

	a.observeRewrite(domain.RewriteValidated)
	return text, result
}

func (a *Analyzer) finish(ctx context.Context, report domain.Report) {
	a.observeAnalysis(report.Status)

	if a.repository != nil {
		if err := a.repository.SaveReport(ctx, report); err != nil {
			a.warn("persist report failed", "report_id", report.ID, "error", err)
		}
	}

	a.info("analysis done", "report_id", report.ID, "filename", report.Filename,
		"chunks", report.NumChunks, "risks", report.NumRisks)
}

func (a *Analyzer) observeAnalysis(status domain.ReportStatus) {
	if a.recorder != nil {
		a.recorder.ObserveAnalysis(status)
	}
}

func (a *Analyzer) observeRewrite(outcome domain.RewriteOutcome) {
	if a.recorder != nil {
		a.recorder.ObserveRewrite(outcome)
	}
}

func (a *Analyzer) info(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}

func (a *Analyzer) warn(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
