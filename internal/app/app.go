package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ClauseScanner/internal/catalogue"
	"ClauseScanner/internal/config"
	"ClauseScanner/internal/infrastructure/llm"
	"ClauseScanner/internal/infrastructure/ml"
	"ClauseScanner/internal/infrastructure/parser"
	"ClauseScanner/internal/infrastructure/storage"
	"ClauseScanner/internal/ingest"
	"ClauseScanner/internal/logging"
	"ClauseScanner/internal/matcher"
	"ClauseScanner/internal/metrics"
	"ClauseScanner/internal/ports"
	"ClauseScanner/internal/server"
	"ClauseScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	catalogue  *catalogue.Catalogue
	analyzer   *usecase.Analyzer
	repository ports.ReportRepository
	registry   *prometheus.Registry
	db         *sql.DB
}

// New loads the risk catalogue and builds every collaborator. A catalogue that is missing or
// malformed is fatal: the application refuses to start without one.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	cat, err := catalogue.Load(cfg.Catalogue.Path)
	if err != nil {
		return nil, fmt.Errorf("load risk catalogue: %w", err)
	}
	baseLogger.Info("risk catalogue loaded", "path", cfg.Catalogue.Path, "categories", cat.Len())

	registry := ingest.NewRegistry()
	registry.Register(parser.NewTextExtractor())
	registry.Register(parser.NewHTMLExtractor())

	source := ingest.NewSource(
		registry,
		parser.NewSplitter(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		cfg.Ingest.MinChunkLen,
		baseLogger.With("component", "ingest"),
	)

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	var generator ports.RewriteGenerator
	if cfg.Rewrite.APIKey != "" {
		generator = llm.NewRewriter(cfg.Rewrite)
	} else {
		baseLogger.Warn("rewrite generator disabled: no API key configured")
	}

	a := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		catalogue: cat,
		registry:  prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.Database.DSN != "" {
		// lib/pq registers the "postgres" driver; the storage package imports it.
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		repo := storage.NewPostgresRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.repository = repo
	}

	a.analyzer = usecase.NewAnalyzer(usecase.AnalyzerDeps{
		Source:             source,
		Catalogue:          cat,
		Matcher:            matcher.New(embedder, baseLogger.With("component", "matcher")),
		Generator:          generator,
		Repository:         a.repository,
		Recorder:           metrics.New(a.registry),
		Threshold:          cfg.Matcher.Threshold,
		RewriteConcurrency: cfg.Rewrite.Concurrency,
		Logger:             baseLogger.With("component", "analyzer"),
	})

	return a, nil
}

func newEmbedder(cfg config.EmbeddingConfig) (ports.EmbeddingProvider, error) {
	switch cfg.Provider {
	case "openai":
		return ml.NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.BatchSize), nil
	case "service":
		return ml.NewClient(cfg.BaseURL, cfg.APIKey, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Analyzer returns the wired analysis use case.
func (a *Application) Analyzer() *usecase.Analyzer {
	return a.analyzer
}

// Catalogue returns the loaded risk catalogue.
func (a *Application) Catalogue() *catalogue.Catalogue {
	return a.catalogue
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	srv := server.New(server.Options{
		Analyzer:       a.analyzer,
		Repository:     a.repository,
		Gatherer:       a.registry,
		CataloguePath:  a.cfg.Catalogue.Path,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		AllowOrigins:   a.cfg.Server.AllowOrigins,
		Logger:         a.logger.With("component", "http"),
	})

	a.logger.Info("starting server", "addr", a.cfg.Server.Addr)
	return srv.Run(ctx, a.cfg.Server.Addr)
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
