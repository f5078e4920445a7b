package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ClauseScanner/internal/catalogue"
	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ingest"
	"ClauseScanner/internal/ports"
)

const (
	serviceName        = "ClauseScanner - Contract Risk Detector"
	serviceVersion     = "0.1"
	defaultReportLimit = 20
	maxReportLimit     = 200
)

// Analyzer is the slice of the analysis use case the HTTP layer needs.
type Analyzer interface {
	Analyze(ctx context.Context, doc domain.Document) (domain.Report, error)
	AnalyzeSegments(ctx context.Context, filename string, segments []domain.Segment) (domain.Report, error)
	Catalogue() *catalogue.Catalogue
}

// Options configures the HTTP server.
type Options struct {
	Analyzer       Analyzer
	Repository     ports.ReportRepository
	Gatherer       prometheus.Gatherer
	CataloguePath  string
	MaxUploadBytes int64
	AllowOrigins   []string
	Logger         *slog.Logger
}

// Server exposes contract analysis over HTTP.
type Server struct {
	opts   Options
	engine *gin.Engine
}

// New builds the gin engine and registers routes.
func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(opts.Logger))
	if len(opts.AllowOrigins) > 0 {
		engine.Use(corsMiddleware(opts.AllowOrigins))
	}

	s := &Server{opts: opts, engine: engine}
	s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleStatus)
	s.engine.GET("/health", s.handleStatus)

	if s.opts.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// Path used by the browser frontend.
	s.engine.POST("/analyze-contract", s.handleAnalyzeUpload)

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/analyze", s.handleAnalyzeUpload)
		v1.POST("/analyze/segments", s.handleAnalyzeSegments)
		v1.GET("/reports", s.handleListReports)
		v1.GET("/reports/:id", s.handleGetReport)
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	categories := 0
	if s.opts.Analyzer != nil {
		categories = s.opts.Analyzer.Catalogue().Len()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":               "running",
		"service":              serviceName,
		"version":              serviceVersion,
		"model_initialized":    s.opts.Analyzer != nil && categories > 0,
		"catalogue_path":       s.opts.CataloguePath,
		"catalogue_categories": categories,
		"persistence_enabled":  s.opts.Repository != nil,
	})
}

func (s *Server) handleAnalyzeUpload(c *gin.Context) {
	if s.opts.Analyzer == nil {
		abort(c, http.StatusInternalServerError, "analyzer is not loaded; check server logs")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		abort(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}

	format := ingest.FormatFromName(header.Filename)
	if format == "" {
		abort(c, http.StatusBadRequest, "only .txt, .md, .html and .htm files are supported")
		return
	}

	f, err := header.Open()
	if err != nil {
		abort(c, http.StatusBadRequest, "cannot open uploaded file")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		abort(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	if len(content) == 0 {
		abort(c, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	report, err := s.opts.Analyzer.Analyze(c.Request.Context(), domain.Document{
		Name:    header.Filename,
		Format:  format,
		Content: content,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type segmentsRequest struct {
	Filename string           `json:"filename"`
	Segments []segmentPayload `json:"segments" binding:"required,min=1,dive"`
}

type segmentPayload struct {
	ID       string            `json:"id" binding:"required"`
	Text     string            `json:"text" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) handleAnalyzeSegments(c *gin.Context) {
	if s.opts.Analyzer == nil {
		abort(c, http.StatusInternalServerError, "analyzer is not loaded; check server logs")
		return
	}

	var req segmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	segments, err := toSegments(req.Segments)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.opts.Analyzer.AnalyzeSegments(c.Request.Context(), req.Filename, segments)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func toSegments(payload []segmentPayload) ([]domain.Segment, error) {
	seen := make(map[string]struct{}, len(payload))
	segments := make([]domain.Segment, 0, len(payload))
	for _, p := range payload {
		id := strings.TrimSpace(p.ID)
		if id == "" || strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("segment ids and texts must not be blank")
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate segment id %q", id)
		}
		seen[id] = struct{}{}
		segments = append(segments, domain.Segment{ID: id, Text: p.Text, Metadata: p.Metadata})
	}
	return segments, nil
}

func (s *Server) handleGetReport(c *gin.Context) {
	if s.opts.Repository == nil {
		abort(c, http.StatusNotImplemented, "report persistence is disabled")
		return
	}

	report, err := s.opts.Repository.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			abort(c, http.StatusNotFound, "report not found")
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListReports(c *gin.Context) {
	if s.opts.Repository == nil {
		abort(c, http.StatusNotImplemented, "report persistence is disabled")
		return
	}

	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		abort(c, http.StatusBadRequest, "query parameter \"category\" is required")
		return
	}

	limit := uint64(defaultReportLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			abort(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxReportLimit)
	}

	ids, err := s.opts.Repository.ReportsByCategory(c.Request.Context(), category, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "report_ids": ids})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrEmbedding):
		status = http.StatusBadGateway
	}

	if s.opts.Logger != nil {
		s.opts.Logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	abort(c, status, fmt.Sprintf("error analyzing contract: %v", err))
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		if logger != nil {
			logger.Debug("http request",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", c.Writer.Status(),
				"duration", time.Since(started))
		}
	}
}
