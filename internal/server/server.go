// Package server exposes validation, revalidation, duplicate detection,
// extraction and claim history over HTTP
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/fracheck/internal/cache"
	"github.com/ppiankov/fracheck/internal/dedupe"
	"github.com/ppiankov/fracheck/internal/extract"
	"github.com/ppiankov/fracheck/internal/metrics"
	"github.com/ppiankov/fracheck/internal/model"
	"github.com/ppiankov/fracheck/internal/pipeline"
	"github.com/ppiankov/fracheck/internal/store"
	"github.com/ppiankov/fracheck/internal/validate"
	"github.com/ppiankov/fracheck/internal/worker"
)

// Deps are the components the server delegates to. Cache and Store are
// optional.
type Deps struct {
	Pipeline  *pipeline.Pipeline
	Detector  *dedupe.Detector
	Extractor *extract.ClaimExtractor
	Checker   *validate.ClaimChecker
	Cache     cache.Cache
	Store     *store.Store
	Logger    *slog.Logger
}

// Server is the HTTP front of fracheck
type Server struct {
	cfg       model.ServerConfig
	pipeline  *pipeline.Pipeline
	detector  *dedupe.Detector
	extractor *extract.ClaimExtractor
	checker   *validate.ClaimChecker
	cache     cache.Cache
	store     *store.Store
	limiter   *worker.Limiter
	logger    *slog.Logger
	engine    *gin.Engine
}

// New creates a server and registers its routes
func New(cfg model.ServerConfig, deps Deps) *Server {
	if deps.Pipeline == nil {
		deps.Pipeline = pipeline.New(pipeline.Options{Logger: deps.Logger})
	}
	if deps.Detector == nil {
		deps.Detector = dedupe.NewDetector(dedupe.DefaultOptions())
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewClaimExtractor()
	}
	if deps.Checker == nil {
		deps.Checker = validate.NewClaimChecker(deps.Detector, validate.IndiaRegion)
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		cfg:       cfg,
		pipeline:  deps.Pipeline,
		detector:  deps.Detector,
		extractor: deps.Extractor,
		checker:   deps.Checker,
		cache:     deps.Cache,
		store:     deps.Store,
		logger:    deps.Logger,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog(), s.observe())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1", s.rateLimit(), s.timeout())
	{
		api.POST("/validate", s.handleValidate)
		api.POST("/revalidate", s.handleRevalidate)
		api.POST("/duplicates", s.handleDuplicates)
		api.POST("/extract", s.handleExtract)

		api.POST("/claims", s.handleSaveClaim)
		api.GET("/claims/:claim_id", s.handleLatestClaim)
		api.GET("/claims/:claim_id/versions", s.handleClaimVersions)
	}
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}
