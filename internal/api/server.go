package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"templateforge/internal/config"
	"templateforge/internal/monitoring"
	"templateforge/internal/pipeline"
	"templateforge/internal/registry"
	"templateforge/internal/storage"

	"go.uber.org/zap"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server

	batch     *pipeline.BatchDriver
	crawler   *pipeline.CrawlDriver
	persister *storage.Persister
	pgStore   *storage.PostgresStore // nil when running file-only
	redis     *registry.Redis        // nil when running memory-only
	statuses  *registry.CrawlStatuses
	pauses    *registry.Pauses
	dedup     *registry.ScrapeDedup
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

type Deps struct {
	Config    *config.Config
	Batch     *pipeline.BatchDriver
	Crawler   *pipeline.CrawlDriver
	Persister *storage.Persister
	PGStore   *storage.PostgresStore
	Redis     *registry.Redis
	Statuses  *registry.CrawlStatuses
	Pauses    *registry.Pauses
	Dedup     *registry.ScrapeDedup
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		config:    d.Config,
		batch:     d.Batch,
		crawler:   d.Crawler,
		persister: d.Persister,
		pgStore:   d.PGStore,
		redis:     d.Redis,
		statuses:  d.Statuses,
		pauses:    d.Pauses,
		dedup:     d.Dedup,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: SSE responses stay open for the length of
		// a batch run.
		IdleTimeout: 120 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if s.pgStore == nil {
		healthStatus["postgres"] = "disabled"
	} else if err := s.pgStore.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if s.redis == nil {
		healthStatus["redis"] = "disabled"
	} else if err := s.redis.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	// File fallback keeps the service operable with postgres down, so
	// only a hard redis failure degrades overall health.
	if healthStatus["redis"] == "unhealthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}
