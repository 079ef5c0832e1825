package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"templateforge/internal/ai"
	"templateforge/internal/api"
	"templateforge/internal/config"
	"templateforge/internal/fetch"
	"templateforge/internal/monitoring"
	"templateforge/internal/pipeline"
	"templateforge/internal/registry"
	"templateforge/internal/rewrite"
	"templateforge/internal/storage"
	"templateforge/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	// Initialize structured logger
	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic("could not initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize Storage Layer. Postgres is optional: with no
	// POSTGRES_URL the persister runs file-only.
	var pgStore *storage.PostgresStore
	if cfg.PostgresURL != "" {
		pgStore, err = storage.NewPostgresStore(cfg.PostgresURL)
		if err != nil {
			log.Warn("postgres unavailable, running with file store only", zap.Error(err))
			pgStore = nil
		}
	}
	fileStore := storage.NewFileStore(cfg.TemplateDir)

	// Initialize Monitoring
	metrics := monitoring.NewMetrics()

	persister := storage.NewPersister(pgStore, fileStore, log, func() {
		metrics.FileFallbacks.Inc()
	})

	// Registry backend: Redis when configured, in-memory otherwise.
	var store registry.Store
	var redisStore *registry.Redis
	if cfg.RedisAddr != "" {
		redisStore = registry.NewRedis(cfg.RedisAddr)
		store = redisStore
	} else {
		store = registry.NewMemory()
	}
	statuses := registry.NewCrawlStatuses(store)
	pauses := registry.NewPauses(store, time.Duration(cfg.PauseTimeoutMins)*time.Minute)
	dedup := registry.NewScrapeDedup(store, time.Duration(cfg.DeduplicationDays)*24*time.Hour)

	// AI providers
	textProvider := ai.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
	imageProvider := ai.NewLeonardo(cfg.LeonardoKey)
	if !textProvider.Available() {
		log.Warn("no text provider configured, content rewriting will keep originals")
	}
	if !imageProvider.Available() {
		log.Warn("no image provider configured, images will not be regenerated")
	}

	// Fetcher: plain HTTP by default, headless Chrome when configured.
	var fetcher pipeline.Fetcher
	timeout := time.Duration(cfg.FetchTimeout) * time.Second
	retryDelay := time.Duration(cfg.FetchRetryDelay) * time.Millisecond
	if cfg.RenderedFetch {
		fetcher = fetch.NewRenderedFetcher(timeout, cfg.FetchRetries, retryDelay, log)
	} else {
		fetcher = fetch.NewFetcher(timeout, cfg.FetchRetries, retryDelay, log)
	}

	// Core pipeline and drivers
	rewriter := rewrite.NewRewriter(textProvider, log)
	reimager := rewrite.NewReimager(imageProvider, log)
	pipe := pipeline.NewPipeline(fetcher, rewriter, reimager, persister, metrics, log)
	batch := pipeline.NewBatchDriver(pipe, pauses,
		time.Duration(cfg.BatchDelay)*time.Millisecond, cfg.BatchPauseEvery, log)
	crawler := pipeline.NewCrawlDriver(fetcher, persister, statuses, pauses, cfg.BatchPauseEvery, metrics, log)

	// Initialize API Server
	server := api.NewServer(api.Deps{
		Config:    cfg,
		Batch:     batch,
		Crawler:   crawler,
		Persister: persister,
		PGStore:   pgStore,
		Redis:     redisStore,
		Statuses:  statuses,
		Pauses:    pauses,
		Dedup:     dedup,
		Metrics:   metrics,
		Logger:    log,
	})

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	if pgStore != nil {
		pgStore.Close()
	}

	log.Info("server exiting")
}
