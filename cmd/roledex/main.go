package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/config"
	"github.com/kailas-cloud/roledex/internal/db"
	dbRedis "github.com/kailas-cloud/roledex/internal/db/redis"
	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/exclusion"
	logpkg "github.com/kailas-cloud/roledex/internal/logger"
	"github.com/kailas-cloud/roledex/internal/metrics"
	"github.com/kailas-cloud/roledex/internal/repository/embcache"
	"github.com/kailas-cloud/roledex/internal/repository/vacancy"
	chiTransport "github.com/kailas-cloud/roledex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/roledex/internal/transport/openai"
	clusteruc "github.com/kailas-cloud/roledex/internal/usecase/cluster"
	embeddinguc "github.com/kailas-cloud/roledex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/roledex/internal/usecase/health"
	matchuc "github.com/kailas-cloud/roledex/internal/usecase/match"
	rerankuc "github.com/kailas-cloud/roledex/internal/usecase/rerank"
	retrievaluc "github.com/kailas-cloud/roledex/internal/usecase/retrieval"
	"github.com/kailas-cloud/roledex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting roledex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Store.DataDir),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Optional embedding cache backend.
	var cacheStore db.Store
	if cfg.Cache.Enabled() {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cacheStore.Close()

		if err := cacheStore.WaitForReady(context.Background(), 30*time.Second); err != nil {
			logger.Fatal("Cache backend not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	embedder := buildEmbedder(cfg, cacheStore, logger)

	scorer := openaiTransport.NewScorer(&openaiTransport.ScorerConfig{
		APIKey:  cfg.Scoring.APIKey,
		BaseURL: cfg.Scoring.BaseURL,
		Model:   cfg.Scoring.Model,
		Logger:  logger,
	})

	store := vacancy.NewStore(cfg.Store.DataDir, logger)
	if err := store.Load(); err != nil {
		logger.Fatal("Failed to load vacancy store", zap.Error(err))
	}

	filter := exclusion.NewKeywordFilter(cfg.Retrieval.ExclusionKeywords)

	retrievalSvc := retrievaluc.NewService(store, embedder, filter, retrievaluc.Config{
		TopK:            cfg.Retrieval.TopK,
		SkillKeywordCap: cfg.Retrieval.SkillKeywordCap,
	}, logger)
	rerankSvc := rerankuc.NewService(scorer, store, rerankuc.Config{
		BatchSize: cfg.Scoring.BatchSize,
		Threshold: cfg.Scoring.Threshold,
	}, logger)
	clusterSvc := clusteruc.NewService(embedder, store, clusteruc.Config{
		DistanceThreshold: cfg.Cluster.DistanceThreshold,
	}, logger)
	matchSvc := matchuc.NewService(retrievalSvc, rerankSvc, clusterSvc, logger)

	var cachePinger healthuc.CachePinger
	if cacheStore != nil {
		cachePinger = cacheStore
	}
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), cachePinger)

	server := chiTransport.NewServer(matchSvc, healthSvc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the encoder chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(cfg config.Config, cacheStore db.Store, logger *zap.Logger) domain.BatchEmbedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	var embedder domain.Embedder = base
	if cacheStore != nil {
		embedder = embcache.New(base, cacheStore, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, "openai", cfg.Embedding.Model, logger).
		WithMaxBatchSize(cfg.Embedding.BatchSize)
}

// embeddingHealthChecker surfaces the base encoder's health check when the
// configured chain exposes one.
type embeddingHealthChecker struct {
	embedder domain.BatchEmbedder
}

func newEmbeddingHealthChecker(embedder domain.BatchEmbedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
