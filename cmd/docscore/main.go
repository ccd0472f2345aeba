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

	"github.com/kailas-cloud/docscore/internal/config"
	"github.com/kailas-cloud/docscore/internal/db"
	dbRedis "github.com/kailas-cloud/docscore/internal/db/redis"
	domscore "github.com/kailas-cloud/docscore/internal/domain/score"
	logpkg "github.com/kailas-cloud/docscore/internal/logger"
	"github.com/kailas-cloud/docscore/internal/metrics"
	"github.com/kailas-cloud/docscore/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/docscore/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/docscore/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docscore/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docscore/internal/usecase/health"
	scoreuc "github.com/kailas-cloud/docscore/internal/usecase/score"
	taguc "github.com/kailas-cloud/docscore/internal/usecase/tag"
	"github.com/kailas-cloud/docscore/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docscore API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("cache_enabled", cfg.Cache.Enabled()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterScoringMetrics()

	ctx := context.Background()

	// Embedding cache store is optional; without one every scoring run
	// goes straight to the embedding provider.
	var store db.Store
	if cfg.Cache.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Embedding provider is optional; without one similarity scoring is
	// rejected while count and presence scoring keep working.
	var embedder scoreuc.BatchEmbedder
	var embeddingHealth healthuc.EmbeddingChecker
	if cfg.Embedding.APIKey != "" || cfg.Embedding.BaseURL != "" {
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:       cfg.Embedding.APIKey,
			BaseURL:      cfg.Embedding.BaseURL,
			Model:        cfg.Embedding.Model,
			Dimensions:   cfg.Embedding.Dimensions,
			MaxBatchSize: cfg.Embedding.MaxBatchSize,
			Provider:     cfg.Embedding.Provider,
			Logger:       logger,
		})
		embedder = buildEmbedderChain(ctx, base, cfg, store, logger)
		embeddingHealth = base
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	// Use case services
	scoreSvc := scoreuc.New(embedder, logger).
		WithDefaultAggregator(domscore.Aggregator(cfg.Scoring.DefaultAggregation))
	tagSvc := taguc.NewService(logger)

	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, embeddingHealth)

	server := chiTransport.NewServer(scoreSvc, tagSvc, healthSvc, logger).
		WithLimits(cfg.Scoring.MaxDocuments, cfg.Scoring.MaxWords)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogMiddleware(logger))
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

// buildEmbedderChain assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedderChain(
	ctx context.Context,
	base *openaiEmb.Embedder,
	cfg config.Config,
	store db.Store,
	logger *zap.Logger,
) scoreuc.BatchEmbedder {
	// Single BudgetTracker shared by the whole chain.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, cfg.Cache.KeyPrefix,
			budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit,
			action, logger,
		)
		if store != nil {
			// Connect persistence store — loads current counters.
			budget.WithStore(ctx, store)
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	var inner embeddinguc.Provider = base
	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		inner = embcache.New(base, store, cfg.Cache.KeyPrefix, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(
		inner, cfg.Embedding.Provider, cfg.Embedding.Model, budgetChecker, logger,
	)
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

// requestLogMiddleware emits a canonical log line per request and propagates X-Request-ID.
func requestLogMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
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

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
