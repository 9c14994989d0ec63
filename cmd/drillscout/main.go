package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/config"
	dbRedis "github.com/kailas-cloud/drillscout/internal/db/redis"
	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/access"
	logpkg "github.com/kailas-cloud/drillscout/internal/logger"
	"github.com/kailas-cloud/drillscout/internal/metrics"
	assessmentrepo "github.com/kailas-cloud/drillscout/internal/repository/assessment"
	catalogrepo "github.com/kailas-cloud/drillscout/internal/repository/catalog"
	"github.com/kailas-cloud/drillscout/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/drillscout/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/drillscout/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/drillscout/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
	"github.com/kailas-cloud/drillscout/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, version.Version, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting drillscout API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Valkey and Redis speak the same protocol; rueidis serves both.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		ClientName: "drillscout",
		ScanCount:  cfg.Database.ScanCount,
		BatchSize:  cfg.Database.BatchSize,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Explicit registration, no init().
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	var (
		queryEmbedder   domain.Embedder = unavailableEmbedder{}
		embeddingHealth healthuc.EmbeddingChecker
		healthOpts      []healthuc.Option
	)
	if cfg.Embedding.Enabled() {
		var (
			provider domain.Embedder
			breaker  *embeddinguc.BreakerEmbedder
		)
		queryEmbedder, provider, breaker = buildEmbedder(&cfg.Embedding, cfg.Search.EmbeddingTimeout, store, logger)
		embeddingHealth = newEmbeddingHealthChecker(provider)
		if breaker != nil {
			healthOpts = append(healthOpts, healthuc.WithBreaker(breaker))
		}
		logger.Info("Query embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("No embedding provider configured, search is lexical only")
	}

	catalog := catalogrepo.New(store)
	assessments := assessmentrepo.New(store)
	policy := access.NewPolicy(cfg.Access.GatedRoles)

	caches := searchuc.NewCaches(
		cfg.Search.EmbeddingCacheTTL, cfg.Search.ListingCacheTTL, cfg.Search.SnapshotCacheTTL,
	)
	if cfg.Search.CacheSweepInterval > 0 {
		go caches.Sweep(ctx, cfg.Search.CacheSweepInterval, logger)
	}

	searchSvc := searchuc.New(
		searchuc.NewTextSearch(catalog, caches.Listing, cfg.Search.CatalogTimeout),
		searchuc.NewVectorSearch(catalog, caches.Snapshot, cfg.Search.CatalogTimeout, cfg.Search.MinSimilarity),
		queryEmbedder,
		caches,
		policy,
		searchuc.Options{
			StrongTextScore:  cfg.Search.StrongTextScore,
			EmbeddingTimeout: cfg.Search.EmbeddingTimeout,
		},
	)
	recommendSvc := recommenduc.New(assessments, catalog, policy, cfg.Search.CatalogTimeout)
	healthSvc := healthuc.New(store, embeddingHealth, caches, healthuc.DefaultCheckTimeout, healthOpts...)

	server := chiTransport.NewServer(searchSvc, recommendSvc, healthSvc, logger)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:            cfg.Auth.APIKeys,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
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

// unavailableEmbedder stands in when no provider is configured, so every
// semantic attempt degrades to the listing.
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf("no provider configured: %w", domain.ErrEmbeddingProviderError)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Breaker -> Cached -> Instrumented -> Instruction.
// The bare provider is returned too since only it answers health probes; breaker is nil when disabled.
func buildEmbedder(
	embCfg *config.EmbeddingConfig,
	timeout time.Duration,
	store *dbRedis.Store,
	logger *zap.Logger,
) (chain, provider domain.Embedder, breaker *embeddinguc.BreakerEmbedder) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:      embCfg.APIKey,
		BaseURL:     embCfg.BaseURL,
		Model:       embCfg.Model,
		Dimensions:  embCfg.Dimensions,
		Provider:    embCfg.Provider,
		HTTPTimeout: embCfg.HTTPTimeout,
		MaxRetries:  embCfg.MaxRetries,
		Logger:      logger,
	})

	var embedder domain.Embedder = base
	if embCfg.Breaker.FailureThreshold > 0 {
		breaker = embeddinguc.NewBreakerEmbedder(embedder, embCfg.Provider, embeddinguc.BreakerConfig{
			FailureThreshold: embCfg.Breaker.FailureThreshold,
			OpenTimeout:      embCfg.Breaker.OpenTimeout,
		}, logger)
		embedder = breaker
	}
	if embCfg.StoreCacheTTL > 0 {
		embedder = embcache.New(embedder, store, embcache.Options{
			Model:      embCfg.Model,
			Dimensions: embCfg.Dimensions,
			TTL:        embCfg.StoreCacheTTL,
			CacheTotal: metrics.CacheTotal,
			Logger:     logger,
		})
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, embCfg.Provider, embCfg.Model, timeout, logger,
	)

	// Outermost, so the store cache key includes the instruction.
	if embCfg.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, embCfg.QueryInstruction), base, breaker
	}
	return embedder, base, breaker
}
