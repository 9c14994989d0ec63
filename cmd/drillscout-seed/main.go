// Command drillscout-seed loads drills, criteria and assessments from a JSON
// fixture into the document store, embedding drills that lack a vector.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/config"
	dbRedis "github.com/kailas-cloud/drillscout/internal/db/redis"
	"github.com/kailas-cloud/drillscout/internal/domain"
	logpkg "github.com/kailas-cloud/drillscout/internal/logger"
	"github.com/kailas-cloud/drillscout/internal/metrics"
	"github.com/kailas-cloud/drillscout/internal/repository/fixture"
	openaiEmb "github.com/kailas-cloud/drillscout/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/drillscout/internal/usecase/embedding"
	"github.com/kailas-cloud/drillscout/internal/version"
)

var (
	fixturePath  = flag.String("file", "testdata/fixtures/drills.json", "Path to the JSON fixture")
	batchSize    = flag.Int("batch-size", fixture.DefaultBatchSize, "Documents per pipelined write")
	skipEmbed    = flag.Bool("skip-embed", false, "Store drills without computing missing embeddings")
	embedTimeout = flag.Duration("embed-timeout", 30*time.Second, "Deadline for each drill embedding call")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}
}

func run() error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, version.Version, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(filepath.Clean(*fixturePath))
	if err != nil {
		return fmt.Errorf("open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()

	fx, err := fixture.Decode(f)
	if err != nil {
		return err //nolint:wrapcheck // already carries context
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		ClientName: "drillscout-seed",
		ScanCount:  cfg.Database.ScanCount,
		BatchSize:  cfg.Database.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	var embedder domain.Embedder
	if !*skipEmbed && cfg.Embedding.Enabled() {
		metrics.RegisterEmbeddingMetrics()
		embedder = embeddinguc.NewInstrumentedEmbedder(
			openaiEmb.NewEmbedder(&openaiEmb.Config{
				APIKey:      cfg.Embedding.APIKey,
				BaseURL:     cfg.Embedding.BaseURL,
				Model:       cfg.Embedding.Model,
				Dimensions:  cfg.Embedding.Dimensions,
				Provider:    cfg.Embedding.Provider,
				HTTPTimeout: cfg.Embedding.HTTPTimeout,
				MaxRetries:  cfg.Embedding.MaxRetries,
				Logger:      logger,
			}),
			cfg.Embedding.Provider, cfg.Embedding.Model, *embedTimeout, logger,
		)
	}

	start := time.Now()
	stats, err := fixture.NewLoader(store, embedder, *batchSize, logger).Load(ctx, fx)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	logger.Info("Fixture loaded",
		zap.String("file", *fixturePath),
		zap.Int("drills", stats.Drills),
		zap.Int("criteria", stats.Criteria),
		zap.Int("assessments", stats.Assessments),
		zap.Int("embedded", stats.Embedded),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
