package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/config"
	logpkg "github.com/kailas-cloud/roledex/internal/logger"
	"github.com/kailas-cloud/roledex/internal/metrics"
	"github.com/kailas-cloud/roledex/internal/repository/vacancy"
	openaiTransport "github.com/kailas-cloud/roledex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/roledex/internal/usecase/embedding"
	"github.com/kailas-cloud/roledex/internal/version"
)

// roledex-build is the offline artifact builder. It reads the raw vacancy
// collection, embeds distinct enriched titles, and writes the index, matrix,
// and metadata artifacts the API server loads at startup.
func main() {
	var (
		source     = flag.String("source", "", "path to the vacancy collection (JSONL, .gz accepted); overrides config")
		maxRecords = flag.Int("max-records", 0, "cap on records to ingest (0 = unlimited); overrides config")
		force      = flag.Bool("force", false, "rebuild even when artifacts already exist")
	)
	flag.Parse()

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

	logger.Info("Starting roledex artifact build",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("data_dir", cfg.Store.DataDir),
	)

	metrics.RegisterEmbeddingMetrics()

	sourcePath := cfg.Store.SourcePath
	if *source != "" {
		sourcePath = *source
	}
	if sourcePath == "" {
		logger.Fatal("No source path: set store.source_path or pass -source")
	}
	limit := cfg.Store.MaxRecords
	if *maxRecords > 0 {
		limit = *maxRecords
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	embedder := embeddinguc.NewInstrumentedEmbedder(base, "openai", cfg.Embedding.Model, logger).
		WithMaxBatchSize(cfg.Embedding.BatchSize)

	builder := vacancy.NewBuilder(cfg.Store.DataDir, embedder, cfg.Embedding.BatchSize, logger)

	err = builder.Build(context.Background(), vacancy.BuildOptions{
		SourcePath: sourcePath,
		MaxRecords: limit,
		Force:      *force,
	})
	if err != nil {
		if errors.Is(err, vacancy.ErrArtifactsExist) {
			logger.Error("Artifacts already exist; pass -force to rebuild")
			os.Exit(2)
		}
		logger.Fatal("Build failed", zap.Error(err))
	}

	logger.Info("Build complete")
}
