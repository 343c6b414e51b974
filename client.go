// Package roledex matches abstract role needs against a prebuilt vacancy
// artifact set without going through the HTTP API. It wires the same pipeline
// the server runs: dual-channel retrieval, the composite score gate, and
// title clustering.
package roledex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/roledex/internal/db"
	dbRedis "github.com/kailas-cloud/roledex/internal/db/redis"
	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/exclusion"
	"github.com/kailas-cloud/roledex/internal/metrics"
	"github.com/kailas-cloud/roledex/internal/repository/embcache"
	"github.com/kailas-cloud/roledex/internal/repository/vacancy"
	openaiTransport "github.com/kailas-cloud/roledex/internal/transport/openai"
	clusteruc "github.com/kailas-cloud/roledex/internal/usecase/cluster"
	embeddinguc "github.com/kailas-cloud/roledex/internal/usecase/embedding"
	matchuc "github.com/kailas-cloud/roledex/internal/usecase/match"
	rerankuc "github.com/kailas-cloud/roledex/internal/usecase/rerank"
	retrievaluc "github.com/kailas-cloud/roledex/internal/usecase/retrieval"
)

const defaultCacheReadiness = 10 * time.Second

// Re-exported pipeline types, so callers do not import internal packages.
type (
	RoleNeed        = domain.RoleNeed
	MatchOutput     = domain.MatchOutput
	RecommendedRole = domain.RecommendedRole
	RetrievalResult = domain.RetrievalResult
	ScoringDetail   = domain.ScoringDetail
	ClusterInfo     = domain.ClusterInfo
	StoreStats      = vacancy.Stats
)

// Client is the roledex library entry point.
type Client struct {
	store      *vacancy.Store
	matchSvc   *matchuc.Service
	cacheStore db.Store
}

// New creates a Client over an existing artifact directory. The artifacts
// must have been produced by the offline builder beforehand.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if cfg.dataDir == "" {
		return nil, errors.New("roledex: artifact directory required (use WithDataDir)")
	}
	if cfg.embedding.Model == "" {
		return nil, errors.New("roledex: embedding model required (use WithEmbeddingProvider)")
	}
	if cfg.scoring.Model == "" {
		return nil, errors.New("roledex: scoring model required (use WithScoringProvider)")
	}

	store := vacancy.NewStore(cfg.dataDir, cfg.logger)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("roledex: load artifacts: %w", err)
	}

	var cacheStore db.Store
	if len(cfg.cacheAddrs) > 0 {
		var err error
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("roledex: cache store: %w", err)
		}
		if err := cacheStore.WaitForReady(context.Background(), defaultCacheReadiness); err != nil {
			cacheStore.Close()
			return nil, fmt.Errorf("roledex: cache not ready: %w", err)
		}
	}

	embedder := buildEmbedder(cfg, cacheStore)
	scorer := openaiTransport.NewScorer(&openaiTransport.ScorerConfig{
		APIKey:  cfg.scoring.APIKey,
		BaseURL: cfg.scoring.BaseURL,
		Model:   cfg.scoring.Model,
		Logger:  cfg.logger,
	})

	filter := exclusion.NewKeywordFilter(cfg.exclusionKeywords)

	retrievalSvc := retrievaluc.NewService(store, embedder, filter, retrievaluc.Config{
		TopK:            cfg.topK,
		SkillKeywordCap: cfg.skillKeywordCap,
	}, cfg.logger)
	rerankSvc := rerankuc.NewService(scorer, store, rerankuc.Config{
		BatchSize: cfg.scoringBatchSize,
		Threshold: cfg.rerankThreshold,
	}, cfg.logger)
	clusterSvc := clusteruc.NewService(embedder, store, clusteruc.Config{
		DistanceThreshold: cfg.clusterThreshold,
	}, cfg.logger)

	return &Client{
		store:      store,
		matchSvc:   matchuc.NewService(retrievalSvc, rerankSvc, clusterSvc, cfg.logger),
		cacheStore: cacheStore,
	}, nil
}

func buildEmbedder(cfg *clientConfig, cacheStore db.Store) domain.BatchEmbedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.embedding.APIKey,
		BaseURL:    cfg.embedding.BaseURL,
		Model:      cfg.embedding.Model,
		Dimensions: cfg.embedding.Dimensions,
		Provider:   "openai",
		Logger:     cfg.logger,
	})

	var embedder domain.Embedder = base
	if cacheStore != nil {
		embedder = embcache.New(base, cacheStore, metrics.EmbeddingCacheTotal, cfg.logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, "openai", cfg.embedding.Model, cfg.logger)
}

// Match runs the pipeline for a batch of role needs and returns the assembled
// roster with its intermediate artifacts.
func (c *Client) Match(ctx context.Context, needs []RoleNeed) (MatchOutput, error) {
	return c.matchSvc.Match(ctx, needs)
}

// Stats describes the loaded artifact set.
func (c *Client) Stats() StoreStats {
	return c.store.Stats()
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	if c.cacheStore != nil {
		c.cacheStore.Close()
	}
}
