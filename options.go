package roledex

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
)

// ProviderConfig holds the connection settings for an OpenAI-compatible
// provider, embeddings or chat scoring.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

type clientConfig struct {
	dataDir string

	embedding ProviderConfig
	scoring   ProviderConfig

	cacheAddrs    []string
	cachePassword string

	topK              int
	skillKeywordCap   int
	scoringBatchSize  int
	rerankThreshold   float64
	clusterThreshold  float64
	exclusionKeywords []string

	logger *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		topK:             10,
		skillKeywordCap:  20,
		scoringBatchSize: 5,
		rerankThreshold:  domain.DefaultRerankThreshold,
		clusterThreshold: 0.35,
		logger:           zap.NewNop(),
	}
}

// Option customizes client construction.
type Option func(*clientConfig)

// WithDataDir points the client at the artifact directory produced by the
// offline builder. Required.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) { c.dataDir = dir }
}

// WithEmbeddingProvider configures the embedding backend. Required.
func WithEmbeddingProvider(p ProviderConfig) Option {
	return func(c *clientConfig) { c.embedding = p }
}

// WithScoringProvider configures the chat scoring backend. Required.
func WithScoringProvider(p ProviderConfig) Option {
	return func(c *clientConfig) { c.scoring = p }
}

// WithRedisCache enables the embedding cache backed by Redis.
func WithRedisCache(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.cacheAddrs = addrs
		c.cachePassword = password
	}
}

// WithTopK sets the per-query candidate count for retrieval.
func WithTopK(k int) Option {
	return func(c *clientConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithRerankThreshold sets the composite score gate on [0, 5].
func WithRerankThreshold(t float64) Option {
	return func(c *clientConfig) { c.rerankThreshold = t }
}

// WithClusterThreshold sets the cosine distance below which titles merge.
func WithClusterThreshold(t float64) Option {
	return func(c *clientConfig) {
		if t > 0 {
			c.clusterThreshold = t
		}
	}
}

// WithExclusionKeywords replaces the default title exclusion list.
func WithExclusionKeywords(keywords []string) Option {
	return func(c *clientConfig) { c.exclusionKeywords = keywords }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}
