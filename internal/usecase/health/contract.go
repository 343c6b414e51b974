package health

import "context"

// StoreChecker reports whether the vacancy store artifacts are loaded.
type StoreChecker interface {
	Loaded() bool
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks the optional embedding cache backend.
type CachePinger interface {
	Ping(ctx context.Context) error
}
