package match

import (
	"context"

	"github.com/kailas-cloud/roledex/internal/domain"
)

// Retriever runs dual-channel retrieval for a set of role needs.
type Retriever interface {
	Retrieve(ctx context.Context, needs []domain.RoleNeed) ([]domain.RetrievalResult, error)
}

// Reranker scores retrieval hits and attaches admissions to each result.
type Reranker interface {
	Rerank(ctx context.Context, needs []domain.RoleNeed, results []domain.RetrievalResult) ([]domain.ScoringDetail, error)
}

// Clusterer consolidates scored survivors into recommended roles.
type Clusterer interface {
	Cluster(ctx context.Context, needs []domain.RoleNeed, results []domain.RetrievalResult) ([]domain.RecommendedRole, []domain.ClusterInfo, error)
}
