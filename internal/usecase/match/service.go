package match

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
)

// uncoveredPreviewLen caps uncovered need descriptions in the roster metadata.
const uncoveredPreviewLen = 120

// Service orchestrates the full pipeline: retrieval, the rerank gate, and
// clustering, then assembles the role roster with its coverage report.
type Service struct {
	retriever Retriever
	reranker  Reranker
	clusterer Clusterer
	logger    *zap.Logger

	now func() time.Time
}

// NewService wires the pipeline stages together.
func NewService(retriever Retriever, reranker Reranker, clusterer Clusterer, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		reranker:  reranker,
		clusterer: clusterer,
		logger:    logger,
		now:       time.Now,
	}
}

// Match runs the pipeline for a batch of role needs and assembles the roster.
// Needs that end up with no admitted vacancies are reported as uncovered, not
// as errors.
func (s *Service) Match(ctx context.Context, needs []domain.RoleNeed) (domain.MatchOutput, error) {
	if len(needs) == 0 {
		return domain.MatchOutput{}, fmt.Errorf("no role needs provided")
	}
	s.logger.Info("Matching role needs to vacancies", zap.Int("needs", len(needs)))

	results, err := s.retriever.Retrieve(ctx, needs)
	if err != nil {
		return domain.MatchOutput{}, fmt.Errorf("retrieval: %w", err)
	}

	scoring, err := s.reranker.Rerank(ctx, needs, results)
	if err != nil {
		return domain.MatchOutput{}, fmt.Errorf("rerank: %w", err)
	}

	roles, clusters, err := s.clusterer.Cluster(ctx, needs, results)
	if err != nil {
		return domain.MatchOutput{}, fmt.Errorf("cluster: %w", err)
	}

	roster := s.assembleRoster(needs, roles)
	s.logger.Info("Match complete",
		zap.Int("roles", len(roles)),
		zap.Float64("coverage_pct", roster.Metadata.CoveragePct),
	)

	return domain.MatchOutput{
		Roster:    roster,
		Retrieval: results,
		Scoring:   scoring,
		Clusters:  clusters,
	}, nil
}

func (s *Service) assembleRoster(needs []domain.RoleNeed, roles []domain.RecommendedRole) domain.RoleRoster {
	covered := map[string]bool{}
	for _, role := range roles {
		for _, nid := range role.MappedRoleNeeds {
			covered[nid] = true
		}
	}

	coveredCount := 0
	var uncovered []string
	for _, need := range needs {
		if covered[need.ID] {
			coveredCount++
			continue
		}
		preview := need.Description
		if len(preview) > uncoveredPreviewLen {
			preview = preview[:uncoveredPreviewLen]
		}
		uncovered = append(uncovered, preview)
	}
	coveragePct := 100.0
	if len(needs) > 0 {
		coveragePct = float64(coveredCount) / float64(len(needs)) * 100
	}

	byFunction := map[string][]domain.RecommendedRole{}
	byPattern := map[string][]domain.RecommendedRole{}
	byTransformation := map[string][]domain.RecommendedRole{}
	for _, role := range roles {
		byFunction[string(role.Category)] = append(byFunction[string(role.Category)], role)
		byPattern[string(role.InteractionPattern)] = append(byPattern[string(role.InteractionPattern)], role)
		tt := string(role.Transformation.TransformationType)
		byTransformation[tt] = append(byTransformation[tt], role)
	}

	return domain.RoleRoster{
		Metadata: domain.RosterMetadata{
			GeneratedAt:    s.now().UTC().Format(time.RFC3339),
			TotalRoles:     len(roles),
			CoveragePct:    coveragePct,
			UncoveredNeeds: uncovered,
		},
		Roles:                roles,
		ByFunction:           byFunction,
		ByInteractionPattern: byPattern,
		ByTransformation:     byTransformation,
	}
}
