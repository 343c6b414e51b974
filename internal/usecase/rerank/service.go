package rerank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/metrics"
)

// Config tunes the rerank gate.
type Config struct {
	BatchSize int
	Threshold float64
}

// Service admits retrieval hits through the composite score gate. Hits are
// scored in batches; only pairs whose composite reaches the threshold survive.
type Service struct {
	scorer Scorer
	store  RecordResolver
	cfg    Config
	logger *zap.Logger
}

// NewService creates the rerank service.
func NewService(scorer Scorer, store RecordResolver, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = domain.DefaultRerankThreshold
	}
	return &Service{
		scorer: scorer,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Rerank scores every hit of every retrieval result and attaches the
// admitted ScoringDetails to the result. Unknown vacancy ids are skipped.
func (s *Service) Rerank(ctx context.Context, needs []domain.RoleNeed, results []domain.RetrievalResult) ([]domain.ScoringDetail, error) {
	needByID := make(map[string]domain.RoleNeed, len(needs))
	for _, n := range needs {
		needByID[n.ID] = n
	}

	var all []domain.ScoringDetail
	for i := range results {
		need, ok := needByID[results[i].RoleNeedID]
		if !ok {
			s.logger.Warn("Retrieval result for unknown need", zap.String("need_id", results[i].RoleNeedID))
			continue
		}
		scored, err := s.rerankOne(ctx, need, results[i].Hits)
		if err != nil {
			return nil, fmt.Errorf("rerank need %s: %w", need.ID, err)
		}
		results[i].Scored = scored
		all = append(all, scored...)
	}
	return all, nil
}

func (s *Service) rerankOne(ctx context.Context, need domain.RoleNeed, hits []domain.RetrievalHit) ([]domain.ScoringDetail, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	var admitted []domain.ScoringDetail
	for start := 0; start < len(hits); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(hits) {
			end = len(hits)
		}

		summaries := make([]domain.VacancySummary, 0, end-start)
		for _, hit := range hits[start:end] {
			rec, ok := s.store.RecordByID(hit.VacancyID)
			if !ok {
				s.logger.Warn("Hit references unknown vacancy", zap.String("vacancy_id", hit.VacancyID))
				continue
			}
			summaries = append(summaries, rec.Summary())
		}
		if len(summaries) == 0 {
			continue
		}

		scores, err := s.scoreWithRetry(ctx, need, summaries)
		if err != nil {
			return nil, err
		}

		for i, ax := range scores {
			composite := ax.Composite()
			if composite >= s.cfg.Threshold {
				admitted = append(admitted, domain.ScoringDetail{
					VacancyID:        summaries[i].VacancyID,
					EnrichedJobTitle: summaries[i].EnrichedJobTitle,
					RoleNeedID:       need.ID,
					TaskScore:        ax.TaskScore,
					DomainScore:      ax.DomainScore,
					SeniorityScore:   ax.SeniorityScore,
					CompositeScore:   composite,
					Rationale:        ax.Rationale,
				})
				metrics.RerankScoredTotal.WithLabelValues("admitted").Inc()
			} else {
				metrics.RerankScoredTotal.WithLabelValues("rejected").Inc()
			}
		}
	}

	s.logger.Debug("Rerank gate complete",
		zap.String("need_id", need.ID),
		zap.Int("hits", len(hits)),
		zap.Int("admitted", len(admitted)),
	)
	return admitted, nil
}

// scoreWithRetry retries the unscored tail once when the provider returns
// fewer verdicts than vacancies. A tail still unscored after the retry is
// dropped with a warning rather than failing the whole run.
func (s *Service) scoreWithRetry(ctx context.Context, need domain.RoleNeed, batch []domain.VacancySummary) ([]domain.AxisScores, error) {
	scores, err := s.scorer.ScoreBatch(ctx, need, batch)
	if err != nil {
		return nil, err
	}
	if len(scores) >= len(batch) {
		return scores[:len(batch)], nil
	}

	tail := batch[len(scores):]
	tailScores, err := s.scorer.ScoreBatch(ctx, need, tail)
	if err != nil {
		return nil, err
	}
	scores = append(scores, tailScores...)
	if len(scores) > len(batch) {
		scores = scores[:len(batch)]
	}

	if dropped := len(batch) - len(scores); dropped > 0 {
		s.logger.Warn("Scoring collaborator under-returned after retry",
			zap.String("need_id", need.ID),
			zap.Int("dropped", dropped),
		)
		metrics.RerankScoredTotal.WithLabelValues("dropped").Add(float64(dropped))
	}
	return scores, nil
}
