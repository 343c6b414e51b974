package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/metrics"
)

// queryPreviewLen caps the QueryUsed audit field for skills queries.
const queryPreviewLen = 100

// Config tunes retrieval.
type Config struct {
	TopK            int
	SkillKeywordCap int
}

// Service runs dual-channel retrieval: derived job titles against the title
// index, and a joined skill string against the same index, fused per vacancy.
type Service struct {
	store    VacancySearcher
	embedder domain.BatchEmbedder
	filter   ExclusionFilter
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the retrieval service.
func NewService(store VacancySearcher, embedder domain.BatchEmbedder, filter ExclusionFilter, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.SkillKeywordCap <= 0 {
		cfg.SkillKeywordCap = 20
	}
	return &Service{
		store:    store,
		embedder: embedder,
		filter:   filter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Retrieve runs both channels for every role need. A need with no derived
// titles and no skill keywords yields an empty hit set, never an error.
func (s *Service) Retrieve(ctx context.Context, needs []domain.RoleNeed) ([]domain.RetrievalResult, error) {
	results := make([]domain.RetrievalResult, 0, len(needs))
	for _, need := range needs {
		result, err := s.retrieveOne(ctx, need)
		if err != nil {
			return nil, fmt.Errorf("retrieve for need %s: %w", need.ID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) retrieveOne(ctx context.Context, need domain.RoleNeed) (domain.RetrievalResult, error) {
	best := make(map[string]domain.RetrievalHit)
	var order []string // vacancy ids in first-seen order, keeps output deterministic

	// Channel A: derived titles against the title index, one query per title.
	if len(need.DerivedJobTitles) > 0 {
		embedded, err := s.embedder.BatchEmbed(ctx, need.DerivedJobTitles)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("embed derived titles: %w", err)
		}
		perQuery, err := s.store.Search(embedded.Embeddings, s.cfg.TopK)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("title channel search: %w", err)
		}

		for qi, hits := range perQuery {
			for _, h := range hits {
				rec, err := s.store.RecordAt(h.Row)
				if err != nil {
					return domain.RetrievalResult{}, fmt.Errorf("resolve row %d: %w", h.Row, err)
				}
				hit := domain.RetrievalHit{
					VacancyID:        rec.Identifier,
					VacancyTitle:     rec.Title,
					EnrichedJobTitle: rec.EnrichedJobTitle,
					CosineScore:      float64(h.Score),
					Channel:          domain.ChannelTitle,
					QueryUsed:        need.DerivedJobTitles[qi],
				}
				if prev, ok := best[rec.Identifier]; !ok {
					best[rec.Identifier] = hit
					order = append(order, rec.Identifier)
				} else if hit.CosineScore > prev.CosineScore {
					best[rec.Identifier] = hit
				}
			}
		}
	}

	// Channel B: capped skill keywords joined into one query string.
	if len(need.DerivedSkillKeywords) > 0 {
		keywords := need.DerivedSkillKeywords
		if len(keywords) > s.cfg.SkillKeywordCap {
			keywords = keywords[:s.cfg.SkillKeywordCap]
		}
		skillQuery := strings.Join(keywords, ", ")

		embedded, err := s.embedder.BatchEmbed(ctx, []string{skillQuery})
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("embed skill query: %w", err)
		}
		perQuery, err := s.store.Search(embedded.Embeddings, s.cfg.TopK)
		if err != nil {
			return domain.RetrievalResult{}, fmt.Errorf("skills channel search: %w", err)
		}

		queryUsed := skillQuery
		if len(queryUsed) > queryPreviewLen {
			queryUsed = queryUsed[:queryPreviewLen]
		}
		for _, h := range perQuery[0] {
			rec, err := s.store.RecordAt(h.Row)
			if err != nil {
				return domain.RetrievalResult{}, fmt.Errorf("resolve row %d: %w", h.Row, err)
			}
			score := float64(h.Score)

			if prev, ok := best[rec.Identifier]; ok {
				// Seen by the title channel too: keep the higher score,
				// upgrade to dual.
				if score > prev.CosineScore {
					prev.CosineScore = score
				}
				prev.Channel = domain.ChannelDual
				best[rec.Identifier] = prev
			} else {
				best[rec.Identifier] = domain.RetrievalHit{
					VacancyID:        rec.Identifier,
					VacancyTitle:     rec.Title,
					EnrichedJobTitle: rec.EnrichedJobTitle,
					CosineScore:      score,
					Channel:          domain.ChannelSkills,
					QueryUsed:        queryUsed,
				}
				order = append(order, rec.Identifier)
			}
		}
	}

	// One exclusion pass over the fused set.
	hits := make([]domain.RetrievalHit, 0, len(order))
	excluded := 0
	for _, vid := range order {
		hit := best[vid]
		if s.filter != nil {
			description := ""
			if rec, ok := s.store.RecordByID(vid); ok {
				description = rec.Description
			}
			if s.filter.Excluded(hit.EnrichedJobTitle, description) {
				excluded++
				continue
			}
		}
		hits = append(hits, hit)
		metrics.RetrievalHitsTotal.WithLabelValues(string(hit.Channel)).Inc()
	}
	if excluded > 0 {
		metrics.RetrievalExcludedTotal.Add(float64(excluded))
	}

	// Deterministic ordering: score descending, vacancy id ascending on ties.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].CosineScore != hits[j].CosineScore {
			return hits[i].CosineScore > hits[j].CosineScore
		}
		return hits[i].VacancyID < hits[j].VacancyID
	})

	s.logger.Debug("Retrieval complete for need",
		zap.String("need_id", need.ID),
		zap.Int("hits", len(hits)),
		zap.Int("excluded", excluded),
	)

	return domain.RetrievalResult{RoleNeedID: need.ID, Hits: hits}, nil
}
