package cluster

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/roledex/internal/domain"
	"github.com/kailas-cloud/roledex/internal/index"
	"github.com/kailas-cloud/roledex/internal/metrics"
)

// Output caps on the externally visible role and cluster views.
const (
	representativeVacancyCap = 5
	clusterMemberIDCap       = 10
)

// Config tunes clustering.
type Config struct {
	DistanceThreshold float64
}

// Service consolidates surviving (need, vacancy) pairs into recommended
// roles: distinct enriched titles are embedded, clustered by cosine distance
// with average linkage, and each cluster collapses into one canonical role.
type Service struct {
	embedder domain.BatchEmbedder
	vectors  StoredVectorSource
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the clustering service. vectors may be nil, in which
// case every title is embedded fresh.
func NewService(embedder domain.BatchEmbedder, vectors StoredVectorSource, cfg Config, logger *zap.Logger) *Service {
	if cfg.DistanceThreshold <= 0 {
		cfg.DistanceThreshold = 0.35
	}
	return &Service{embedder: embedder, vectors: vectors, cfg: cfg, logger: logger}
}

// titleGroup accumulates everything known about one surviving enriched title.
type titleGroup struct {
	needIDs    []string
	vacancyIDs []string
	scores     []float64
	channels   map[domain.RetrievalChannel]bool
}

// Cluster groups the scored survivors of all retrieval results into
// recommended roles. No survivors is a legitimate empty outcome.
func (s *Service) Cluster(ctx context.Context, needs []domain.RoleNeed, results []domain.RetrievalResult) ([]domain.RecommendedRole, []domain.ClusterInfo, error) {
	needByID := make(map[string]domain.RoleNeed, len(needs))
	for _, n := range needs {
		needByID[n.ID] = n
	}

	titles, groups := collectGroups(results)
	if len(titles) == 0 {
		s.logger.Warn("No vacancies survived the rerank gate")
		metrics.ClusterRolesTotal.Observe(0)
		return nil, nil, nil
	}

	if len(titles) == 1 {
		role, info := s.buildRole(0, titles, []int{0}, 0, groups, needByID)
		metrics.ClusterRolesTotal.Observe(1)
		return []domain.RecommendedRole{role}, []domain.ClusterInfo{info}, nil
	}

	vecs, err := s.titleVectors(ctx, titles, groups)
	if err != nil {
		return nil, nil, err
	}

	dist, err := cosineDistances(vecs)
	if err != nil {
		return nil, nil, err
	}
	labels := agglomerate(dist, s.cfg.DistanceThreshold)

	clusterMembers := map[int][]int{}
	maxLabel := 0
	for idx, label := range labels {
		clusterMembers[label] = append(clusterMembers[label], idx)
		if label > maxLabel {
			maxLabel = label
		}
	}

	roles := make([]domain.RecommendedRole, 0, maxLabel+1)
	infos := make([]domain.ClusterInfo, 0, maxLabel+1)
	for label := 0; label <= maxLabel; label++ {
		memberIdx := clusterMembers[label]

		memberVecs := make([][]float32, len(memberIdx))
		for i, idx := range memberIdx {
			memberVecs[i] = vecs[idx]
		}
		c, err := centroid(memberVecs)
		if err != nil {
			return nil, nil, fmt.Errorf("cluster %d: %w", label, err)
		}

		// Canonical title: minimum cosine distance to the centroid, earliest
		// member on ties.
		canonical := 0
		minDist := 2.0
		for i, v := range memberVecs {
			if d := 1 - float64(index.Dot(v, c)); d < minDist {
				minDist = d
				canonical = i
			}
		}

		role, info := s.buildRole(label, titles, memberIdx, canonical, groups, needByID)
		info.CentroidDistance = minDist
		roles = append(roles, role)
		infos = append(infos, info)
	}

	// Highest-confidence roles first; stable to keep cluster order on ties.
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Confidence > roles[j].Confidence
	})

	s.logger.Info("Clustering complete",
		zap.Int("titles", len(titles)),
		zap.Int("roles", len(roles)),
	)
	metrics.ClusterRolesTotal.Observe(float64(len(roles)))
	return roles, infos, nil
}

// titleVectors resolves one unit-norm vector per title, reusing vectors the
// store already holds for the title's vacancies and embedding only the rest.
func (s *Service) titleVectors(ctx context.Context, titles []string, groups map[string]*titleGroup) ([][]float32, error) {
	vecs := make([][]float32, len(titles))
	var missing []string
	var missingIdx []int
	for i, title := range titles {
		if s.vectors != nil {
			g := groups[title]
			if len(g.vacancyIDs) > 0 {
				if v, ok := s.vectors.EmbeddingByID(g.vacancyIDs[0]); ok {
					vecs[i] = v
					continue
				}
			}
		}
		missing = append(missing, title)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vecs, nil
	}

	embedded, err := s.embedder.BatchEmbed(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("embed cluster titles: %w", err)
	}
	if len(embedded.Embeddings) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d titles", len(embedded.Embeddings), len(missing))
	}
	for i, idx := range missingIdx {
		v := embedded.Embeddings[i]
		if !index.IsUnitNorm(v) {
			if err := index.Normalize(v); err != nil {
				return nil, fmt.Errorf("normalize title embedding: %w", err)
			}
		}
		vecs[idx] = v
	}
	return vecs, nil
}

// collectGroups indexes scored survivors by enriched title, in first-seen order.
func collectGroups(results []domain.RetrievalResult) ([]string, map[string]*titleGroup) {
	var titles []string
	groups := map[string]*titleGroup{}

	for _, rr := range results {
		channelByID := make(map[string]domain.RetrievalChannel, len(rr.Hits))
		for _, hit := range rr.Hits {
			channelByID[hit.VacancyID] = hit.Channel
		}

		for _, sd := range rr.Scored {
			g, ok := groups[sd.EnrichedJobTitle]
			if !ok {
				g = &titleGroup{channels: map[domain.RetrievalChannel]bool{}}
				groups[sd.EnrichedJobTitle] = g
				titles = append(titles, sd.EnrichedJobTitle)
			}
			g.needIDs = append(g.needIDs, sd.RoleNeedID)
			g.vacancyIDs = append(g.vacancyIDs, sd.VacancyID)
			g.scores = append(g.scores, sd.CompositeScore)
			if ch, ok := channelByID[sd.VacancyID]; ok {
				g.channels[ch] = true
			}
		}
	}
	return titles, groups
}

func (s *Service) buildRole(
	clusterID int,
	titles []string,
	memberIdx []int,
	canonical int,
	groups map[string]*titleGroup,
	needByID map[string]domain.RoleNeed,
) (domain.RecommendedRole, domain.ClusterInfo) {
	canonicalTitle := titles[memberIdx[canonical]]

	var (
		memberTitles []string
		altTitles    []string
		needIDs      []string
		vacancyIDs   []string
		scores       []float64
	)
	channels := map[domain.RetrievalChannel]bool{}
	seenNeed := map[string]bool{}
	seenVacancy := map[string]bool{}

	for _, idx := range memberIdx {
		title := titles[idx]
		memberTitles = append(memberTitles, title)
		if title != canonicalTitle {
			altTitles = append(altTitles, title)
		}
		g := groups[title]
		for _, nid := range g.needIDs {
			if !seenNeed[nid] {
				seenNeed[nid] = true
				needIDs = append(needIDs, nid)
			}
		}
		for _, vid := range g.vacancyIDs {
			if !seenVacancy[vid] {
				seenVacancy[vid] = true
				vacancyIDs = append(vacancyIDs, vid)
			}
		}
		scores = append(scores, g.scores...)
		for ch := range g.channels {
			channels[ch] = true
		}
	}

	confidence := 0.0
	for _, sc := range scores {
		confidence += sc
	}
	if len(scores) > 0 {
		confidence /= float64(len(scores))
	}

	var categories []domain.RoleCategory
	var seniorities []domain.SenioritySignal
	var patterns []domain.InteractionPattern
	var transformations []domain.RoleTransformation
	for _, nid := range needIDs {
		need, ok := needByID[nid]
		if !ok {
			continue
		}
		categories = append(categories, need.Category)
		seniorities = append(seniorities, need.SenioritySignal)
		patterns = append(patterns, need.InteractionPattern)
		transformations = append(transformations, need.Transformation)
	}

	transformation := domain.RoleTransformation{TransformationType: domain.TransformationExistingUnchanged}
	if len(transformations) > 0 {
		transformation = transformations[0]
	}

	role := domain.RecommendedRole{
		CanonicalTitle:           canonicalTitle,
		AlternativeTitles:        altTitles,
		MappedRoleNeeds:          needIDs,
		RepresentativeVacancyIDs: capStrings(vacancyIDs, representativeVacancyCap),
		Category:                 mostCommon(categories, domain.CategoryOperational),
		InteractionPattern:       mostCommon(patterns, ""),
		Seniority:                mostCommon(seniorities, domain.SeniorityExperienced),
		Confidence:               confidence,
		RetrievalChannel:         dominantChannel(channels),
		Transformation:           transformation,
	}
	info := domain.ClusterInfo{
		ClusterID:        clusterID,
		CanonicalTitle:   canonicalTitle,
		MemberTitles:     memberTitles,
		MemberVacancyIDs: capStrings(vacancyIDs, clusterMemberIDCap),
	}
	return role, info
}

// dominantChannel applies the dual > skills > title precedence.
func dominantChannel(channels map[domain.RetrievalChannel]bool) domain.RetrievalChannel {
	switch {
	case channels[domain.ChannelDual]:
		return domain.ChannelDual
	case channels[domain.ChannelSkills]:
		return domain.ChannelSkills
	default:
		return domain.ChannelTitle
	}
}

// mostCommon returns the modal value, first-seen on ties.
func mostCommon[T comparable](items []T, fallback T) T {
	if len(items) == 0 {
		return fallback
	}
	counts := map[T]int{}
	best := items[0]
	bestCount := 0
	for _, item := range items {
		counts[item]++
		if counts[item] > bestCount {
			bestCount = counts[item]
			best = item
		}
	}
	return best
}

func capStrings(items []string, limit int) []string {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
