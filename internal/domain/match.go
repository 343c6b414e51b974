package domain

// RetrievalChannel identifies which nearest-neighbor path produced a hit.
type RetrievalChannel string

const (
	ChannelTitle  RetrievalChannel = "title"
	ChannelSkills RetrievalChannel = "skills"
	ChannelDual   RetrievalChannel = "dual"
)

// RetrievalHit is one vacancy surfaced for a role need. At most one hit per
// vacancy id per need; channel collisions upgrade to ChannelDual.
type RetrievalHit struct {
	VacancyID        string           `json:"vacancy_id"`
	VacancyTitle     string           `json:"vacancy_title"`
	EnrichedJobTitle string           `json:"enriched_job_title"`
	CosineScore      float64          `json:"cosine_score"`
	Channel          RetrievalChannel `json:"channel"`
	QueryUsed        string           `json:"query_used,omitempty"`
}

// RetrievalResult is the fused, exclusion-filtered hit set for one role need.
// An empty Hits slice is a legitimate uncovered-need outcome, not an error.
type RetrievalResult struct {
	RoleNeedID string          `json:"role_need_id"`
	Hits       []RetrievalHit  `json:"hits"`
	Scored     []ScoringDetail `json:"scored,omitempty"`
}

// AxisScores is one scoring collaborator verdict: three 0-5 subscores plus rationale.
type AxisScores struct {
	TaskScore      float64 `json:"task_score"`
	DomainScore    float64 `json:"domain_score"`
	SeniorityScore float64 `json:"seniority_score"`
	Rationale      string  `json:"rationale"`
}

// Composite score weights and the default admission threshold.
const (
	TaskWeight      = 0.40
	DomainWeight    = 0.40
	SeniorityWeight = 0.20

	DefaultRerankThreshold = 3.0
)

// Composite fuses the three subscores into the gate score.
func (a AxisScores) Composite() float64 {
	return TaskWeight*a.TaskScore + DomainWeight*a.DomainScore + SeniorityWeight*a.SeniorityScore
}

// ScoringDetail is a (role need, vacancy) pair that survived the rerank gate.
type ScoringDetail struct {
	VacancyID        string  `json:"vacancy_id"`
	EnrichedJobTitle string  `json:"enriched_job_title"`
	RoleNeedID       string  `json:"role_need_id"`
	TaskScore        float64 `json:"task_score"`
	DomainScore      float64 `json:"domain_score"`
	SeniorityScore   float64 `json:"seniority_score"`
	CompositeScore   float64 `json:"composite_score"`
	Rationale        string  `json:"rationale,omitempty"`
}

// ClusterInfo is the per-run diagnostic view of one title cluster.
type ClusterInfo struct {
	ClusterID        int      `json:"cluster_id"`
	CanonicalTitle   string   `json:"canonical_title"`
	MemberTitles     []string `json:"member_titles"`
	MemberVacancyIDs []string `json:"member_vacancy_ids"`
	CentroidDistance float64  `json:"centroid_distance"`
}

// RecommendedRole is the externally visible unit of output: one canonical role
// consolidated from a cluster of surviving vacancy titles.
type RecommendedRole struct {
	CanonicalTitle           string             `json:"canonical_title"`
	AlternativeTitles        []string           `json:"alternative_titles"`
	MappedRoleNeeds          []string           `json:"mapped_role_needs"`
	RepresentativeVacancyIDs []string           `json:"representative_vacancy_ids"`
	Category                 RoleCategory       `json:"category"`
	InteractionPattern       InteractionPattern `json:"interaction_pattern"`
	Seniority                SenioritySignal    `json:"seniority"`
	Confidence               float64            `json:"confidence"`
	RetrievalChannel         RetrievalChannel   `json:"retrieval_channel"`
	Transformation           RoleTransformation `json:"transformation"`
	Justification            string             `json:"justification,omitempty"`
}
