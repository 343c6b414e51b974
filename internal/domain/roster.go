package domain

// RosterMetadata summarizes one pipeline run.
type RosterMetadata struct {
	GeneratedAt    string   `json:"generated_at"`
	TotalRoles     int      `json:"total_roles"`
	CoveragePct    float64  `json:"coverage_pct"`
	UncoveredNeeds []string `json:"uncovered_needs"`
}

// RoleRoster is the final consolidated output: recommended roles plus grouped views.
type RoleRoster struct {
	Metadata RosterMetadata    `json:"metadata"`
	Roles    []RecommendedRole `json:"roles"`

	ByFunction           map[string][]RecommendedRole `json:"by_function"`
	ByInteractionPattern map[string][]RecommendedRole `json:"by_interaction_pattern"`
	ByTransformation     map[string][]RecommendedRole `json:"by_transformation"`
}

// MatchOutput carries the roster together with per-run intermediate artifacts.
type MatchOutput struct {
	Roster    RoleRoster        `json:"roster"`
	Retrieval []RetrievalResult `json:"retrieval_results"`
	Scoring   []ScoringDetail   `json:"scoring_details"`
	Clusters  []ClusterInfo     `json:"clusters"`
}
