package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	RetrievalHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roledex",
			Name:      "retrieval_hits_total",
			Help:      "Retrieval hits by channel",
		},
		[]string{"channel"}, // "title" / "skills" / "dual"
	)

	RetrievalExcludedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roledex",
			Name:      "retrieval_excluded_total",
			Help:      "Hits dropped by the exclusion filter",
		},
	)

	RerankScoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roledex",
			Name:      "rerank_scored_total",
			Help:      "Scoring verdicts by gate outcome",
		},
		[]string{"outcome"}, // "admitted" / "rejected" / "dropped"
	)

	ScoringRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roledex",
			Name:      "scoring_requests_total",
			Help:      "Total scoring collaborator requests",
		},
		[]string{"model", "status"},
	)

	ScoringRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roledex",
			Name:      "scoring_request_duration_seconds",
			Help:      "Scoring request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ClusterRolesTotal = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "roledex",
			Name:      "cluster_roles_per_run",
			Help:      "Recommended roles produced per pipeline run",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalHitsTotal)
	prometheus.MustRegister(RetrievalExcludedTotal)
	prometheus.MustRegister(RerankScoredTotal)
	prometheus.MustRegister(ScoringRequestsTotal)
	prometheus.MustRegister(ScoringRequestDuration)
	prometheus.MustRegister(ClusterRolesTotal)
	pipelineMetricsRegistered = true
}
