package metrics

import "github.com/prometheus/client_golang/prometheus"

// Oracle and pipeline Prometheus metrics.
var (
	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepcoach",
			Name:      "oracle_requests_total",
			Help:      "Total number of external oracle requests",
		},
		[]string{"oracle", "model", "status"},
	)

	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prepcoach",
			Name:      "oracle_request_duration_seconds",
			Help:      "External oracle request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"oracle", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepcoach",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepcoach",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepcoach",
			Name:      "search_requests_total",
			Help:      "Total hybrid search invocations",
		},
		[]string{"outcome"}, // "ok" / "empty" / "error"
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "prepcoach",
			Name:      "search_candidates",
			Help:      "Candidate count after metadata filtering",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	EvaluationStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prepcoach",
			Name:      "evaluation_stage_duration_seconds",
			Help:      "Duration of each submission evaluation stage",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"}, // normalize / transcribe / judge
	)

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepcoach",
			Name:      "evaluations_total",
			Help:      "Total submission evaluations by outcome",
		},
		[]string{"kind", "outcome"}, // kind: code / theory
	)
)

var oracleMetricsRegistered bool

// RegisterOracleMetrics registers pipeline metrics. Must be called once from main.
func RegisterOracleMetrics() {
	if oracleMetricsRegistered {
		return
	}
	prometheus.MustRegister(OracleRequestsTotal)
	prometheus.MustRegister(OracleRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchCandidates)
	prometheus.MustRegister(EvaluationStageDuration)
	prometheus.MustRegister(EvaluationsTotal)
	oracleMetricsRegistered = true
}
