package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query embedding metrics. The cache counter is incremented by the Redis cache decorator.
var (
	EmbeddingRequestsTotal   = newRequestsTotal("embedding")
	EmbeddingRequestDuration = newRequestDuration("embedding", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	EmbeddingTokensTotal     = newTokensTotal("embedding")
	EmbeddingErrorsTotal     = newErrorsTotal("embedding")

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers embedding metrics. Must be called once from main.
func RegisterEmbeddingMetrics() {
	registerOnce(&embMetricsRegistered,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
	)
}
