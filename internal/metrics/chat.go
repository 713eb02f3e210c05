package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat pipeline Prometheus metrics.
var (
	RetrievalFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Retriever failures that degraded to an empty result",
		},
		[]string{"retriever"}, // "lexical" / "semantic" / "expansion" / "expansion_query"
	)

	RetrievalResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Documents returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12, 16},
		},
		[]string{"retriever"},
	)

	FollowUpFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followup_failures_total",
			Help:      "Follow-up generations that returned no questions because of an error",
		},
		[]string{"reason"}, // "retrieval" / "prompt" / "completion" / "malformed" / "schema"
	)

	MemoryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_errors_total",
			Help:      "Conversation memory failures",
		},
		[]string{"op"}, // "read" / "append" / "purge"
	)

	MemoryOrphansPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_orphans_purged_total",
			Help:      "Sessions removed because their assistant no longer exists",
		},
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers retrieval, follow-up and memory metrics. Must be called once from main.
func RegisterChatMetrics() {
	registerOnce(&chatMetricsRegistered,
		RetrievalFailuresTotal,
		RetrievalResults,
		FollowUpFailuresTotal,
		MemoryErrorsTotal,
		MemoryOrphansPurgedTotal,
	)
}
