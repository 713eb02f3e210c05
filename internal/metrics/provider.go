package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ragchat"

// Upstream model calls (embedding, completion) share one label layout:
// provider and model first, then per-kind extras.
func providerLabels(extra ...string) []string {
	return append([]string{"provider", "model"}, extra...)
}

func newRequestsTotal(kind string, extra ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      kind + "_requests_total",
			Help:      "Total number of " + kind + " requests",
		},
		providerLabels(append(extra, "status")...),
	)
}

func newRequestDuration(kind string, buckets []float64, extra ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      kind + "_request_duration_seconds",
			Help:      kind + " request duration in seconds",
			Buckets:   buckets,
		},
		providerLabels(extra...),
	)
}

func newTokensTotal(kind string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      kind + "_tokens_total",
			Help:      "Total " + kind + " tokens consumed",
		},
		providerLabels("type"),
	)
}

func newErrorsTotal(kind string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      kind + "_errors_total",
			Help:      "Total " + kind + " errors",
		},
		providerLabels("error_type"),
	)
}

// registerOnce registers collectors with the default registry the first time it is called for done.
func registerOnce(done *bool, cs ...prometheus.Collector) {
	if *done {
		return
	}
	prometheus.MustRegister(cs...)
	*done = true
}
