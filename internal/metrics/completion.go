package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat completion metrics. mode is "text" or "structured".
var (
	CompletionRequestsTotal   = newRequestsTotal("completion", "mode")
	CompletionRequestDuration = newRequestDuration("completion",
		[]float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}, "mode")
	CompletionTokensTotal = newTokensTotal("completion") // type: "prompt" / "completion"
	CompletionErrorsTotal = newErrorsTotal("completion")

	CompletionBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completion_budget_tokens_remaining",
			Help:      "Remaining completion token budget",
		},
		[]string{"provider", "period"},
	)
)

var completionMetricsRegistered bool

// RegisterCompletionMetrics registers completion metrics. Must be called once from main.
func RegisterCompletionMetrics() {
	registerOnce(&completionMetricsRegistered,
		CompletionRequestsTotal,
		CompletionRequestDuration,
		CompletionTokensTotal,
		CompletionErrorsTotal,
		CompletionBudgetTokensRemaining,
	)
}
