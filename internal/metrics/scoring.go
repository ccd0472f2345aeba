package metrics

import "github.com/prometheus/client_golang/prometheus"

// Scoring engine Prometheus metrics.
var (
	ScoringRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docscore",
			Name:      "scoring_runs_total",
			Help:      "Total number of scoring runs",
		},
		[]string{"method", "status"}, // status: "ok" / "warning" / "error" / "cancelled"
	)

	ScoringRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docscore",
			Name:      "scoring_run_duration_seconds",
			Help:      "Scoring run duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"method"},
	)

	ScoringSupersededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docscore",
			Name:      "scoring_superseded_total",
			Help:      "Scoring runs cancelled because a newer request arrived",
		},
	)
)

var scoringMetricsRegistered bool

// RegisterScoringMetrics registers Prometheus scoring metrics. Must be called once from main.
func RegisterScoringMetrics() {
	if scoringMetricsRegistered {
		return
	}
	prometheus.MustRegister(ScoringRunsTotal)
	prometheus.MustRegister(ScoringRunDuration)
	prometheus.MustRegister(ScoringSupersededTotal)
	scoringMetricsRegistered = true
}
