package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_runs_total",
			Help: "Mapping-confirmation runs by terminal outcome",
		},
		[]string{"outcome"},
	)

	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workflow_gateway_call_duration_seconds",
			Help:    "Duration of completion-service calls in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
		[]string{"phase", "result"},
	)

	PersistenceResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_persistence_results_total",
			Help: "Persistence side effects by target and status",
		},
		[]string{"target", "status"},
	)
)
