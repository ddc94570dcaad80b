// Package metrics exposes prometheus collectors for the signaling surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts coordinator operations by outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "operations_total",
		Help:      "Coordinator operations by operation and result.",
	}, []string{"op", "result"})

	// EngineErrorsTotal counts media engine failures surfaced to callers.
	EngineErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "engine_errors_total",
		Help:      "Media engine failures by operation.",
	}, []string{"op"})
)

// RegisterMatchGauge exports the live match count without polling loops.
func RegisterMatchGauge(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "matchcast",
		Name:      "matches",
		Help:      "Matches with at least one registered resource.",
	}, func() float64 { return float64(count()) })
}
