package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Store Prometheus metrics.
var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicstore",
			Name:      "operations_total",
			Help:      "Total number of store operations",
		},
		[]string{"collection", "op"},
	)

	FlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicstore",
			Name:      "flushes_total",
			Help:      "Total number of store file flushes",
		},
		[]string{"status"}, // "ok" / "error"
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clinicstore",
			Name:      "flush_duration_seconds",
			Help:      "Time spent writing the store file",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	Records = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clinicstore",
			Name:      "records",
			Help:      "Number of records held per collection",
		},
		[]string{"collection"},
	)
)

// UnknownCollection labels operations on names that are not collections of the store.
const UnknownCollection = "unknown"

var registerOnce sync.Once

// Register registers the store metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(OperationsTotal)
		prometheus.MustRegister(FlushesTotal)
		prometheus.MustRegister(FlushDuration)
		prometheus.MustRegister(Records)
	})
}
