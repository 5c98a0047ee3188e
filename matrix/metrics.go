package matrix

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pairsComputedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "distmatrix",
		Name:      "pairs_computed_total",
		Help:      "The total number of pairs measured successfully.",
	}, []string{"strategy"})

	pairFailuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "distmatrix",
		Name:      "pair_failures_total",
		Help:      "The total number of pairs that failed or were dropped.",
	}, []string{"strategy"})

	runDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "distmatrix",
		Name:      "run_duration_seconds",
		Help:      "The time taken to compute a full distance matrix.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"strategy"})
)
