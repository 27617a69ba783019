package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the consolidation engine.
type Metrics struct {
	LegsIngested       prometheus.Counter
	DuplicatesRejected prometheus.Counter
	TripsMerged        prometheus.Counter
	TripsSplit         prometheus.Counter
	SweepsRun          prometheus.Counter
	SweepDuration      prometheus.Histogram
	EmailsImported     prometheus.Counter
	ErrorsCount        *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		LegsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legs_ingested_total",
			Help:      "The total number of flight legs accepted",
		}),
		DuplicatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_legs_rejected_total",
			Help:      "The total number of candidate legs rejected as duplicates",
		}),
		TripsMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_merged_total",
			Help:      "The total number of one-way pairs merged into round trips",
		}),
		TripsSplit: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_split_total",
			Help:      "The total number of round trips split back into one-way trips",
		}),
		SweepsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_run_total",
			Help:      "The total number of re-normalization sweeps executed",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time taken by a full re-normalization sweep",
			Buckets:   prometheus.DefBuckets,
		}),
		EmailsImported: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_imported_total",
			Help:      "The total number of import emails processed",
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
