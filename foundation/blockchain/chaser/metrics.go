package chaser

import (
	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring the chasers.
var (
	// handled prometheus metric.
	handled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of events handled by each chaser",
			Name:      "events_handled_total",
			Namespace: "chasenode",
			Subsystem: "chaser",
		},
		[]string{"chaser", "kind"},
	)
	// unconfirmed prometheus metric.
	unconfirmed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current number of tracked unconfirmed transactions",
			Name:      "unconfirmed_transactions",
			Namespace: "chasenode",
			Subsystem: "chaser",
		},
	)
	// storageFull prometheus metric.
	storageFull = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Set to 1 while storage is full and the network is suspended",
			Name:      "storage_full",
			Namespace: "chasenode",
			Subsystem: "chaser",
		},
	)
	// candidates prometheus metric.
	candidates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of candidate blocks built",
			Name:      "candidates_built_total",
			Namespace: "chasenode",
			Subsystem: "chaser",
		},
	)
	// templates prometheus metric.
	templates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of mining templates built",
			Name:      "templates_built_total",
			Namespace: "chasenode",
			Subsystem: "chaser",
		},
	)
)

func init() {
	prometheus.MustRegister(
		handled,
		unconfirmed,
		storageFull,
		candidates,
		templates,
	)
}

func updateHandledMetric(name string, kind chase.Kind) {
	handled.WithLabelValues(name, kind.String()).Inc()
}

func updateUnconfirmedMetric(count int) {
	unconfirmed.Set(float64(count))
}

func updateStorageFullMetric(full bool) {
	if full {
		storageFull.Set(1)
		return
	}
	storageFull.Set(0)
}

func updateCandidatesMetric() {
	candidates.Inc()
}

func updateTemplatesMetric() {
	templates.Inc()
}
