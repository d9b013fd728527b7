package chase

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring the bus.
var (
	// published prometheus metric.
	published = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of events published on the chase bus",
			Name:      "events_published_total",
			Namespace: "chasenode",
			Subsystem: "chase",
		},
		[]string{"kind"},
	)
	// subscribers prometheus metric.
	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current number of chase bus subscribers",
			Name:      "subscribers",
			Namespace: "chasenode",
			Subsystem: "chase",
		},
	)
)

func init() {
	prometheus.MustRegister(
		published,
		subscribers,
	)
}

func updatePublishedMetric(kind Kind) {
	published.WithLabelValues(kind.String()).Inc()
}

func updateSubscribersMetric(count int) {
	subscribers.Set(float64(count))
}
