package organizer

import "github.com/prometheus/client_golang/prometheus"

// blocks prometheus metric.
var blocks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Help:      "Number of blocks handled by the organizer by result",
		Name:      "blocks_total",
		Namespace: "chasenode",
		Subsystem: "organizer",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(blocks)
}

func updateBlocksMetric(result string) {
	blocks.WithLabelValues(result).Inc()
}
