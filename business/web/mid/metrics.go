package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/chasenode/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring the web api.
var (
	// requests prometheus metric.
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of requests handled by method",
			Name:      "requests_total",
			Namespace: "chasenode",
			Subsystem: "web",
		},
		[]string{"method"},
	)
	// failures prometheus metric.
	failures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of requests that returned an error",
			Name:      "errors_total",
			Namespace: "chasenode",
			Subsystem: "web",
		},
	)
	// panics prometheus metric.
	panics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of recovered handler panics",
			Name:      "panics_total",
			Namespace: "chasenode",
			Subsystem: "web",
		},
	)
)

func init() {
	prometheus.MustRegister(
		requests,
		failures,
		panics,
	)
}

func updatePanicsMetric() {
	panics.Inc()
}

// Metrics updates program counters.
func Metrics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			requests.WithLabelValues(r.Method).Inc()
			if err != nil {
				failures.Inc()
			}

			return err
		}

		return h
	}

	return m
}
