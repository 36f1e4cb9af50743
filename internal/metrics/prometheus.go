package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbprop_propagations_total",
			Help: "Total number of propagation calls.",
		},
		[]string{"backend", "result"},
	)

	propagationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbprop_propagation_duration_seconds",
			Help:    "Propagation call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	propagatedRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbprop_propagated_rows_total",
			Help: "Total number of result rows produced.",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(propagationsTotal)
	prometheus.MustRegister(propagationDurationSeconds)
	prometheus.MustRegister(propagatedRowsTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePropagation records one dispatcher call. A nil err counts as "ok".
func ObservePropagation(backend string, rows int, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	propagationsTotal.WithLabelValues(backend, result).Inc()
	propagationDurationSeconds.WithLabelValues(backend).Observe(elapsed.Seconds())
	if rows > 0 {
		propagatedRowsTotal.WithLabelValues(backend).Add(float64(rows))
	}
}
