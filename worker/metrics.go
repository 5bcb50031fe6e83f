package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks worker activity on its own registry so tests and
// multiple workers in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	claims      prometheus.Counter
	completions prometheus.Counter
	requeues    prometheus.Counter
	inFlight    prometheus.Gauge
	duration    prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adw_worker_claims_total",
			Help: "Issues claimed by this worker.",
		}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adw_worker_completions_total",
			Help: "Workflow runs that exited successfully.",
		}),
		requeues: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adw_worker_requeues_total",
			Help: "Issues returned to pending after a failed run.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adw_worker_in_flight",
			Help: "Workflow subprocesses currently running.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "adw_workflow_duration_seconds",
			Help:    "Wall-clock duration of workflow subprocesses.",
			Buckets: prometheus.ExponentialBuckets(30, 2, 8),
		}),
	}
	m.registry.MustRegister(m.claims, m.completions, m.requeues, m.inFlight, m.duration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
