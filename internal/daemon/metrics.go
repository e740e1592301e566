package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	pagesWritten  prometheus.Counter
	unresolved    prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erldoc",
			Name:      "requests_total",
			Help:      "Daemon requests by endpoint.",
		}, []string{"endpoint"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erldoc",
			Name:      "builds_total",
			Help:      "Builds by outcome.",
		}, []string{"outcome"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "erldoc",
			Name:      "build_duration_seconds",
			Help:      "Wall time of completed builds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		pagesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erldoc",
			Name:      "pages_written_total",
			Help:      "Rendered pages written to the output directory.",
		}),
		unresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "erldoc",
			Name:      "unresolved_references",
			Help:      "Unresolved references in the most recent build.",
		}),
	}
	m.registry.MustRegister(m.requests, m.builds, m.buildDuration, m.pagesWritten, m.unresolved)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
