package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics are registered per server so tests can build several servers.
type metrics struct {
	registry *prometheus.Registry

	// requests counts handled requests. Labels: route, code.
	requests *prometheus.CounterVec
	// computeSeconds measures curve and report computation. Labels: kind.
	computeSeconds *prometheus.HistogramVec
	// curves counts computed curves by dataset.
	curves *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regreport",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Handled HTTP requests by route and status code",
		}, []string{"route", "code"}),
		computeSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "regreport",
			Subsystem: "report",
			Name:      "compute_seconds",
			Help:      "Time to load results and compute a report",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind"}),
		curves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regreport",
			Subsystem: "report",
			Name:      "curves_total",
			Help:      "Success curves computed by dataset",
		}, []string{"dataset"}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
