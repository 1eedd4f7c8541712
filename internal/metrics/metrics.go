// Package metrics exposes medic's Prometheus collectors on a dedicated
// registry.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

const namespace = "medic"

// Metrics groups every collector medic updates.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	Runs         *prometheus.CounterVec
	Actions      *prometheus.CounterVec
	RunsActive   prometheus.Gauge
	RunDuration  prometheus.Histogram
}

// New registers the collectors on a fresh registry, alongside the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished remediation runs, by target and verdict.",
		}, []string{"target", "verdict"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Remediation actions applied, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RunsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Remediation runs currently executing.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of remediation runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.Runs,
		m.Actions,
		m.RunsActive,
		m.RunDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest counts one served request.
func (m *Metrics) ObserveRequest(method string, code int) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveRun records a finished run and each of its actions.
func (m *Metrics) ObserveRun(res domain.LoopResult) {
	m.Runs.WithLabelValues(res.Target, string(res.Verdict)).Inc()
	if !res.StartedAt.IsZero() && !res.FinishedAt.IsZero() {
		m.RunDuration.Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())
	}
	for _, a := range res.Actions {
		m.Actions.WithLabelValues(string(a.Outcome.Applied), string(a.Outcome.Kind)).Inc()
	}
}
