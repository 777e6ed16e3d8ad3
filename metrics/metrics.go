// Package metrics exports enhancement metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prompt_enhancer/generator"
)

// Exporter records pass and copy outcomes. It satisfies generator.Recorder.
type Exporter struct {
	registry *prometheus.Registry

	passes      *prometheus.CounterVec
	passLatency *prometheus.HistogramVec
	copies      *prometheus.CounterVec
	sessions    prometheus.Gauge
}

// Outcome labels of enhancer_copies_total.
const (
	CopyOutcomeSuccess = "success"
	CopyOutcomeFailure = "failure"
)

// DefaultLatencyBuckets cover fast cached replies up to slow long generations.
var DefaultLatencyBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60}

// New registers all collectors on a private registry.
func New() *Exporter {
	registry := prometheus.NewRegistry()
	e := &Exporter{
		registry: registry,
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enhancer",
			Name:      "passes_total",
			Help:      "Enhancement passes by pass kind and outcome.",
		}, []string{"pass", "outcome"}),
		passLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "enhancer",
			Name:      "pass_duration_seconds",
			Help:      "Time spent waiting on the text generation service.",
			Buckets:   DefaultLatencyBuckets,
		}, []string{"pass"}),
		copies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enhancer",
			Name:      "copies_total",
			Help:      "Copy actions by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "enhancer",
			Name:      "sessions_active",
			Help:      "Sessions currently held by the web server.",
		}),
	}
	registry.MustRegister(e.passes, e.passLatency, e.copies, e.sessions)
	return e
}

// ObservePass implements generator.Recorder.
func (e *Exporter) ObservePass(pass generator.Pass, outcome string, elapsed time.Duration) {
	e.passes.WithLabelValues(pass.String(), outcome).Inc()
	e.passLatency.WithLabelValues(pass.String()).Observe(elapsed.Seconds())
}

// ObserveCopy implements generator.Recorder.
func (e *Exporter) ObserveCopy(ok bool) {
	outcome := CopyOutcomeFailure
	if ok {
		outcome = CopyOutcomeSuccess
	}
	e.copies.WithLabelValues(outcome).Inc()
}

// SessionOpened and SessionClosed track the web session store.
func (e *Exporter) SessionOpened() { e.sessions.Inc() }
func (e *Exporter) SessionClosed() { e.sessions.Dec() }

// Registry exposes the underlying registry, mostly for tests.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry on /metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

var _ generator.Recorder = (*Exporter)(nil)
