// Package metrics exposes provider attempt, latency and fallback metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coursegen"

const (
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
	OutcomeMalformed   = "malformed"
)

// Recorder receives one event per provider attempt.
type Recorder interface {
	ObserveAttempt(provider, op, outcome string, elapsed time.Duration)
	ObserveFallback(op string)
}

type Nop struct{}

func (Nop) ObserveAttempt(string, string, string, time.Duration) {}
func (Nop) ObserveFallback(string)                               {}

type Metrics struct {
	gatherer prometheus.Gatherer

	attempts  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
	requests  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Generation attempts per provider, operation and outcome",
			},
			[]string{"provider", "op", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Latency of generation attempts that reached a provider",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "op"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Times an operation moved on to the next provider",
			},
			[]string{"op"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
	}
}

func (m *Metrics) ObserveAttempt(provider, op, outcome string, elapsed time.Duration) {
	m.attempts.WithLabelValues(provider, op, outcome).Inc()
	if outcome != OutcomeUnavailable {
		m.latency.WithLabelValues(provider, op).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveFallback(op string) {
	m.fallbacks.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveRequest(route string, status int) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Gatherer() prometheus.Gatherer { return m.gatherer }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
