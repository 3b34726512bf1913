// Package metrics provides Prometheus metrics for the chat service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	MessagesTotal        *prometheus.CounterVec
	RepliesTotal         *prometheus.CounterVec
	GenerationDuration   *prometheus.HistogramVec
	RevealEmissionsTotal prometheus.Counter
	RevealAbortsTotal    prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatreveal_messages_persisted_total",
				Help: "Messages written to the store, by role",
			},
			[]string{"role"},
		),
		RepliesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatreveal_replies_total",
				Help: "Bot replies by source (backend, no_reply, echo, fallback)",
			},
			[]string{"source"},
		),
		GenerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatreveal_generation_duration_seconds",
				Help:    "Latency of generation backend calls",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "outcome"},
		),
		RevealEmissionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "chatreveal_reveal_emissions_total",
			Help: "Prefixes emitted to reveal streams",
		}),
		RevealAbortsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "chatreveal_reveal_aborts_total",
			Help: "Reveal loops cut short by caller cancellation",
		}),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatreveal_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatreveal_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) MessagePersisted(role string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(role).Inc()
}

func (m *Metrics) Reply(source string) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveGeneration(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GenerationDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

func (m *Metrics) RevealEmitted() {
	if m == nil {
		return
	}
	m.RevealEmissionsTotal.Inc()
}

func (m *Metrics) RevealAborted() {
	if m == nil {
		return
	}
	m.RevealAbortsTotal.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
