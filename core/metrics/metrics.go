// Package metrics holds the Prometheus collectors shared by the bot runtime
// and serves them next to a health probe.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "achibot"

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	// Updates counts handled updates by handler and status (ok|fail|skip).
	Updates *prometheus.CounterVec
	// HandlerDuration observes handler latency in seconds.
	HandlerDuration *prometheus.HistogramVec
	// MessagesSent counts outbound messages and edits.
	MessagesSent *prometheus.CounterVec
	// NavSteps counts navigation inputs by classifier and outcome.
	NavSteps *prometheus.CounterVec
	// Sessions reports the number of chats with navigation state.
	Sessions prometheus.Gauge
	// RateLimited counts updates dropped by the rate limiter.
	RateLimited prometheus.Counter
}

// New builds a fresh set of collectors. Go runtime and process collectors are
// registered as well.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates handled, by handler and status.",
		}, []string{"handler", "status"}),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"handler"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages, by kind (send|edit) and keyboard presence.",
		}, []string{"kind", "keyboard"}),
		NavSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_steps_total",
			Help:      "Navigation inputs, by classifier and outcome.",
		}, []string{"classifier", "outcome"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "navigation_sessions",
			Help:      "Chats currently holding navigation state.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the rate limiter.",
		}),
	}
	m.reg.MustRegister(
		m.Updates,
		m.HandlerDuration,
		m.MessagesSent,
		m.NavSteps,
		m.Sessions,
		m.RateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Default is the process-wide collector set used by the Telegram runtime.
var Default = New()
