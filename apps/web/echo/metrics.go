package echoweb

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the web front end's prometheus collectors, served on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	// AuthAttempts counts login and signup submissions by outcome.
	AuthAttempts *prometheus.CounterVec
	// GuardDenials counts protected navigations turned away, by reason.
	GuardDenials *prometheus.CounterVec
	// SessionExpiries counts sessions ended without a logout, by cause.
	SessionExpiries *prometheus.CounterVec
	// Tabs is the number of live tab scopes.
	Tabs prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemlearn_auth_attempts_total",
				Help: "Total login and signup submissions by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		GuardDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemlearn_guard_denials_total",
				Help: "Total protected navigations denied by reason.",
			},
			[]string{"reason"},
		),
		SessionExpiries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemlearn_session_expiries_total",
				Help: "Total sessions ended by the expiry timer or a 401 answer.",
			},
			[]string{"cause"},
		),
		Tabs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stemlearn_tabs",
			Help: "Number of live tab scopes.",
		}),
	}
	m.registry.MustRegister(
		m.AuthAttempts,
		m.GuardDenials,
		m.SessionExpiries,
		m.Tabs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
