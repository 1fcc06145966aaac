package server

import (
	"deployconsole/internal/phase"
	"deployconsole/internal/poll"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on a per-server registry so several servers (and
// tests) can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	polls      *prometheus.CounterVec
	items      *prometheus.GaugeVec
	lastPollTS prometheus.Gauge
	changes    *prometheus.CounterVec
}

// NewMetrics creates and registers the console metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deployconsole_poll_total",
			Help: "Polls of the management API by outcome",
		}, []string{"outcome"}), // outcome=success|failure
		items: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "deployconsole_items",
			Help: "Tracked items per resolved phase (last successful poll)",
		}, []string{"phase"}),
		lastPollTS: f.NewGauge(prometheus.GaugeOpts{
			Name: "deployconsole_last_poll_timestamp_seconds",
			Help: "Unix time of the last completed poll",
		}),
		changes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "deployconsole_phase_transitions_total",
			Help: "Observed phase changes of tracked items by target phase",
		}, []string{"to"}),
	}
}

// Observe records one poll result.
func (m *Metrics) Observe(res poll.Result) {
	if !res.FetchedAt.IsZero() {
		m.lastPollTS.Set(float64(res.FetchedAt.Unix()))
	}
	if res.Err != nil {
		m.polls.WithLabelValues("failure").Inc()
		return
	}
	m.polls.WithLabelValues("success").Inc()
	counts := res.Counts()
	for _, p := range []phase.Phase{phase.Pending, phase.Scheduled, phase.Running, phase.Finished, phase.Error} {
		m.items.WithLabelValues(p.String()).Set(float64(counts[p]))
	}
}

// ObserveTransition counts one phase change.
func (m *Metrics) ObserveTransition(tr poll.Transition) {
	m.changes.WithLabelValues(tr.To.String()).Inc()
}
