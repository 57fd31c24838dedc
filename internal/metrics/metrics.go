// Package metrics holds the Prometheus collectors shared by the scheduler,
// the push dispatcher and the completion propagator. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lazyday"

type Metrics struct {
	gatherer prometheus.Gatherer

	sweeps           prometheus.Counter
	triggered        *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	pruned           prometheus.Counter
	propagations     *prometheus.CounterVec
	schedulerRunning prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		sweeps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_sweeps_total",
			Help:      "Experience scheduler sweeps that ran (quiet-window skips excluded).",
		}),
		triggered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experiences_triggered_total",
			Help:      "Experiences moved to pending, by trigger mode.",
		}, []string{"mode"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_deliveries_total",
			Help:      "Push delivery attempts by outcome.",
		}, []string{"result"}),
		pruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_subscriptions_pruned_total",
			Help:      "Subscriptions removed because the push service reported them gone.",
		}),
		propagations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Completion propagations between collections and Today.",
		}, []string{"direction", "result"}),
		schedulerRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 while the experience scheduler loop is running.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Sweep() {
	if m == nil {
		return
	}
	m.sweeps.Inc()
}

func (m *Metrics) Triggered(mode string) {
	if m == nil {
		return
	}
	m.triggered.WithLabelValues(mode).Inc()
}

func (m *Metrics) Delivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) Pruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}

func (m *Metrics) Propagation(direction string, ok bool) {
	if m == nil {
		return
	}
	result := "updated"
	if !ok {
		result = "skipped"
	}
	m.propagations.WithLabelValues(direction, result).Inc()
}

func (m *Metrics) SchedulerRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.schedulerRunning.Set(1)
		return
	}
	m.schedulerRunning.Set(0)
}
