// Package metrics exposes Prometheus collectors for the purchase path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Purchase outcomes used as the outcome label.
const (
	OutcomeSuccess               = "success"
	OutcomeNotFound              = "not_found"
	OutcomeInsufficientInventory = "insufficient_inventory"
	OutcomeInvalid               = "invalid"
	OutcomeError                 = "error"
)

// Metrics holds the collectors. It implements serializer.Observer.
type Metrics struct {
	queueDepth   prometheus.Gauge
	taskDuration *prometheus.HistogramVec
	purchases    *prometheus.CounterVec
	gatherer     prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tigertix",
			Subsystem: "serializer",
			Name:      "queue_depth",
			Help:      "Tasks waiting behind the one currently running.",
		}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tigertix",
			Subsystem: "serializer",
			Name:      "task_duration_seconds",
			Help:      "Time spent running each serialized task.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"result"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tigertix",
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.queueDepth, m.taskDuration, m.purchases)
	return m
}

// QueueDepth records the current serializer backlog.
func (m *Metrics) QueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// TaskDone records how long a serialized task ran.
func (m *Metrics) TaskDone(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.taskDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// PurchaseOutcome counts one purchase attempt.
func (m *Metrics) PurchaseOutcome(outcome string) {
	m.purchases.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
