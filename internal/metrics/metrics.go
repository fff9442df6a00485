// Package metrics exposes task graph progress as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/specialistvlad/gardengo/internal/events"
)

// Collector is an events.Observer that records task outcomes.
type Collector struct {
	registry *prometheus.Registry

	Tasks    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight *prometheus.GaugeVec
	Batches  prometheus.Counter

	// processing holds batch/key pairs counted in InFlight.
	processing sync.Map
}

var _ events.Observer = (*Collector)(nil)

// New creates a Collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		Tasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gardengo",
				Name:      "tasks_total",
				Help:      "Processed tasks by type and outcome.",
			},
			[]string{"type", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gardengo",
				Name:      "task_duration_seconds",
				Help:      "Task processing time by type.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"type"},
		),
		InFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gardengo",
				Name:      "tasks_in_flight",
				Help:      "Tasks currently being processed.",
			},
			[]string{"type"},
		),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gardengo",
			Name:      "graphs_total",
			Help:      "Completed task graph runs.",
		}),
	}
}

// Notify implements events.Observer.
func (c *Collector) Notify(e events.Event) {
	switch e.Type {
	case events.TaskProcessing:
		c.processing.Store(e.BatchID+"/"+e.Key, struct{}{})
		c.InFlight.WithLabelValues(e.TaskType).Inc()
	case events.TaskComplete:
		c.Tasks.WithLabelValues(e.TaskType, "complete").Inc()
		c.Duration.WithLabelValues(e.TaskType).Observe(e.Duration.Seconds())
		c.done(e)
	case events.TaskError:
		c.Tasks.WithLabelValues(e.TaskType, "error").Inc()
		c.Duration.WithLabelValues(e.TaskType).Observe(e.Duration.Seconds())
		c.done(e)
	case events.TaskSkipped:
		c.Tasks.WithLabelValues(e.TaskType, "skipped").Inc()
	case events.TaskGraphComplete:
		c.Batches.Inc()
	}
}

func (c *Collector) done(e events.Event) {
	if _, ok := c.processing.LoadAndDelete(e.BatchID + "/" + e.Key); ok {
		c.InFlight.WithLabelValues(e.TaskType).Dec()
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
