// Package metrics turns the scheduler event stream into prometheus collectors.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

const namespace = "alarm_scheduler"

// Collector is an events.Sink that keeps scheduler metrics.
type Collector struct {
	registry *prometheus.Registry

	pending   prometheus.Gauge
	workers   prometheus.Gauge
	events    *prometheus.CounterVec
	expiryLag prometheus.Histogram
}

// New creates a collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_alarms",
			Help:      "Number of alarms waiting for their due time.",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of running display workers.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Scheduler events by kind.",
		}, []string{"kind"}),
		expiryLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expiry_lag_seconds",
			Help:      "Delay between the due time of an alarm and its processing.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}

	c.registry.MustRegister(
		c.pending,
		c.workers,
		c.events,
		c.expiryLag,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Emit implements events.Sink.
func (c *Collector) Emit(_ context.Context, e alarm.Event) {
	c.events.WithLabelValues(string(e.Kind())).Inc()

	switch ev := e.(type) {
	case alarm.AlarmInserted:
		c.pending.Inc()
	case alarm.AlarmCancelled:
		c.pending.Dec()
	case alarm.AlarmExpired:
		c.pending.Dec()
		c.expiryLag.Observe(ev.Lag().Seconds())
	case alarm.WorkerCreated:
		c.workers.Inc()
	case alarm.WorkerTerminated:
		c.workers.Dec()
	}
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collected metrics in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
