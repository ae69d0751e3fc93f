// Package metrics exposes Prometheus counters for the change bus and the
// configuration write path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kiosk"

// Write results recorded by ConfigWrite.
const (
	ResultOK                 = "ok"
	ResultUnchanged          = "unchanged"
	ResultMalformed          = "malformed_input"
	ResultMissingCredentials = "missing_credentials"
	ResultStorageFailure     = "storage_failure"
)

// Collector owns a private registry so each daemon (and each test) starts
// from zero.
type Collector struct {
	registry *prometheus.Registry

	eventsPublished *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	subscribers     prometheus.Gauge
	configWrites    *prometheus.CounterVec
}

// NewCollector registers the kiosk metrics and the Go runtime collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_events_published_total",
				Help:      "Events published on the change bus",
			},
			[]string{"type"},
		),
		eventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_events_dropped_total",
				Help:      "Events dropped because a subscriber queue was full",
			},
			[]string{"type"},
		),
		subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bus_subscribers",
				Help:      "Live change bus subscribers",
			},
		),
		configWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_writes_total",
				Help:      "Configuration writes by result",
			},
			[]string{"result"},
		),
	}
}

func (c *Collector) EventPublished(eventType string) {
	c.eventsPublished.WithLabelValues(eventType).Inc()
}

func (c *Collector) EventDropped(eventType string) {
	c.eventsDropped.WithLabelValues(eventType).Inc()
}

func (c *Collector) SubscribersChanged(count int) {
	c.subscribers.Set(float64(count))
}

// ConfigWrite records the outcome of one configuration write.
func (c *Collector) ConfigWrite(result string) {
	c.configWrites.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
