// Package metrics implements the Prometheus collector for gridbalancer
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridbalancer/internal/types"
)

// Routing failure reasons
const (
	ReasonNoBackend    = "no_backend"
	ReasonForwardError = "forward_error"
)

// Collector tracks routing counters and per-substation gauges
type Collector struct {
	registry *prometheus.Registry

	requestsTotal    prometheus.Counter
	routingDecisions *prometheus.CounterVec
	routingFailures  *prometheus.CounterVec
	substationLoad   *prometheus.GaugeVec
	substationHealth *prometheus.GaugeVec
	pollDuration     prometheus.Histogram
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "load_balancer_requests_total",
				Help: "Total requests processed",
			},
		),

		routingDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routing_decisions_total",
				Help: "Routing decisions made",
			},
			[]string{"substation_id"},
		),

		routingFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routing_failures_total",
				Help: "Routing attempts that failed",
			},
			[]string{"reason"},
		),

		substationLoad: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "substation_load_percentage",
				Help: "Current load percentage",
			},
			[]string{"substation_id"},
		),

		substationHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "substation_healthy",
				Help: "Substation health (1 healthy, 0 unhealthy)",
			},
			[]string{"substation_id"},
		),

		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "polling_duration_seconds",
				Help:    "Time to poll substation metrics",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.routingDecisions,
		c.routingFailures,
		c.substationLoad,
		c.substationHealth,
		c.pollDuration,
	)

	return c
}

// RecordRequest counts one inbound charge request
func (c *Collector) RecordRequest() {
	c.requestsTotal.Inc()
}

// RecordRoutingDecision counts one routing decision
func (c *Collector) RecordRoutingDecision(substationID string) {
	c.routingDecisions.WithLabelValues(substationID).Inc()
}

// RecordRoutingFailure counts one failed routing attempt
func (c *Collector) RecordRoutingFailure(reason string) {
	c.routingFailures.WithLabelValues(reason).Inc()
}

// RecordPollDuration observes one probe duration
func (c *Collector) RecordPollDuration(d time.Duration) {
	c.pollDuration.Observe(d.Seconds())
}

// SetSubstationLoad updates the per-substation load gauge
func (c *Collector) SetSubstationLoad(substationID string, pct float64) {
	c.substationLoad.WithLabelValues(substationID).Set(pct)
}

// SetSubstationHealth updates the per-substation health gauge
func (c *Collector) SetSubstationHealth(substationID string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	c.substationHealth.WithLabelValues(substationID).Set(v)
}

// Forget removes labeled series for a substation that left the registry
func (c *Collector) Forget(substationID string) {
	c.substationLoad.DeleteLabelValues(substationID)
	c.substationHealth.DeleteLabelValues(substationID)
	c.routingDecisions.DeleteLabelValues(substationID)
}

// Handler returns the metrics endpoint handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

var _ types.MetricsCollector = (*Collector)(nil)
