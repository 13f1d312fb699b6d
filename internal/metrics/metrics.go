// Package metrics provides Prometheus collectors for the trigger service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Collector bundles the trigger service metrics on a private registry so the
// /metrics endpoint exposes only what this process owns.
type Collector struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	refreshResults  *prometheus.CounterVec
	lastSuccessTime prometheus.Gauge
}

// NewCollector creates and registers the collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cookierelay",
				Subsystem: "trigger",
				Name:      "cycles_total",
				Help:      "Refresh trigger cycles by kind and result",
			},
			[]string{"kind", "result"},
		),
		refreshResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cookierelay",
				Subsystem: "refresh",
				Name:      "results_total",
				Help:      "Structured refresh results by status and method",
			},
			[]string{"status", "method"},
		),
		lastSuccessTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "cookierelay",
				Subsystem: "trigger",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful refresh cycle",
			},
		),
	}

	c.registry.MustRegister(c.cycles, c.refreshResults, c.lastSuccessTime)
	return c
}

// Registry returns the private registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCycle records one completed trigger cycle.
func (c *Collector) ObserveCycle(kind string, succeeded bool) {
	result := ResultFailure
	if succeeded {
		result = ResultSuccess
		c.lastSuccessTime.Set(float64(time.Now().Unix()))
	}
	c.cycles.WithLabelValues(kind, result).Inc()
}

// ObserveRefreshResult records the structured result parsed from one refresh
// run. method may be empty for skipped runs.
func (c *Collector) ObserveRefreshResult(status, method string) {
	c.refreshResults.WithLabelValues(status, method).Inc()
}
