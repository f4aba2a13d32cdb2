// Package metrics exposes Prometheus instrumentation for the room engine:
// HTTP traffic, publish pipeline outcomes, flow playback and firewall
// evaluations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application.
type Registry struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Publish pipeline
	PublishTotal    *prometheus.CounterVec
	PublishDuration prometheus.Histogram
	DevicesWritten  prometheus.Counter

	// Flow / phase playback
	FlowsPlayedTotal     *prometheus.CounterVec
	FlowSegmentsTotal    prometheus.Counter
	PhasesRunTotal       *prometheus.CounterVec

	// Firewall
	RuleEvaluationsTotal *prometheus.CounterVec

	// Inventory
	InventoryScanDuration prometheus.Histogram
	InventoryItems        prometheus.Gauge
}

// NewRegistry creates a Registry backed by its own private Prometheus
// registry so tests can create as many as they like.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initHTTPMetrics()
	r.initEngineMetrics()
	return r
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request with its duration.
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPublish records one publish attempt. status is "success" or a
// failure-reason bucket.
func (r *Registry) RecordPublish(status string, devices int, duration time.Duration) {
	r.PublishTotal.WithLabelValues(status).Inc()
	r.PublishDuration.Observe(duration.Seconds())
	if devices > 0 {
		r.DevicesWritten.Add(float64(devices))
	}
}

// RecordFlowPlayed records a finished flow run.
func (r *Registry) RecordFlowPlayed(completed bool) {
	outcome := "stopped"
	if completed {
		outcome = "completed"
	}
	r.FlowsPlayedTotal.WithLabelValues(outcome).Inc()
}

// RecordFlowSegment counts one emitted segment event.
func (r *Registry) RecordFlowSegment() {
	r.FlowSegmentsTotal.Inc()
}

// RecordPhaseRun records a finished phase run.
func (r *Registry) RecordPhaseRun(failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	r.PhasesRunTotal.WithLabelValues(status).Inc()
}

// RecordRuleEvaluation counts one firewall decision by action taken.
func (r *Registry) RecordRuleEvaluation(action string, matched bool) {
	result := "default"
	if matched {
		result = "matched"
	}
	r.RuleEvaluationsTotal.WithLabelValues(action, result).Inc()
}

// RecordInventoryScan records one asset directory scan.
func (r *Registry) RecordInventoryScan(items int, duration time.Duration) {
	r.InventoryScanDuration.Observe(duration.Seconds())
	r.InventoryItems.Set(float64(items))
}
