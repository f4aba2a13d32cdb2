package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.PublishTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netroom_publish_total",
			Help: "Publish attempts by outcome",
		},
		[]string{"status"},
	)

	r.PublishDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netroom_publish_duration_seconds",
			Help:    "Publish pipeline latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.DevicesWritten = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netroom_publish_devices_written_total",
			Help: "Devices written by successful publishes",
		},
	)

	r.FlowsPlayedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netroom_flows_played_total",
			Help: "Finished flow runs by outcome",
		},
		[]string{"outcome"},
	)

	r.FlowSegmentsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netroom_flow_segments_total",
			Help: "Segment events published to the bus",
		},
	)

	r.PhasesRunTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netroom_phases_run_total",
			Help: "Finished phase runs by status",
		},
		[]string{"status"},
	)

	r.RuleEvaluationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netroom_firewall_evaluations_total",
			Help: "Firewall decisions by action and match result",
		},
		[]string{"action", "result"},
	)

	r.InventoryScanDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netroom_inventory_scan_duration_seconds",
			Help:    "Asset inventory scan latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.InventoryItems = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netroom_inventory_items",
			Help: "Assets discovered by the most recent scan",
		},
	)
}
