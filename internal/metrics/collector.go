// Package metrics exposes Prometheus counters/gauges for the dispatch,
// provider-registry rebuild, and broadcast planes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every gateway-level metric. One Collector is constructed
// per process and registered against a prometheus.Registerer.
type Collector struct {
	DispatchTotal       *prometheus.CounterVec
	DispatchDuration    *prometheus.HistogramVec
	AuthzDenied         *prometheus.CounterVec
	RebuildTotal        prometheus.Counter
	RebuildDuration     prometheus.Histogram
	PendingInvokes      prometheus.Gauge
	BroadcastTotal      *prometheus.CounterVec
	BroadcastDropped    *prometheus.CounterVec
	ConnectedClients    prometheus.Gauge
	RegisteredNodes     prometheus.Gauge
}

// NewCollector builds every metric with the moltis_gateway namespace.
func NewCollector() *Collector {
	return &Collector{
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moltis_gateway",
			Name:      "dispatch_total",
			Help:      "Total number of dispatched method calls, by method and outcome.",
		}, []string{"method", "outcome"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moltis_gateway",
			Name:      "dispatch_duration_seconds",
			Help:      "Handler execution time, by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		AuthzDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moltis_gateway",
			Name:      "authz_denied_total",
			Help:      "Requests rejected by the authorization gate, by method.",
		}, []string{"method"}),
		RebuildTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moltis_gateway",
			Name:      "provider_registry_rebuild_total",
			Help:      "Total number of provider registry rebuilds installed.",
		}),
		RebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "moltis_gateway",
			Name:      "provider_registry_rebuild_duration_seconds",
			Help:      "Time spent computing a provider registry snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		PendingInvokes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moltis_gateway",
			Name:      "pending_invokes",
			Help:      "Current number of outstanding node.invoke calls.",
		}),
		BroadcastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moltis_gateway",
			Name:      "broadcast_total",
			Help:      "Total broadcast sends attempted, by topic.",
		}, []string{"topic"}),
		BroadcastDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moltis_gateway",
			Name:      "broadcast_dropped_total",
			Help:      "Broadcast sends skipped due to backpressure, by topic.",
		}, []string{"topic"}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moltis_gateway",
			Name:      "connected_clients",
			Help:      "Current number of open WebSocket connections.",
		}),
		RegisteredNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moltis_gateway",
			Name:      "registered_nodes",
			Help:      "Current number of registered node devices.",
		}),
	}
}

// MustRegister registers every metric against reg, panicking on a
// duplicate-registration error (a programmer error, not a runtime one).
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.DispatchTotal,
		c.DispatchDuration,
		c.AuthzDenied,
		c.RebuildTotal,
		c.RebuildDuration,
		c.PendingInvokes,
		c.BroadcastTotal,
		c.BroadcastDropped,
		c.ConnectedClients,
		c.RegisteredNodes,
	)
}
