// Package metrics exposes the daemon's operational counters. These are a
// pure observability surface: no subscriber ever receives a metrics value
// over the subscription protocol (spec §1 Non-goals are unaffected).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lulkien/hyprvisor/internal/ipc"
)

// Registry wraps the Prometheus collectors used by the daemon.
type Registry struct {
	Subscribers     *prometheus.GaugeVec
	BroadcastsTotal *prometheus.CounterVec
	EvictionsTotal  *prometheus.CounterVec
	ReconnectsTotal *prometheus.CounterVec
	ProcessRSSBytes prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry constructs a Registry with every collector registered
// against a private prometheus.Registry, so multiple daemons in a test
// process never collide on global metric names.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{
		Subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hyprvisor_subscribers",
			Help: "Current number of subscribers per feed kind.",
		}, []string{"kind"}),
		BroadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hyprvisor_broadcasts_total",
			Help: "Total number of broadcasts attempted per feed kind.",
		}, []string{"kind"}),
		EvictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hyprvisor_evictions_total",
			Help: "Total number of subscribers evicted after failed writes, per feed kind.",
		}, []string{"kind"}),
		ReconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hyprvisor_producer_reconnects_total",
			Help: "Total number of reconnect attempts per producer.",
		}, []string{"producer"}),
		ProcessRSSBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hyprvisor_process_rss_bytes",
			Help: "Resident set size of the daemon process, sampled via gopsutil.",
		}),
	}
	r.registry = reg
	return r
}

// Handler returns an HTTP handler exposing the registry's metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// kindLabel maps a SubscriptionKind to its Prometheus label value.
func kindLabel(kind ipc.SubscriptionKind) string {
	return kind.String()
}

// ObserveSubscriberCount sets the subscriber gauge for kind.
func (r *Registry) ObserveSubscriberCount(kind ipc.SubscriptionKind, n int) {
	r.Subscribers.WithLabelValues(kindLabel(kind)).Set(float64(n))
}

// RecordBroadcast increments the broadcast counter for kind.
func (r *Registry) RecordBroadcast(kind ipc.SubscriptionKind) {
	r.BroadcastsTotal.WithLabelValues(kindLabel(kind)).Inc()
}

// RecordEviction increments the eviction counter for kind.
func (r *Registry) RecordEviction(kind ipc.SubscriptionKind) {
	r.EvictionsTotal.WithLabelValues(kindLabel(kind)).Inc()
}

// RecordReconnect increments the reconnect counter for a named producer.
func (r *Registry) RecordReconnect(producer string) {
	r.ReconnectsTotal.WithLabelValues(producer).Inc()
}
