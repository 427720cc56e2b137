// Package metrics exposes prometheus counters and gauges for the
// supervisor's event-delivery pipeline via package-level
// prometheus.New*Vec vars served over promhttp.Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsDispatchedTotal counts dispatches by repo, handler, and status.
	EventsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarelay_events_dispatched_total",
			Help: "Total number of handler dispatches by repo, handler, and status",
		},
		[]string{"repo", "handler", "status"},
	)

	// EventsDedupedTotal counts events skipped because they were already
	// processed.
	EventsDedupedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarelay_events_deduped_total",
			Help: "Total number of events skipped as duplicates",
		},
		[]string{"repo"},
	)

	// CursorPosition is the current high-water mark per repo.
	CursorPosition = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metarelay_cursor_position",
			Help: "Current cursor (last processed event id) per repo",
		},
		[]string{"repo"},
	)

	// SubscriptionUp is 1 while the live push subscription is established,
	// 0 otherwise.
	SubscriptionUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "metarelay_subscription_up",
			Help: "Whether the live push subscription is currently established (1) or not (0)",
		},
	)

	// ReconnectsTotal counts reconnect cycles entered after connection loss.
	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metarelay_reconnects_total",
			Help: "Total number of reconnect cycles entered after connection loss",
		},
	)
)

func init() {
	prometheus.MustRegister(
		EventsDispatchedTotal,
		EventsDedupedTotal,
		CursorPosition,
		SubscriptionUp,
		ReconnectsTotal,
	)
}

// Handler returns the HTTP handler serving metrics in Prometheus text
// format, for an operator-opted-in /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
