// Package metrics registers and updates the Prometheus instrumentation for
// the wallet tracking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	refreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "satotrack_wallet_refresh_total",
		Help: "Wallet refresh operations by result.",
	}, []string{"result"})

	realtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "satotrack_realtime_events_total",
		Help: "Realtime push events applied, by event type.",
	}, []string{"type"})

	trackedWallets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "satotrack_tracked_wallets",
		Help: "Number of wallets in the in-memory collection.",
	})
)

// MustRegisterMetrics registers all collectors with the default registry.
// Panics on duplicate registration, which indicates a wiring bug.
func MustRegisterMetrics() {
	prometheus.MustRegister(refreshTotal, realtimeEventsTotal, trackedWallets)
}

// ObserveRefresh records a completed refresh operation.
func ObserveRefresh(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	refreshTotal.WithLabelValues(result).Inc()
}

// ObserveRealtimeEvent records an applied realtime event.
func ObserveRealtimeEvent(eventType string) {
	realtimeEventsTotal.WithLabelValues(eventType).Inc()
}

// SetTrackedWallets updates the collection size gauge.
func SetTrackedWallets(n int) {
	trackedWallets.Set(float64(n))
}
