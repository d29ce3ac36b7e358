package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/studioclock/integration/internal/pkg/model"
)

var (
	// ConnectionUp is 1 while an integration's feed is in the listening state.
	ConnectionUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "studioclock_connection_up",
		Help: "Whether the integration's feed is connected and listening.",
	}, []string{"integration"})

	// Reconnects counts connection attempts after the first.
	Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studioclock_reconnects_total",
		Help: "Number of reconnect attempts per integration.",
	}, []string{"integration"})

	// UpdatesApplied counts decoded state updates that reached a reducer.
	UpdatesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studioclock_updates_applied_total",
		Help: "Number of wire state updates folded into integration state.",
	}, []string{"integration"})
)

// ObserveStatus records a lifecycle transition for an integration.
func ObserveStatus(integration string, status model.Status) {
	up := 0.0
	if status == model.StatusListening {
		up = 1
	}
	ConnectionUp.WithLabelValues(integration).Set(up)
}
