package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		callbackEvents,
	)
}

// callbackEvents tracks ingestion outcomes; duplicates and conflicts are
// normal at-least-once noise but spikes point at remote retry storms.
var callbackEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_callback_events_total",
		Help: "Inbound payment callbacks by event type and outcome (applied/duplicate/conflict/unknown_entity/error).",
	},
	[]string{"event", "outcome"},
)

func IncCallback(event, outcome string) {
	callbackEvents.WithLabelValues(norm(event), norm(outcome)).Inc()
}
