package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		cacheRequests,
	)
}

var cacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_cache_requests_total",
		Help: "Read-through cache requests by entity and result (hit/miss/bypass).",
	},
	[]string{"entity", "result"},
)

func IncCacheRequest(entity, result string) {
	cacheRequests.WithLabelValues(norm(entity), norm(result)).Inc()
}
