package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayLatencyMs,
	)
}

var gatewayLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "billing_gateway_latency_ms",
		Help:    "Payment service call latency in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
	[]string{"endpoint", "success"},
)

func ObserveGatewayCall(endpoint string, d time.Duration, success bool) {
	gatewayLatencyMs.WithLabelValues(norm(endpoint), strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}
