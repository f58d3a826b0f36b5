package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		ordersRevenueTotal,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_orders_total",
			Help: "Orders by status (created/attempted/paid/failed/cancelled/refunded).",
		},
		[]string{"status"},
	)

	ordersRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_orders_revenue_total",
			Help: "Total monetary value of paid orders, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func AddOrderRevenue(currency string, amount int64) {
	ordersRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
