package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsTotal,
		trialGrants,
	)
}

var (
	subscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_total",
			Help: "Subscription transitions by resulting status.",
		},
		[]string{"status", "plan_type"},
	)

	trialGrants = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_trial_grants_total",
			Help: "Trial subscriptions created.",
		},
	)
)

func IncSubscription(status, planType string) {
	subscriptionsTotal.WithLabelValues(norm(status), norm(planType)).Inc()
}

func IncTrialGrant() { trialGrants.Inc() }
