package adapter

import (
	"context"
	"time"
)

// CreateOrderResult carries the identifiers the payment service assigned to a
// newly created order.
type CreateOrderResult struct {
	PaymentOrderID string
	GatewayOrderID string
}

// CreateSubscriptionResult carries the identifiers of a newly created remote
// subscription mandate.
type CreateSubscriptionResult struct {
	PaymentSubscriptionID string
	GatewaySubscriptionID string
	AuthorizationURL      string // where the user approves the mandate
}

// RemoteOrder is the payment service's own view of an order, used by list
// endpoints for reconciliation displays.
type RemoteOrder struct {
	PaymentOrderID   string
	Status           string
	Amount           int64
	Currency         string
	GatewayPaymentID string
	CreatedAt        time.Time
}

// RemoteSubscription mirrors the payment service's subscription record.
type RemoteSubscription struct {
	PaymentSubscriptionID string
	PlanID                string
	Status                string
	NextBillingAt         *time.Time
}

// VerifyRequest carries the processor-signed triple the client app returns
// after checkout completes.
type VerifyRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
}

// PaymentService is the hex port for the external payment microservice. Every
// implementation call authenticates itself with a fresh M2M token.
type PaymentService interface {
	CreateOrder(ctx context.Context, userID string, amount int64, currency, orderType string, context map[string]any) (*CreateOrderResult, error)
	CreateSubscription(ctx context.Context, userID, remotePlanID string, trial bool, totalCycles int) (*CreateSubscriptionResult, error)
	ListOrders(ctx context.Context, userID string) ([]RemoteOrder, error)
	ListSubscriptions(ctx context.Context, userID string) ([]RemoteSubscription, error)
	// VerifySuccess checks the gateway signature server-side; returns the
	// remote order id the payment belongs to.
	VerifySuccess(ctx context.Context, req VerifyRequest) (paymentOrderID string, err error)
	// TrialEligible reports whether the user/package pair may still consume
	// the one-time trial offer.
	TrialEligible(ctx context.Context, userID string) (bool, error)
}
