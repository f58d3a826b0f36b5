package model

import (
	"time"

	"kids-content-billing/internal/domain"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusAttempted OrderStatus = "attempted"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFailed, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// orderEdges is the full transition graph. Anything not listed is illegal.
var orderEdges = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusAttempted, OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusAttempted: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:      {OrderStatusRefunded},
}

func (s OrderStatus) canMoveTo(next OrderStatus) bool {
	for _, n := range orderEdges[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Order records a one-time payment intent. The remote payment service owns the
// money movement; this record is the local authoritative view of it.
type Order struct {
	ID               string // ULID
	UserID           string
	PaymentOrderID   string // remote order id, unique
	GatewayOrderID   string // third-party processor id, may be empty
	GatewayPaymentID string // set only once paid
	Amount           int64  // minor currency units
	Currency         string
	Status           OrderStatus
	OrderType        string
	RelatedID        string // optional reference to the purchased item
	PaymentContext   map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PaidAt           *time.Time
	FailedAt         *time.Time
}

// NewOrder validates inputs and builds an order in the created status.
// The remote paymentOrderID must already exist: local records are only
// persisted after the remote call succeeded.
func NewOrder(id, userID, paymentOrderID string, amount int64, currency, orderType, relatedID string, context map[string]any) (*Order, error) {
	if id == "" || userID == "" || paymentOrderID == "" || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	now := time.Now()
	return &Order{
		ID:             id,
		UserID:         userID,
		PaymentOrderID: paymentOrderID,
		Amount:         amount,
		Currency:       currency,
		Status:         OrderStatusCreated,
		OrderType:      orderType,
		RelatedID:      relatedID,
		PaymentContext: context,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MarkAttempted records that the user reached the gateway payment page.
func (o *Order) MarkAttempted() (*Order, error) {
	if o.Status == OrderStatusAttempted {
		return o, nil
	}
	return o.transition(OrderStatusAttempted)
}

// MarkPaid finalizes the order with the processor's payment id. It is
// idempotent for the same gatewayPaymentID; a different payment id on an
// already paid order is a conflict, never a silent overwrite.
func (o *Order) MarkPaid(gatewayPaymentID string) (*Order, error) {
	if gatewayPaymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if o.Status == OrderStatusPaid {
		if o.GatewayPaymentID == gatewayPaymentID {
			return o, nil
		}
		return nil, domain.ErrConflict
	}
	next, err := o.transition(OrderStatusPaid)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	next.GatewayPaymentID = gatewayPaymentID
	next.PaidAt = &now
	return next, nil
}

func (o *Order) MarkFailed() (*Order, error) {
	if o.Status == OrderStatusFailed {
		return o, nil
	}
	next, err := o.transition(OrderStatusFailed)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	next.FailedAt = &now
	return next, nil
}

func (o *Order) MarkCancelled() (*Order, error) {
	if o.Status == OrderStatusCancelled {
		return o, nil
	}
	return o.transition(OrderStatusCancelled)
}

func (o *Order) MarkRefunded() (*Order, error) {
	if o.Status == OrderStatusRefunded {
		return o, nil
	}
	return o.transition(OrderStatusRefunded)
}

// transition returns a copy with the new status; the receiver is not mutated
// so callers decide when (and whether) to persist.
func (o *Order) transition(next OrderStatus) (*Order, error) {
	if !o.Status.canMoveTo(next) {
		return nil, domain.ErrIllegalTransition
	}
	cp := *o
	cp.Status = next
	cp.UpdatedAt = time.Now()
	return &cp, nil
}
