package model

import (
	"time"

	"kids-content-billing/internal/domain"
)

type EventType string

const (
	EventOrderPaid      EventType = "order.paid"
	EventOrderFailed    EventType = "order.failed"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderRefunded  EventType = "order.refunded"

	EventSubscriptionAuthenticated EventType = "subscription.authenticated"
	EventSubscriptionActivated     EventType = "subscription.activated"
	EventSubscriptionPaused        EventType = "subscription.paused"
	EventSubscriptionResumed       EventType = "subscription.resumed"
	EventSubscriptionHalted        EventType = "subscription.halted"
	EventSubscriptionCancelled     EventType = "subscription.cancelled"
	EventSubscriptionCompleted     EventType = "subscription.completed"
	EventSubscriptionExpired       EventType = "subscription.expired"

	EventInvoicePaid EventType = "invoice.paid"
)

var knownEvents = map[EventType]bool{
	EventOrderPaid: true, EventOrderFailed: true, EventOrderCancelled: true, EventOrderRefunded: true,
	EventSubscriptionAuthenticated: true, EventSubscriptionActivated: true,
	EventSubscriptionPaused: true, EventSubscriptionResumed: true,
	EventSubscriptionHalted: true, EventSubscriptionCancelled: true,
	EventSubscriptionCompleted: true, EventSubscriptionExpired: true,
	EventInvoicePaid: true,
}

func (t EventType) Known() bool { return knownEvents[t] }

// IsOrderEvent reports whether the entity id names an order rather than a
// subscription.
func (t EventType) IsOrderEvent() bool {
	switch t {
	case EventOrderPaid, EventOrderFailed, EventOrderCancelled, EventOrderRefunded:
		return true
	}
	return false
}

// CallbackEvent is the normalized form of an inbound payment-service
// notification. EntityID carries the remote order or subscription id.
type CallbackEvent struct {
	Type       EventType
	DeliveryID string // at-least-once delivery dedup key
	UserID     string
	EntityID   string
	SourceApp  string
	Timestamp  time.Time

	// Optional event data
	GatewayPaymentID string
	StartDate        *time.Time
	EndDate          *time.Time
	Reason           string
	Actor            string
	Context          map[string]any
}

func (e *CallbackEvent) Validate() error {
	if !e.Type.Known() {
		return domain.ErrInvalidArgument
	}
	if e.EntityID == "" || e.DeliveryID == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// ProcessedEvent is the idempotency marker proving a callback was already
// applied. Replays of the same (type, entity, delivery) triple are
// acknowledged without re-mutating state.
type ProcessedEvent struct {
	EventType   EventType
	EntityID    string
	DeliveryID  string
	Outcome     string // applied | conflict | unknown_entity
	ProcessedAt time.Time
}

const (
	EventOutcomeApplied       = "applied"
	EventOutcomeConflict      = "conflict"
	EventOutcomeUnknownEntity = "unknown_entity"
)
