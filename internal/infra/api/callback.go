package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/infra/logging"
)

// callbackPayload accepts both notification shapes the payment service sends:
// the event-envelope form ({event, userId, sourceApp, data, timestamp,
// deliveryId}) and the older flat form ({userId, orderId|subscriptionId,
// status, paymentContext}).
type callbackPayload struct {
	Event      string          `json:"event"`
	UserID     string          `json:"userId"`
	SourceApp  string          `json:"sourceApp"`
	Data       json.RawMessage `json:"data"`
	Timestamp  *time.Time      `json:"timestamp"`
	DeliveryID string          `json:"deliveryId"`

	// Flat form
	OrderID        string         `json:"orderId"`
	SubscriptionID string         `json:"subscriptionId"`
	Status         string         `json:"status"`
	PaymentContext map[string]any `json:"paymentContext"`
}

type callbackData struct {
	OrderID          string         `json:"orderId"`
	SubscriptionID   string         `json:"subscriptionId"`
	GatewayPaymentID string         `json:"gatewayPaymentId"`
	StartDate        *time.Time     `json:"startDate"`
	EndDate          *time.Time     `json:"endDate"`
	Reason           string         `json:"reason"`
	Actor            string         `json:"actor"`
	Context          map[string]any `json:"context"`
}

// The flat form carries no event name, only a status string; which id is
// present decides whether it maps onto the order or subscription event types.
var flatOrderEvents = map[string]model.EventType{
	"paid":      model.EventOrderPaid,
	"captured":  model.EventOrderPaid,
	"failed":    model.EventOrderFailed,
	"cancelled": model.EventOrderCancelled,
	"refunded":  model.EventOrderRefunded,
}

var flatSubscriptionEvents = map[string]model.EventType{
	"authenticated": model.EventSubscriptionAuthenticated,
	"active":        model.EventSubscriptionActivated,
	"activated":     model.EventSubscriptionActivated,
	"paused":        model.EventSubscriptionPaused,
	"resumed":       model.EventSubscriptionResumed,
	"halted":        model.EventSubscriptionHalted,
	"failed":        model.EventSubscriptionHalted,
	"cancelled":     model.EventSubscriptionCancelled,
	"completed":     model.EventSubscriptionCompleted,
	"expired":       model.EventSubscriptionExpired,
	"paid":          model.EventInvoicePaid,
	"captured":      model.EventInvoicePaid,
}

func (p *callbackPayload) normalize() (*model.CallbackEvent, error) {
	if p.Event != "" {
		var d callbackData
		if len(p.Data) > 0 {
			if err := json.Unmarshal(p.Data, &d); err != nil {
				return nil, err
			}
		}
		ev := &model.CallbackEvent{
			Type:             model.EventType(p.Event),
			DeliveryID:       p.DeliveryID,
			UserID:           p.UserID,
			SourceApp:        p.SourceApp,
			GatewayPaymentID: d.GatewayPaymentID,
			StartDate:        d.StartDate,
			EndDate:          d.EndDate,
			Reason:           d.Reason,
			Actor:            d.Actor,
			Context:          d.Context,
		}
		if p.Timestamp != nil {
			ev.Timestamp = *p.Timestamp
		}
		if ev.Type.IsOrderEvent() {
			ev.EntityID = d.OrderID
		} else {
			ev.EntityID = d.SubscriptionID
		}
		fillDeliveryID(ev)
		return ev, nil
	}

	// Flat form
	statusEvents := flatOrderEvents
	entityID := p.OrderID
	if p.OrderID == "" && p.SubscriptionID != "" {
		statusEvents = flatSubscriptionEvents
		entityID = p.SubscriptionID
	}
	eventType, ok := statusEvents[p.Status]
	if !ok {
		return nil, domain.ErrInvalidArgument
	}
	ev := &model.CallbackEvent{
		Type:       eventType,
		DeliveryID: p.DeliveryID,
		UserID:     p.UserID,
		EntityID:   entityID,
		Context:    p.PaymentContext,
	}
	if p.Timestamp != nil {
		ev.Timestamp = *p.Timestamp
	}
	if gp, ok := p.PaymentContext["gatewayPaymentId"].(string); ok {
		ev.GatewayPaymentID = gp
	}
	fillDeliveryID(ev)
	return ev, nil
}

// fillDeliveryID derives a dedup key when the sender omitted one: the event
// timestamp when present, else the (type, entity) pair. Without a timestamp a
// genuine re-send of the same transition collapses into the first delivery,
// which is the safe direction for at-least-once senders.
func fillDeliveryID(ev *model.CallbackEvent) {
	if ev.DeliveryID != "" {
		return
	}
	if !ev.Timestamp.IsZero() {
		ev.DeliveryID = fmt.Sprintf("ts:%d", ev.Timestamp.UnixMilli())
		return
	}
	ev.DeliveryID = fmt.Sprintf("syn:%s:%s", ev.Type, ev.EntityID)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var payload callbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "malformed body")
		return
	}
	ev, err := payload.normalize()
	if err != nil {
		fail(w, http.StatusBadRequest, "unrecognized callback payload")
		return
	}

	ctx := logging.WithUserID(r.Context(), ev.UserID)
	if err := s.callbackUC.Handle(ctx, ev); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			fail(w, http.StatusBadRequest, "unrecognized callback payload")
			return
		}
		// Transient local failure; 5xx tells the sender to retry delivery.
		logging.With(ctx, s.log).Error().Err(err).Str("event", string(ev.Type)).Msg("callback processing failed")
		fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	ok(w, map[string]any{"received": true}, "callback processed")
}
