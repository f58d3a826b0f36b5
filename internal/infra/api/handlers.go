package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/adapter"
	"kids-content-billing/internal/infra/logging"
	"kids-content-billing/internal/infra/payment"
)

// userID is set by the platform's edge auth layer; this service trusts it the
// same way it trusts any internal header.
func userID(r *http.Request) string {
	return r.Header.Get("x-user-id")
}

// ---------- orders ----------

type createOrderRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OrderType   string `json:"orderType"`
	RelatedID   string `json:"relatedId"`
	Description string `json:"description"`
}

type orderView struct {
	ID               string     `json:"id"`
	PaymentOrderID   string     `json:"paymentOrderId"`
	GatewayOrderID   string     `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string     `json:"gatewayPaymentId,omitempty"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	OrderType        string     `json:"orderType,omitempty"`
	RelatedID        string     `json:"relatedId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
}

func toOrderView(o *model.Order) orderView {
	return orderView{
		ID:               o.ID,
		PaymentOrderID:   o.PaymentOrderID,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		Amount:           o.Amount,
		Currency:         o.Currency,
		Status:           string(o.Status),
		OrderType:        o.OrderType,
		RelatedID:        o.RelatedID,
		CreatedAt:        o.CreatedAt,
		PaidAt:           o.PaidAt,
	}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "malformed body")
		return
	}
	ctx := logging.WithUserID(r.Context(), uid)

	var pc map[string]any
	if req.Description != "" {
		pc = map[string]any{"description": req.Description}
	}
	order, err := s.orderUC.Create(ctx, uid, req.Amount, req.Currency, req.OrderType, req.RelatedID, pc)
	if err != nil {
		failFromErr(w, err)
		return
	}
	created(w, toOrderView(order), "order created")
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	orders, err := s.orderUC.List(r.Context(), uid, 50, 0)
	if err != nil {
		failFromErr(w, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	ok(w, views, "")
}

// ---------- subscriptions ----------

type createSubscriptionRequest struct {
	PlanType string `json:"planType"`
}

type subscriptionView struct {
	ID                    string     `json:"id"`
	PaymentSubscriptionID string     `json:"paymentSubscriptionId"`
	PlanID                string     `json:"planId"`
	PlanType              string     `json:"planType"`
	Amount                int64      `json:"amount"`
	Currency              string     `json:"currency"`
	Status                string     `json:"status"`
	StartDate             *time.Time `json:"startDate,omitempty"`
	EndDate               *time.Time `json:"endDate,omitempty"`
	NextBillingDate       *time.Time `json:"nextBillingDate,omitempty"`
	DaysRemaining         int        `json:"daysRemaining"`
	AutoRenewal           bool       `json:"autoRenewal"`
	AuthorizationURL      string     `json:"authorizationUrl,omitempty"`
}

func toSubscriptionView(sub *model.Subscription, authURL string) subscriptionView {
	return subscriptionView{
		ID:                    sub.ID,
		PaymentSubscriptionID: sub.PaymentSubscriptionID,
		PlanID:                sub.PlanID,
		PlanType:              string(sub.PlanType),
		Amount:                sub.Amount,
		Currency:              sub.Currency,
		Status:                string(sub.Status),
		StartDate:             sub.StartDate,
		EndDate:               sub.EndDate,
		NextBillingDate:       sub.NextBillingDate,
		DaysRemaining:         sub.DaysRemaining(time.Now()),
		AutoRenewal:           sub.AutoRenewal,
		AuthorizationURL:      authURL,
	}
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "malformed body")
		return
	}
	planType, err := model.ParsePlanType(req.PlanType)
	if err != nil {
		fail(w, http.StatusBadRequest, "unknown plan type")
		return
	}
	ctx := logging.WithUserID(r.Context(), uid)

	sub, authURL, err := s.subUC.Create(ctx, uid, planType)
	if err != nil {
		failFromErr(w, err)
		return
	}
	created(w, toSubscriptionView(sub, authURL), "subscription created")
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	subs, err := s.subUC.List(r.Context(), uid)
	if err != nil {
		failFromErr(w, err)
		return
	}
	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, toSubscriptionView(sub, ""))
	}
	ok(w, views, "")
}

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	sub, err := s.subUC.Current(r.Context(), uid)
	if err != nil {
		failFromErr(w, err)
		return
	}
	ok(w, toSubscriptionView(sub, ""), "")
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req cancelSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "malformed body")
		return
	}
	sub, err := s.subUC.Cancel(logging.WithUserID(r.Context(), uid), chi.URLParam(r, "id"), req.Reason, uid)
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			fail(w, http.StatusConflict, "subscription is not cancellable")
			return
		}
		failFromErr(w, err)
		return
	}
	ok(w, toSubscriptionView(sub, ""), "subscription cancelled")
}

// ---------- plans ----------

type planView struct {
	Plan       string   `json:"plan"`
	Price      int64    `json:"price"`
	Currency   string   `json:"currency"`
	Validity   int      `json:"validityDays"`
	Features   []string `json:"features"`
	FreeTrial  bool     `json:"freeTrial"`
	TrialPrice *int64   `json:"trialPrice,omitempty"`
}

func (s *Server) handleResolvePlans(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	res, err := s.planUC.Resolve(logging.WithUserID(r.Context(), uid), uid)
	if err != nil {
		failFromErr(w, err)
		return
	}
	views := make([]planView, 0, len(res.Plans))
	for _, p := range res.Plans {
		v := planView{
			Plan:      string(p.Type),
			Price:     p.Price,
			Currency:  p.Currency,
			Validity:  p.ValidityDays,
			Features:  p.Features,
			FreeTrial: p.FreeTrial,
		}
		if p.FreeTrial {
			tp := model.TrialPrice
			v.TrialPrice = &tp
		}
		views = append(views, v)
	}
	ok(w, map[string]any{"plans": views, "trialEligible": res.TrialEligible}, "")
}

// ---------- payment verification ----------

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewaySignature string `json:"gatewaySignature"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		fail(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "malformed body")
		return
	}
	// Cheap local pre-check before the server-side verification round trip.
	if s.webhookSecret != "" && !payment.VerifyGatewaySignature(s.webhookSecret, req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		fail(w, http.StatusBadRequest, "signature mismatch")
		return
	}
	order, err := s.orderUC.Verify(logging.WithUserID(r.Context(), uid), adapter.VerifyRequest{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		GatewaySignature: req.GatewaySignature,
	})
	if err != nil {
		failFromErr(w, err)
		return
	}
	ok(w, toOrderView(order), "payment verified")
}
