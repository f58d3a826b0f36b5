package model

import (
	"time"

	"kids-content-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusCreated       SubscriptionStatus = "created"
	SubscriptionStatusAuthenticated SubscriptionStatus = "authenticated"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusPaused        SubscriptionStatus = "paused"
	SubscriptionStatusHalted        SubscriptionStatus = "halted"
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"
	SubscriptionStatusCompleted     SubscriptionStatus = "completed"
	SubscriptionStatusExpired       SubscriptionStatus = "expired"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s SubscriptionStatus) IsTerminal() bool {
	switch s {
	case SubscriptionStatusCancelled, SubscriptionStatusCompleted, SubscriptionStatusExpired:
		return true
	}
	return false
}

// GrantsPremium reports whether the status entitles the owning user to
// premium content.
func (s SubscriptionStatus) GrantsPremium() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusAuthenticated
}

var subscriptionEdges = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusCreated:       {SubscriptionStatusAuthenticated, SubscriptionStatusActive, SubscriptionStatusCancelled},
	SubscriptionStatusAuthenticated: {SubscriptionStatusActive, SubscriptionStatusCancelled},
	SubscriptionStatusActive:        {SubscriptionStatusPaused, SubscriptionStatusHalted, SubscriptionStatusCancelled, SubscriptionStatusCompleted, SubscriptionStatusExpired},
	SubscriptionStatusPaused:        {SubscriptionStatusActive, SubscriptionStatusCancelled},
	SubscriptionStatusHalted:        {SubscriptionStatusActive, SubscriptionStatusCancelled},
}

func (s SubscriptionStatus) canMoveTo(next SubscriptionStatus) bool {
	for _, n := range subscriptionEdges[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Subscription represents a recurring billing agreement mirrored from the
// payment service.
type Subscription struct {
	ID                    string // ULID
	UserID                string
	PaymentSubscriptionID string // remote id, unique
	GatewaySubscriptionID string // third-party processor id, may be empty
	PlanID                string
	PlanType              PlanType
	Amount                int64
	Currency              string
	BillingCycle          string
	Status                SubscriptionStatus
	StartDate             *time.Time
	EndDate               *time.Time
	NextBillingDate       *time.Time
	TrialStart            *time.Time
	TrialEnd              *time.Time
	AutoRenewal           bool
	CancellationReason    string
	CancelledAt           *time.Time
	CancelledBy           string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewSubscription builds a subscription in the created status referencing an
// already-created remote subscription.
func NewSubscription(id, userID, paymentSubscriptionID string, plan *Plan) (*Subscription, error) {
	if id == "" || userID == "" || paymentSubscriptionID == "" || plan == nil {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:                    id,
		UserID:                userID,
		PaymentSubscriptionID: paymentSubscriptionID,
		PlanID:                plan.ID,
		PlanType:              plan.Type,
		Amount:                plan.Price,
		Currency:              plan.Currency,
		BillingCycle:          plan.BillingCycle,
		Status:                SubscriptionStatusCreated,
		AutoRenewal:           true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// Activate turns the subscription on. When endDate is zero it is derived from
// the plan type: trial +7 days, monthly +1 month, yearly +1 year.
func (s *Subscription) Activate(startDate, endDate time.Time) (*Subscription, []Effect, error) {
	next, err := s.transition(SubscriptionStatusActive)
	if err != nil {
		return nil, nil, err
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}
	if endDate.IsZero() {
		endDate = s.PlanType.PeriodEnd(startDate)
	}
	next.StartDate = &startDate
	next.EndDate = &endDate
	next.NextBillingDate = &endDate
	if s.PlanType == PlanTypeTrial {
		next.TrialStart = &startDate
		next.TrialEnd = &endDate
	}
	effects := []Effect{{Kind: EffectSetPremium, UserID: s.UserID, Premium: true, Until: &endDate}}
	return next, effects, nil
}

// Authenticate records that the mandate was approved but not yet charged.
func (s *Subscription) Authenticate() (*Subscription, []Effect, error) {
	if s.Status == SubscriptionStatusAuthenticated {
		return s, nil, nil
	}
	next, err := s.transition(SubscriptionStatusAuthenticated)
	if err != nil {
		return nil, nil, err
	}
	return next, []Effect{{Kind: EffectSetPremium, UserID: s.UserID, Premium: true}}, nil
}

// Cancel is legal from any non-terminal state and clears auto renewal.
func (s *Subscription) Cancel(reason, actor string) (*Subscription, []Effect, error) {
	if s.Status.IsTerminal() {
		return nil, nil, domain.ErrIllegalTransition
	}
	next, err := s.transition(SubscriptionStatusCancelled)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	next.CancellationReason = reason
	next.CancelledAt = &now
	next.CancelledBy = actor
	next.AutoRenewal = false
	return next, s.premiumRevocation(next), nil
}

// Resume reactivates a paused subscription without touching its billing
// window.
func (s *Subscription) Resume() (*Subscription, []Effect, error) {
	if s.Status != SubscriptionStatusPaused {
		return nil, nil, domain.ErrIllegalTransition
	}
	next, err := s.transition(SubscriptionStatusActive)
	if err != nil {
		return nil, nil, err
	}
	return next, []Effect{{Kind: EffectSetPremium, UserID: s.UserID, Premium: true, Until: next.EndDate}}, nil
}

func (s *Subscription) Pause() (*Subscription, []Effect, error) {
	next, err := s.transition(SubscriptionStatusPaused)
	if err != nil {
		return nil, nil, err
	}
	return next, s.premiumRevocation(next), nil
}

// Halt marks the subscription as suspended after repeated charge failures.
func (s *Subscription) Halt() (*Subscription, []Effect, error) {
	next, err := s.transition(SubscriptionStatusHalted)
	if err != nil {
		return nil, nil, err
	}
	return next, s.premiumRevocation(next), nil
}

func (s *Subscription) Complete() (*Subscription, []Effect, error) {
	next, err := s.transition(SubscriptionStatusCompleted)
	if err != nil {
		return nil, nil, err
	}
	return next, s.premiumRevocation(next), nil
}

func (s *Subscription) Expire() (*Subscription, []Effect, error) {
	next, err := s.transition(SubscriptionStatusExpired)
	if err != nil {
		return nil, nil, err
	}
	return next, s.premiumRevocation(next), nil
}

// Renew extends the billing window after a successful invoice charge.
// Legal on active subscriptions only; resuming a halted or authenticated
// subscription goes through Activate.
func (s *Subscription) Renew(nextBilling time.Time) (*Subscription, []Effect, error) {
	if s.Status != SubscriptionStatusActive {
		return nil, nil, domain.ErrIllegalTransition
	}
	cp := *s
	if nextBilling.IsZero() {
		base := time.Now()
		if cp.EndDate != nil && cp.EndDate.After(base) {
			base = *cp.EndDate
		}
		nextBilling = cp.PlanType.PeriodEnd(base)
	}
	cp.EndDate = &nextBilling
	cp.NextBillingDate = &nextBilling
	cp.UpdatedAt = time.Now()
	effects := []Effect{{Kind: EffectSetPremium, UserID: s.UserID, Premium: true, Until: &nextBilling}}
	return &cp, effects, nil
}

// DaysRemaining is ceil((endDate - now) / day); zero when no end date is set
// or the window has passed. An overdue-but-still-active record is reported as
// active until a callback or sweep transitions it.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if s.EndDate == nil {
		return 0
	}
	left := s.EndDate.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func (s *Subscription) transition(next SubscriptionStatus) (*Subscription, error) {
	if !s.Status.canMoveTo(next) {
		return nil, domain.ErrIllegalTransition
	}
	cp := *s
	cp.Status = next
	cp.UpdatedAt = time.Now()
	return &cp, nil
}

// premiumRevocation emits a revoke effect only when leaving the premium set.
func (s *Subscription) premiumRevocation(next *Subscription) []Effect {
	if s.Status.GrantsPremium() && !next.Status.GrantsPremium() {
		return []Effect{{Kind: EffectSetPremium, UserID: s.UserID, Premium: false}}
	}
	return nil
}
