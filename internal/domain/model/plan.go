package model

import (
	"time"

	"kids-content-billing/internal/domain"
)

type PlanType string

const (
	PlanTypeTrial   PlanType = "trial"
	PlanTypeMonthly PlanType = "monthly"
	PlanTypeYearly  PlanType = "yearly"
)

// TrialPrice is the fixed trial charge in minor currency units. Business
// rule, not derived from the plan table.
const TrialPrice int64 = 3

// PeriodEnd returns the end of one billing period starting at start.
func (t PlanType) PeriodEnd(start time.Time) time.Time {
	switch t {
	case PlanTypeTrial:
		return start.AddDate(0, 0, 7)
	case PlanTypeYearly:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

func ParsePlanType(s string) (PlanType, error) {
	switch PlanType(s) {
	case PlanTypeTrial, PlanTypeMonthly, PlanTypeYearly:
		return PlanType(s), nil
	}
	return "", domain.ErrInvalidArgument
}

// Plan is one purchasable entry of the static catalog.
type Plan struct {
	ID           string
	Type         PlanType
	RemoteID     string // plan id on the payment service
	Price        int64  // minor currency units
	Currency     string
	BillingCycle string
	ValidityDays int
	Features     []string
	FreeTrial    bool
}

// PlanCatalog is the single source of plan identifiers and pricing, shared by
// the resolver and the creation path.
type PlanCatalog struct {
	byType map[PlanType]Plan
}

// RemotePlanIDs binds a plan type to the payment service's identifiers.
type RemotePlanIDs struct {
	Monthly string
	Yearly  string
}

// NewPlanCatalog builds the enumerated plan table from configured prices and
// remote ids.
func NewPlanCatalog(ids RemotePlanIDs, monthlyPrice, yearlyPrice int64, currency string) (*PlanCatalog, error) {
	if ids.Monthly == "" || ids.Yearly == "" || monthlyPrice <= 0 || yearlyPrice <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	monthly := Plan{
		ID:           "plan_monthly",
		Type:         PlanTypeMonthly,
		RemoteID:     ids.Monthly,
		Price:        monthlyPrice,
		Currency:     currency,
		BillingCycle: "monthly",
		ValidityDays: 30,
		Features:     []string{"all_content", "no_ads", "offline_downloads"},
	}
	yearly := Plan{
		ID:           "plan_yearly",
		Type:         PlanTypeYearly,
		RemoteID:     ids.Yearly,
		Price:        yearlyPrice,
		Currency:     currency,
		BillingCycle: "yearly",
		ValidityDays: 365,
		Features:     []string{"all_content", "no_ads", "offline_downloads", "two_months_free"},
	}
	// The trial charges on the monthly mandate, so it shares the monthly
	// remote id.
	trial := Plan{
		ID:           "plan_trial",
		Type:         PlanTypeTrial,
		RemoteID:     ids.Monthly,
		Price:        TrialPrice,
		Currency:     currency,
		BillingCycle: "monthly",
		ValidityDays: 7,
		Features:     monthly.Features,
		FreeTrial:    true,
	}
	return &PlanCatalog{byType: map[PlanType]Plan{
		PlanTypeMonthly: monthly,
		PlanTypeYearly:  yearly,
		PlanTypeTrial:   trial,
	}}, nil
}

// ByType returns the catalog entry for a plan type.
func (c *PlanCatalog) ByType(t PlanType) (Plan, error) {
	p, ok := c.byType[t]
	if !ok {
		return Plan{}, domain.ErrNotFound
	}
	return p, nil
}

// Paid returns the non-trial plans in display order.
func (c *PlanCatalog) Paid() []Plan {
	return []Plan{c.byType[PlanTypeMonthly], c.byType[PlanTypeYearly]}
}

// TrialOffer is the single plan shown to trial-eligible users: the monthly
// plan annotated with the fixed trial price.
func (c *PlanCatalog) TrialOffer() Plan {
	p := c.byType[PlanTypeMonthly]
	p.FreeTrial = true
	p.Price = TrialPrice
	return p
}
