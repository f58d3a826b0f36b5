// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/adapter"
	"kids-content-billing/internal/infra/logging"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanResolution is the purchasable-plan set for one user.
type PlanResolution struct {
	Plans         []model.Plan
	TrialEligible bool
}

type PlanUseCase interface {
	// Resolve returns the plans the user may buy. Trial-eligible users see a
	// single monthly plan at the fixed trial price; everyone else sees the
	// full-price plans.
	Resolve(ctx context.Context, userID string) (*PlanResolution, error)
}

type planUC struct {
	catalog *model.PlanCatalog
	gateway adapter.PaymentService
	log     *zerolog.Logger
}

func NewPlanUseCase(catalog *model.PlanCatalog, gateway adapter.PaymentService, log *zerolog.Logger) *planUC {
	return &planUC{catalog: catalog, gateway: gateway, log: log}
}

func (u *planUC) Resolve(ctx context.Context, userID string) (*PlanResolution, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Resolve")()

	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}

	eligible, err := u.gateway.TrialEligible(ctx, userID)
	if err != nil {
		// Degraded, not fatal: default to not eligible so we never grant a
		// trial the user might not be entitled to.
		logging.With(ctx, u.log).Warn().Err(err).Msg("trial eligibility degraded; defaulting to not eligible")
		eligible = false
	}

	if eligible {
		return &PlanResolution{Plans: []model.Plan{u.catalog.TrialOffer()}, TrialEligible: true}, nil
	}
	return &PlanResolution{Plans: u.catalog.Paid(), TrialEligible: false}, nil
}
