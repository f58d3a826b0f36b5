// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/adapter"
	"kids-content-billing/internal/domain/ports/repository"
	"kids-content-billing/internal/infra/logging"
	"kids-content-billing/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// Create registers a subscription mandate remotely and persists the local
	// record in created status. Fails with ErrAlreadySubscribed when the user
	// already holds an authenticated or active subscription.
	Create(ctx context.Context, userID string, planType model.PlanType) (*model.Subscription, string, error)
	// Cancel notifies nobody remotely (the remote service cancels via its own
	// flow) but applies the local cancel transition and premium revocation.
	Cancel(ctx context.Context, subscriptionID, reason, actor string) (*model.Subscription, error)
	List(ctx context.Context, userID string) ([]*model.Subscription, error)
	Current(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs    repository.SubscriptionRepository
	users   repository.UserRepository
	catalog *model.PlanCatalog
	gateway adapter.PaymentService
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	catalog *model.PlanCatalog,
	gateway adapter.PaymentService,
	tm repository.TransactionManager,
	log *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{subs: subs, users: users, catalog: catalog, gateway: gateway, tm: tm, log: log}
}

func (u *subscriptionUC) Create(ctx context.Context, userID string, planType model.PlanType) (*model.Subscription, string, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Create")()

	if userID == "" {
		return nil, "", domain.ErrInvalidArgument
	}
	plan, err := u.catalog.ByType(planType)
	if err != nil {
		return nil, "", err
	}

	// Pre-check outside the transaction so we do not create remote mandates
	// for obviously ineligible users.
	if _, err := u.subs.FindCurrentByUser(ctx, nil, userID); err == nil {
		return nil, "", domain.ErrAlreadySubscribed
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", err
	}

	if planType == model.PlanTypeTrial {
		eligible, err := u.gateway.TrialEligible(ctx, userID)
		if err != nil {
			// Fail safe: never grant a trial the user might not be entitled to.
			logging.With(ctx, u.log).Warn().Err(err).Msg("trial eligibility check degraded; denying trial")
			return nil, "", domain.ErrGatewayUnavailable
		}
		if !eligible {
			return nil, "", domain.ErrTrialNotAvailable
		}
		if trialed, err := u.subs.HasEverTrialed(ctx, nil, userID); err != nil {
			return nil, "", err
		} else if trialed {
			return nil, "", domain.ErrTrialNotAvailable
		}
	}

	res, err := u.gateway.CreateSubscription(ctx, userID, plan.RemoteID, planType == model.PlanTypeTrial, 0)
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("remote subscription creation failed")
		return nil, "", err
	}

	sub, err := model.NewSubscription(newID(), userID, res.PaymentSubscriptionID, &plan)
	if err != nil {
		return nil, "", err
	}
	sub.GatewaySubscriptionID = res.GatewaySubscriptionID

	// Re-check the single-subscription invariant transactionally with the
	// insert; a concurrent create may have won after the pre-check.
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.subs.FindCurrentByUser(ctx, tx, userID); err == nil {
			return domain.ErrAlreadySubscribed
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return u.subs.Save(ctx, tx, sub)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySubscribed) {
			logging.With(ctx, u.log).Warn().
				Str("remote_subscription_id", res.PaymentSubscriptionID).
				Msg("lost creation race; remote mandate left for remote-side expiry")
		}
		return nil, "", err
	}

	metrics.IncSubscription(string(sub.Status), string(sub.PlanType))
	if planType == model.PlanTypeTrial {
		metrics.IncTrialGrant()
	}
	return sub, res.AuthorizationURL, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, subscriptionID, reason, actor string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Cancel")()

	var cancelled *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		next, effects, err := sub.Cancel(reason, actor)
		if err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, next); err != nil {
			return err
		}
		if err := applyEffects(ctx, tx, u.users, effects); err != nil {
			return err
		}
		metrics.IncSubscription(string(next.Status), string(next.PlanType))
		cancelled = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (u *subscriptionUC) List(ctx context.Context, userID string) ([]*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.subs.ListByUser(ctx, nil, userID)
}

func (u *subscriptionUC) Current(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.subs.FindCurrentByUser(ctx, nil, userID)
}

// applyEffects projects transition side effects; today that is only the user
// premium flag. Runs inside the caller's transaction.
func applyEffects(ctx context.Context, tx repository.Tx, users repository.UserRepository, effects []model.Effect) error {
	for _, ef := range effects {
		if ef.Kind != model.EffectSetPremium {
			continue
		}
		user, err := users.FindByID(ctx, tx, ef.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			user, err = model.NewUser(ef.UserID)
		}
		if err != nil {
			return err
		}
		if err := users.Save(ctx, tx, user.ApplyPremium(ef.Premium, ef.Until)); err != nil {
			return err
		}
	}
	return nil
}
