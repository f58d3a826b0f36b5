// File: internal/usecase/callback_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/repository"
	"kids-content-billing/internal/infra/logging"
	"kids-content-billing/internal/infra/metrics"
	red "kids-content-billing/internal/infra/redis"
)

// Compile-time check
var _ CallbackUseCase = (*callbackUC)(nil)

// CallbackUseCase is the single inbound door for remote state changes.
//
// Handle returns an error only for transient local failures (datastore or
// lock unavailable) so the remote service retries those; every business
// outcome, including duplicates, unknown entities and illegal transitions, is
// resolved internally and acknowledged.
type CallbackUseCase interface {
	Handle(ctx context.Context, ev *model.CallbackEvent) error
}

type callbackUC struct {
	orders  repository.OrderRepository
	subs    repository.SubscriptionRepository
	users   repository.UserRepository
	events  repository.ProcessedEventRepository
	locker  red.Locker
	lockTTL time.Duration
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewCallbackUseCase(
	orders repository.OrderRepository,
	subs repository.SubscriptionRepository,
	users repository.UserRepository,
	events repository.ProcessedEventRepository,
	locker red.Locker,
	lockTTL time.Duration,
	tm repository.TransactionManager,
	log *zerolog.Logger,
) *callbackUC {
	if lockTTL <= 0 {
		lockTTL = 15 * time.Second
	}
	return &callbackUC{orders: orders, subs: subs, users: users, events: events, locker: locker, lockTTL: lockTTL, tm: tm, log: log}
}

func (u *callbackUC) Handle(ctx context.Context, ev *model.CallbackEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	ctx = logging.WithEntityID(logging.WithDeliveryID(ctx, ev.DeliveryID), ev.EntityID)
	defer logging.TraceDuration(u.log, "CallbackUC.Handle")()

	// Serialize deliveries for the same entity; different entities proceed
	// concurrently.
	token, err := u.locker.TryLock(ctx, "cb:lock:"+ev.EntityID, u.lockTTL)
	if err != nil {
		metrics.IncCallback(string(ev.Type), "error")
		return domain.ErrOperationFailed
	}
	defer func() { _ = u.locker.Unlock(context.Background(), "cb:lock:"+ev.EntityID, token) }()

	// Fast path: already applied.
	if _, err := u.events.Find(ctx, nil, ev.Type, ev.EntityID, ev.DeliveryID); err == nil {
		metrics.IncCallback(string(ev.Type), "duplicate")
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		metrics.IncCallback(string(ev.Type), "error")
		return err
	}

	outcome := model.EventOutcomeApplied
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var applyErr error
		if ev.Type.IsOrderEvent() {
			applyErr = u.applyOrderEvent(ctx, tx, ev)
		} else {
			applyErr = u.applySubscriptionEvent(ctx, tx, ev)
		}
		switch {
		case applyErr == nil:
		case errors.Is(applyErr, domain.ErrNotFound), errors.Is(applyErr, domain.ErrUnknownEntity):
			// The entity was never created locally (e.g. a crash between the
			// remote create and the local persist). Ack so the remote side
			// does not retry forever.
			outcome = model.EventOutcomeUnknownEntity
			logging.With(ctx, u.log).Warn().Str("event", string(ev.Type)).Msg("callback for unknown entity")
		case errors.Is(applyErr, domain.ErrIllegalTransition), errors.Is(applyErr, domain.ErrConflict):
			outcome = model.EventOutcomeConflict
			logging.With(ctx, u.log).Warn().Str("event", string(ev.Type)).Err(applyErr).Msg("callback transition rejected")
		default:
			return applyErr // transient; rollback and let the remote retry
		}
		return u.events.Record(ctx, tx, &model.ProcessedEvent{
			EventType:   ev.Type,
			EntityID:    ev.EntityID,
			DeliveryID:  ev.DeliveryID,
			Outcome:     outcome,
			ProcessedAt: time.Now(),
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			// Lost a marker-insert race; the other delivery already applied.
			metrics.IncCallback(string(ev.Type), "duplicate")
			return nil
		}
		metrics.IncCallback(string(ev.Type), "error")
		return err
	}
	metrics.IncCallback(string(ev.Type), outcome)
	return nil
}

func (u *callbackUC) applyOrderEvent(ctx context.Context, tx repository.Tx, ev *model.CallbackEvent) error {
	order, err := u.orders.FindByPaymentOrderID(ctx, tx, ev.EntityID)
	if err != nil {
		return err
	}

	var next *model.Order
	switch ev.Type {
	case model.EventOrderPaid:
		next, err = order.MarkPaid(ev.GatewayPaymentID)
	case model.EventOrderFailed:
		next, err = order.MarkFailed()
	case model.EventOrderCancelled:
		next, err = order.MarkCancelled()
	case model.EventOrderRefunded:
		next, err = order.MarkRefunded()
	default:
		return domain.ErrInvalidArgument
	}
	if err != nil {
		return err
	}
	if next == order {
		return nil // idempotent no-op
	}
	if err := u.orders.Save(ctx, tx, next); err != nil {
		return err
	}
	metrics.IncOrder(string(next.Status))
	if next.Status == model.OrderStatusPaid {
		metrics.AddOrderRevenue(next.Currency, next.Amount)
	}
	return nil
}

func (u *callbackUC) applySubscriptionEvent(ctx context.Context, tx repository.Tx, ev *model.CallbackEvent) error {
	sub, err := u.subs.FindByPaymentSubscriptionID(ctx, tx, ev.EntityID)
	if err != nil {
		return err
	}

	var (
		next    *model.Subscription
		effects []model.Effect
	)
	switch ev.Type {
	case model.EventSubscriptionAuthenticated:
		next, effects, err = sub.Authenticate()
	case model.EventSubscriptionActivated:
		next, effects, err = sub.Activate(timeOrZero(ev.StartDate), timeOrZero(ev.EndDate))
	case model.EventSubscriptionResumed:
		next, effects, err = sub.Resume()
	case model.EventSubscriptionPaused:
		next, effects, err = sub.Pause()
	case model.EventSubscriptionHalted:
		next, effects, err = sub.Halt()
	case model.EventSubscriptionCancelled:
		next, effects, err = sub.Cancel(ev.Reason, actorOrRemote(ev.Actor))
	case model.EventSubscriptionCompleted:
		next, effects, err = sub.Complete()
	case model.EventSubscriptionExpired:
		next, effects, err = sub.Expire()
	case model.EventInvoicePaid:
		next, effects, err = sub.Renew(timeOrZero(ev.EndDate))
	default:
		return domain.ErrInvalidArgument
	}
	if err != nil {
		return err
	}
	if next == sub {
		return nil // idempotent no-op
	}
	if err := u.subs.Save(ctx, tx, next); err != nil {
		return err
	}
	if err := applyEffects(ctx, tx, u.users, effects); err != nil {
		return err
	}
	metrics.IncSubscription(string(next.Status), string(next.PlanType))
	return nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func actorOrRemote(actor string) string {
	if actor == "" {
		return "payment-service"
	}
	return actor
}
