package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"kids-content-billing/internal/domain"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, payment_subscription_id, gateway_subscription_id, plan_id, plan_type, amount, currency, billing_cycle, status, start_date, end_date, next_billing_date, trial_start, trial_end, auto_renewal, cancellation_reason, cancelled_at, cancelled_by, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, payment_subscription_id, gateway_subscription_id, plan_id, plan_type, amount, currency, billing_cycle, status, start_date, end_date, next_billing_date, trial_start, trial_end, auto_renewal, cancellation_reason, cancelled_at, cancelled_by, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
) ON CONFLICT (id) DO UPDATE SET
  gateway_subscription_id=$4, status=$10, start_date=$11, end_date=$12, next_billing_date=$13,
  trial_start=$14, trial_end=$15, auto_renewal=$16, cancellation_reason=$17, cancelled_at=$18, cancelled_by=$19, updated_at=$21;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PaymentSubscriptionID, nullable(s.GatewaySubscriptionID),
		s.PlanID, s.PlanType, s.Amount, s.Currency, s.BillingCycle, s.Status,
		s.StartDate, s.EndDate, s.NextBillingDate, s.TrialStart, s.TrialEnd,
		s.AutoRenewal, nullable(s.CancellationReason), s.CancelledAt, nullable(s.CancelledBy),
		s.CreatedAt, s.UpdatedAt)
	return mapExecError(err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	return r.scanOne(ctx, tx, q+";", id)
}

func (r *subscriptionRepo) FindByPaymentSubscriptionID(ctx context.Context, tx repository.Tx, remoteID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE payment_subscription_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	return r.scanOne(ctx, tx, q+";", remoteID)
}

func (r *subscriptionRepo) FindCurrentByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 AND status IN ('authenticated','active') ORDER BY created_at DESC LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	return r.scanOne(ctx, tx, q+";", userID)
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, mapExecError(err)
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *subscriptionRepo) HasEverTrialed(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id=$1 AND plan_type='trial');`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *subscriptionRepo) scanOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	s := &model.Subscription{}
	var gatewaySubID, reason, actor *string
	err := row.Scan(&s.ID, &s.UserID, &s.PaymentSubscriptionID, &gatewaySubID,
		&s.PlanID, &s.PlanType, &s.Amount, &s.Currency, &s.BillingCycle, &s.Status,
		&s.StartDate, &s.EndDate, &s.NextBillingDate, &s.TrialStart, &s.TrialEnd,
		&s.AutoRenewal, &reason, &s.CancelledAt, &actor, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.GatewaySubscriptionID = deref(gatewaySubID)
	s.CancellationReason = deref(reason)
	s.CancelledBy = deref(actor)
	return s, nil
}
