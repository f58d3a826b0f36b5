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

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, user_id, payment_order_id, gateway_order_id, gateway_payment_id, amount, currency, status, order_type, related_id, payment_context, created_at, updated_at, paid_at, failed_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  id, user_id, payment_order_id, gateway_order_id, gateway_payment_id, amount, currency, status, order_type, related_id, payment_context, created_at, updated_at, paid_at, failed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  gateway_order_id=$4, gateway_payment_id=$5, status=$8, payment_context=$11, updated_at=$13, paid_at=$14, failed_at=$15;`

	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.UserID, o.PaymentOrderID, nullable(o.GatewayOrderID), nullable(o.GatewayPaymentID),
		o.Amount, o.Currency, o.Status, o.OrderType, nullable(o.RelatedID), o.PaymentContext,
		o.CreatedAt, o.UpdatedAt, o.PaidAt, o.FailedAt)
	return mapExecError(err)
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	return r.scanOne(ctx, tx, q+";", id)
}

func (r *orderRepo) FindByPaymentOrderID(ctx context.Context, tx repository.Tx, paymentOrderID string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE payment_order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	return r.scanOne(ctx, tx, q+";", paymentOrderID)
}

func (r *orderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit, offset)
	if err != nil {
		return nil, mapExecError(err)
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) scanOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Order, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanOrder(row rowScanner) (*model.Order, error) {
	o := &model.Order{}
	var gatewayOrderID, gatewayPaymentID, relatedID *string
	err := row.Scan(&o.ID, &o.UserID, &o.PaymentOrderID, &gatewayOrderID, &gatewayPaymentID,
		&o.Amount, &o.Currency, &o.Status, &o.OrderType, &relatedID, &o.PaymentContext,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.FailedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	o.GatewayOrderID = deref(gatewayOrderID)
	o.GatewayPaymentID = deref(gatewayPaymentID)
	o.RelatedID = deref(relatedID)
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
