package repository

import (
	"context"

	"kids-content-billing/internal/domain/model"
)

// OrderRepository is the port for the local order store. Orders are an
// append-only audit trail: there is no delete.
type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	FindByPaymentOrderID(ctx context.Context, tx Tx, paymentOrderID string) (*model.Order, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Order, error)
}
