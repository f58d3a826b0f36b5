// File: internal/usecase/order_uc.go
package usecase

import (
	"context"

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
var _ OrderUseCase = (*orderUC)(nil)

type OrderUseCase interface {
	// Create registers the order with the payment service first and persists
	// the local record only after the remote call succeeded.
	Create(ctx context.Context, userID string, amount int64, currency, orderType, relatedID string, paymentContext map[string]any) (*model.Order, error)
	// Verify finalizes a checkout the client app reports as completed. It is
	// idempotent for repeated verification of the same payment.
	Verify(ctx context.Context, req adapter.VerifyRequest) (*model.Order, error)
	List(ctx context.Context, userID string, limit, offset int) ([]*model.Order, error)
}

type orderUC struct {
	orders  repository.OrderRepository
	gateway adapter.PaymentService
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewOrderUseCase(orders repository.OrderRepository, gateway adapter.PaymentService, tm repository.TransactionManager, log *zerolog.Logger) *orderUC {
	return &orderUC{orders: orders, gateway: gateway, tm: tm, log: log}
}

func (u *orderUC) Create(ctx context.Context, userID string, amount int64, currency, orderType, relatedID string, paymentContext map[string]any) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Create")()

	if userID == "" || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	// Remote first: a local row referencing a nonexistent remote order could
	// never be reconciled.
	res, err := u.gateway.CreateOrder(ctx, userID, amount, currency, orderType, paymentContext)
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("remote order creation failed")
		return nil, err
	}

	order, err := model.NewOrder(newID(), userID, res.PaymentOrderID, amount, currency, orderType, relatedID, paymentContext)
	if err != nil {
		return nil, err
	}
	order.GatewayOrderID = res.GatewayOrderID

	if err := u.orders.Save(ctx, nil, order); err != nil {
		return nil, err
	}
	metrics.IncOrder(string(order.Status))
	return order, nil
}

func (u *orderUC) Verify(ctx context.Context, req adapter.VerifyRequest) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Verify")()

	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.GatewaySignature == "" {
		return nil, domain.ErrInvalidArgument
	}

	paymentOrderID, err := u.gateway.VerifySuccess(ctx, req)
	if err != nil {
		return nil, err
	}

	var verified *model.Order
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		order, err := u.orders.FindByPaymentOrderID(ctx, tx, paymentOrderID)
		if err != nil {
			return err
		}
		next, err := order.MarkPaid(req.GatewayPaymentID)
		if err != nil {
			return err
		}
		if next == order {
			// already paid with the same payment id
			verified = order
			return nil
		}
		if err := u.orders.Save(ctx, tx, next); err != nil {
			return err
		}
		metrics.IncOrder(string(next.Status))
		metrics.AddOrderRevenue(next.Currency, next.Amount)
		verified = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

func (u *orderUC) List(ctx context.Context, userID string, limit, offset int) ([]*model.Order, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.orders.ListByUser(ctx, nil, userID, limit, offset)
}
