package repository

import (
	"context"

	"kids-content-billing/internal/domain/model"
)

// SubscriptionRepository is the port for the local subscription store.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByPaymentSubscriptionID(ctx context.Context, tx Tx, paymentSubscriptionID string) (*model.Subscription, error)
	// FindCurrentByUser returns the user's subscription in the
	// authenticated/active set, or ErrNotFound.
	FindCurrentByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	// HasEverTrialed reports whether the user ever held a trial subscription.
	HasEverTrialed(ctx context.Context, tx Tx, userID string) (bool, error)
}
