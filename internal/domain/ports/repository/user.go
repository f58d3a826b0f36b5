package repository

import (
	"context"

	"kids-content-billing/internal/domain/model"
)

// UserRepository is the port for the billing projection of users.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
}
