package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function inside a database transaction,
// handing the transaction to the callback via the opaque Tx argument.
//
// Repositories accept the same Tx and dispatch on its concrete type
// (implementation side), so use-case interfaces stay free of storage types.
// A nil Tx means the non-transactional path. Keep this interface small.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
