package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// postgresTransaction wraps a pgx.Tx and implements the core.Transaction interface.
type postgresTransaction struct {
	transaction pgx.Tx
}

// Commit finalizes the transaction, making all changes permanent.
func (transaction *postgresTransaction) Commit(ctx context.Context) error {
	return transaction.transaction.Commit(ctx)
}

// Rollback aborts the transaction, discarding all changes made during it.
func (transaction *postgresTransaction) Rollback(ctx context.Context) error {
	return transaction.transaction.Rollback(ctx)
}
