package core

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

type transactionKey struct{}

// WithTransaction returns a ctx carrying tx. Drivers run statements issued
// with that ctx inside tx.
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFrom returns the transaction carried by ctx, or nil.
func TransactionFrom(ctx context.Context) Transaction {
	tx, _ := ctx.Value(transactionKey{}).(Transaction)
	return tx
}

// TransactionFunc runs inside a transaction; txCtx carries it.
type TransactionFunc func(txCtx context.Context) error

// RunTransaction runs fn in a new transaction on driver, committing when fn
// returns nil and rolling back otherwise (or when fn panics).
//
// A ctx that already carries a transaction is reused: fn joins it and the
// outermost call commits or rolls back.
func RunTransaction(ctx context.Context, driver Driver, fn TransactionFunc) (err error) {
	if TransactionFrom(ctx) != nil {
		return fn(ctx)
	}
	tx, err := driver.Transaction(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(WithTransaction(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
