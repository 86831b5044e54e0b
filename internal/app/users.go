package app

import (
	"context"
	"fmt"

	"github.com/leandroluk/larago/core"
	"go.uber.org/multierr"
)

// DeleteUser soft-deletes user and its posts in one transaction. When any
// post refuses, nothing is written and user is reloaded from storage.
func (a *App) DeleteUser(ctx context.Context, user *core.Record) error {
	err := a.Users.Transaction(ctx, func(txCtx context.Context) error {
		return user.Delete(txCtx)
	})
	if err != nil && user.Exists() {
		err = multierr.Append(err, user.Refresh(ctx))
	}
	return err
}

// ForceDeleteUsers removes each user and its posts, one transaction per key.
// It keeps going after a failure and returns how many users were removed
// with every error joined.
func (a *App) ForceDeleteUsers(ctx context.Context, keys ...any) (int, error) {
	var errs error
	done := 0
	for _, key := range keys {
		err := a.Users.Transaction(ctx, func(txCtx context.Context) error {
			_, err := a.Users.ForceDeleteAll(txCtx, key)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %v: %w", key, err))
			continue
		}
		done++
	}
	return done, errs
}
