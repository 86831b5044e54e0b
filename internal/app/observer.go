package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/leandroluk/larago/core"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// UserObserver validates users before they are written and keeps their
// posts in step with them.
type UserObserver struct {
	app    *App
	logger zerolog.Logger
}

func (o *UserObserver) Saving(ctx context.Context, user *core.Record) (core.Decision, error) {
	name, _ := user.Get("name").(string)
	if strings.TrimSpace(name) == "" {
		return core.Veto("name is required"), nil
	}
	email, _ := user.Get("email").(string)
	if !strings.Contains(email, "@") {
		return core.Veto("invalid email"), nil
	}
	if password, _ := user.Get("password").(string); password != "" && !IsPasswordHash(password) {
		return core.Veto("password could not be hashed"), nil
	}
	return core.Proceed(), nil
}

func (o *UserObserver) Creating(ctx context.Context, user *core.Record) (core.Decision, error) {
	if !user.Has("active") {
		user.Set("active", true)
	}
	return core.Proceed(), nil
}

// Updating drops the verification when the email changes.
func (o *UserObserver) Updating(ctx context.Context, user *core.Record) (core.Decision, error) {
	if user.IsDirty("email") && user.Get("verified_at") != nil {
		user.SetRaw("verified_at", nil)
	}
	return core.Proceed(), nil
}

// Deleting removes the user's posts, trashed ones included, before a force
// delete removes the user, so the posts never point at a missing row.
func (o *UserObserver) Deleting(ctx context.Context, user *core.Record) (core.Decision, error) {
	if !user.IsForceDeleting() {
		return core.Proceed(), nil
	}
	query, err := o.app.UserPosts.Query(ctx, user)
	if err != nil {
		return core.Proceed(), err
	}
	posts, err := query.WithTrashed().Select(o.app.Posts.KeyName()).Get(ctx)
	if err != nil {
		return core.Proceed(), err
	}
	keys := make([]any, len(posts))
	for i, post := range posts {
		keys[i] = post.Key()
	}
	_, err = o.app.Posts.ForceDeleteAll(ctx, keys...)
	return core.Proceed(), err
}

// Deleted soft-deletes the user's posts after a soft delete.
func (o *UserObserver) Deleted(ctx context.Context, user *core.Record) error {
	if user.IsForceDeleting() {
		return nil
	}
	posts, err := o.app.UserPosts.Get(ctx, user)
	if err != nil {
		return err
	}
	var errs error
	for _, post := range posts {
		if err := post.Delete(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("post %v: %w", post.Key(), err))
		}
	}
	return errs
}

func (o *UserObserver) Restored(ctx context.Context, user *core.Record) error {
	o.logger.Info().Interface("user", user.Key()).Msg("user restored")
	return nil
}
