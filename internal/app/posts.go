package app

import (
	"context"

	"github.com/leandroluk/larago/core"
)

// requireAuthor vetoes posts whose user is missing or trashed.
func (a *App) requireAuthor(ctx context.Context, post *core.Record) (core.Decision, error) {
	if post.Get("user_id") == nil {
		return core.Veto("a post needs an author"), nil
	}
	author, err := a.PostAuthor.First(ctx, post)
	if err != nil {
		return core.Proceed(), err
	}
	if author == nil {
		return core.Veto("author not found"), nil
	}
	return core.Proceed(), nil
}

// Publish stamps published_at, which mass assignment refuses.
func (a *App) Publish(ctx context.Context, post *core.Record) error {
	post.Set("published_at", a.Posts.Now())
	return post.Save(ctx)
}

// Verify marks the user's email as verified.
func (a *App) Verify(ctx context.Context, user *core.Record) error {
	user.Set("verified_at", a.Users.Now())
	return user.Save(ctx)
}
