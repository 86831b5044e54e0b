package core_test

import (
	"context"
	"testing"

	"github.com/leandroluk/larago/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelation_HasManyAndBelongsTo(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t)
	posts := core.NewModel("posts", driver, core.Fillable("title", "user_id", "published"), core.SoftDeletes())

	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	bob, err := users.Create(ctx, map[string]any{"name": "Bob"})
	require.NoError(t, err)

	userPosts := users.HasMany(posts, "user_id", "")
	first, err := userPosts.Create(ctx, ann, map[string]any{"title": "one"})
	require.NoError(t, err)
	assert.Equal(t, ann.Key(), first.Get("user_id"))
	second, err := userPosts.Create(ctx, ann, map[string]any{"title": "two"})
	require.NoError(t, err)
	_, err = userPosts.Create(ctx, bob, map[string]any{"title": "three"})
	require.NoError(t, err)

	require.NoError(t, second.Delete(ctx))

	annPosts, err := userPosts.Get(ctx, ann)
	require.NoError(t, err)
	require.Len(t, annPosts, 1, "the related model's global scopes apply")
	assert.Equal(t, "one", annPosts[0].Get("title"))

	query, err := userPosts.Query(ctx, ann)
	require.NoError(t, err)
	withTrashed, err := query.WithTrashed().Get(ctx)
	require.NoError(t, err)
	assert.Len(t, withTrashed, 2)

	author, err := posts.BelongsTo(users, "user_id", "").First(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "Ann", author.Get("name"))

	_, err = userPosts.Get(ctx, first)
	assert.Error(t, err, "parent of the wrong model")
}

func TestRelation_HasOne(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t)
	profiles := core.NewModel("profiles", driver)

	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)

	profile := users.HasOne(profiles, "user_id", "")
	none, err := profile.First(ctx, ann)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = profile.Create(ctx, ann, map[string]any{"bio": "hi"})
	require.NoError(t, err)
	found, err := profile.First(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, "hi", found.Get("bio"))
}

func TestRelation_BelongsToMany(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t)
	roles := core.NewModel("roles", driver)

	seed(t, driver, users, core.Row{"id": int64(1), "name": "Ann"}, core.Row{"id": int64(2), "name": "Bob"})
	seed(t, driver, roles, core.Row{"id": int64(10), "name": "admin"}, core.Row{"id": int64(11), "name": "editor"})
	joinTable := core.Table{Name: "role_user"}
	require.NoError(t, driver.Seed(&joinTable,
		core.Row{"user_id": int64(1), "role_id": int64(10)},
		core.Row{"user_id": int64(1), "role_id": int64(11)},
	))

	ann, err := users.FindOrFail(ctx, 1)
	require.NoError(t, err)
	bob, err := users.FindOrFail(ctx, 2)
	require.NoError(t, err)

	userRoles := users.BelongsToMany(roles, "role_user", "user_id", "role_id")
	annRoles, err := userRoles.Get(ctx, ann)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"admin", "editor"}, names(annRoles))

	bobRoles, err := userRoles.Get(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobRoles)

	_, err = userRoles.Create(ctx, ann, map[string]any{"name": "viewer"})
	assert.Error(t, err)
}

func TestQuery_Has(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t)
	posts := core.NewModel("posts", driver, core.Fillable("title", "user_id"), core.SoftDeletes())
	roles := core.NewModel("roles", driver)

	seed(t, driver, users,
		core.Row{"id": int64(1), "name": "Ann"},
		core.Row{"id": int64(2), "name": "Bob"},
		core.Row{"id": int64(3), "name": "Cid"},
	)
	seed(t, driver, posts,
		core.Row{"id": int64(1), "user_id": int64(1), "title": "one"},
		core.Row{"id": int64(2), "user_id": int64(1), "title": "two"},
		core.Row{"id": int64(3), "user_id": int64(2), "title": "gone", "deleted_at": fixedNow},
		core.Row{"id": int64(4), "user_id": int64(9), "title": "orphan"},
	)
	seed(t, driver, roles, core.Row{"id": int64(10), "name": "admin"})
	joinTable := core.Table{Name: "role_user"}
	require.NoError(t, driver.Seed(&joinTable, core.Row{"user_id": int64(3), "role_id": int64(10)}))

	userPosts := users.HasMany(posts, "user_id", "")
	withPosts, err := users.Query().Has(userPosts).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann"}, names(withPosts), "trashed posts do not count")

	count, err := users.Query().Has(userPosts).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	authored, err := posts.Query().Has(posts.BelongsTo(users, "user_id", "")).OrderBy("id", 1).Get(ctx)
	require.NoError(t, err)
	require.Len(t, authored, 2)
	assert.Equal(t, "one", authored[0].Get("title"))

	withRoles, err := users.Query().Has(users.BelongsToMany(roles, "role_user", "user_id", "role_id")).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"Cid"}, names(withRoles))

	_, err = users.Query().Has(userPosts).Compile()
	assert.ErrorIs(t, err, core.ErrUnresolvedRelation)

	_, err = posts.Query().Has(userPosts).Get(ctx)
	assert.Error(t, err, "relation of another model")
}
