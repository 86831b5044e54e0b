package core_test

import (
	"context"
	"testing"

	"github.com/leandroluk/larago/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestSoftDelete_FlagsAndHides(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t, core.SoftDeletes())
	assert.Equal(t, []string{core.SoftDeletingScopeName}, users.Scopes().Names("users"))

	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	_, err = users.Create(ctx, map[string]any{"name": "Bob"})
	require.NoError(t, err)

	require.NoError(t, ann.Delete(ctx))
	assert.True(t, ann.Trashed())
	assert.True(t, ann.Exists())
	assert.Equal(t, fixedNow, ann.Get("deleted_at"))
	assert.Equal(t, map[string]any{"deleted_at": fixedNow}, ann.GetChanges())

	assert.Len(t, rowsOf(driver, users), 2, "the row stays in storage")

	visible, err := users.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"Bob"}, names(visible))

	all, err := users.WithTrashed().OrderBy("id", 1).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann", "Bob"}, names(all))

	trashed, err := users.OnlyTrashed().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann"}, names(trashed))
	assert.True(t, trashed[0].Trashed())
}

func TestSoftDelete_WritesOnlyTheFlag(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t, core.SoftDeletes())
	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)

	ann.Set("name", "pending rename")
	require.NoError(t, ann.Delete(ctx))

	rows := rowsOf(driver, users)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ann", rows[0]["name"])
	assert.True(t, ann.IsDirty("name"))
	assert.False(t, ann.IsDirty("deleted_at"))
}

func TestSoftDelete_EventsDoNotIncludeSaving(t *testing.T) {
	ctx := context.Background()
	users, _ := newUsers(t, core.SoftDeletes())
	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	rec := &recorder{}
	rec.listenAll(t, users)

	require.NoError(t, ann.Delete(ctx))
	assert.Equal(t, []string{"deleting", "deleted"}, rec.seen)

	rec.seen = nil
	require.NoError(t, ann.Restore(ctx))
	assert.Equal(t, []string{"restoring", "restored"}, rec.seen)
	assert.False(t, ann.Trashed())

	found, err := users.Find(ctx, ann.Key())
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestSoftDelete_VetoedDeleteKeepsRecordVisible(t *testing.T) {
	ctx := context.Background()
	users, _ := newUsers(t, core.SoftDeletes())
	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	require.NoError(t, users.Deleting(func(ctx context.Context, record *core.Record) (core.Decision, error) {
		return core.Veto("keep"), nil
	}))

	assert.ErrorIs(t, ann.Delete(ctx), core.ErrVetoed)
	assert.False(t, ann.Trashed())
	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSoftDelete_ForceDelete(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t, core.SoftDeletes())
	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	require.NoError(t, ann.Delete(ctx))

	rec := &recorder{}
	rec.listenAll(t, users)
	require.NoError(t, ann.ForceDelete(ctx))
	assert.Equal(t, []string{"deleting", "deleted"}, rec.seen)
	assert.False(t, ann.Exists())
	assert.Empty(t, rowsOf(driver, users))
}

func TestSoftDelete_TrashedQueriesNeedSoftDeletes(t *testing.T) {
	ctx := context.Background()
	users, _ := newUsers(t)

	_, err := users.WithTrashed().Get(ctx)
	assert.ErrorIs(t, err, core.ErrNotSoftDeletable)
	_, err = users.OnlyTrashed().Count(ctx)
	assert.ErrorIs(t, err, core.ErrNotSoftDeletable)
	_, err = users.RestoreAll(ctx, 1)
	assert.ErrorIs(t, err, core.ErrNotSoftDeletable)
}

func TestSoftDelete_RestoreAllIsBestEffort(t *testing.T) {
	ctx := context.Background()
	users, _ := newUsers(t, core.SoftDeletes())
	for _, name := range []string{"Ann", "Bob", "Cid"} {
		record, err := users.Create(ctx, map[string]any{"name": name})
		require.NoError(t, err)
		require.NoError(t, record.Delete(ctx))
	}
	require.NoError(t, users.Restoring(func(ctx context.Context, record *core.Record) (core.Decision, error) {
		if record.Get("name") == "Bob" {
			return core.Veto("banned"), nil
		}
		return core.Proceed(), nil
	}))

	restored, err := users.RestoreAll(ctx, int64(1), int64(2), int64(99), int64(3))
	assert.Equal(t, 2, restored)
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.True(t, core.IsVetoed(errs[0]))
	assert.ErrorIs(t, errs[1], core.ErrNotFound)
	assert.Contains(t, errs[1].Error(), "restore 99")

	visible, err := users.Query().OrderBy("id", 1).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"Ann", "Cid"}, names(visible))
}

func TestSoftDelete_ForceDeleteAll(t *testing.T) {
	ctx := context.Background()
	users, driver := newUsers(t, core.SoftDeletes())
	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	bob, err := users.Create(ctx, map[string]any{"name": "Bob"})
	require.NoError(t, err)
	require.NoError(t, bob.Delete(ctx))

	removed, err := users.ForceDeleteAll(ctx, ann.Key(), bob.Key())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, rowsOf(driver, users))

	removed, err = users.ForceDeleteAll(ctx)
	assert.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSoftDelete_CustomColumn(t *testing.T) {
	ctx := context.Background()
	users, _ := newUsers(t, core.SoftDeletesColumn("archived_at"))
	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)

	require.NoError(t, ann.Delete(ctx))
	assert.Equal(t, fixedNow, ann.Get("archived_at"))
	assert.Nil(t, ann.Get("deleted_at"))
	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSoftDelete_IsForceDeleting(t *testing.T) {
	ctx := context.Background()
	users, _ := newUsers(t, core.SoftDeletes())
	var seen []bool
	require.NoError(t, users.Deleting(func(ctx context.Context, record *core.Record) (core.Decision, error) {
		seen = append(seen, record.IsForceDeleting())
		return core.Proceed(), nil
	}))
	require.NoError(t, users.Deleted(func(ctx context.Context, record *core.Record) error {
		seen = append(seen, record.IsForceDeleting())
		return nil
	}))

	ann, err := users.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	require.NoError(t, ann.Delete(ctx))
	require.NoError(t, ann.ForceDelete(ctx))

	assert.Equal(t, []bool{false, false, true, true}, seen)
	assert.False(t, ann.IsForceDeleting(), "reset once ForceDelete returns")
}
