package memory

import (
	"context"
	"testing"
	"time"

	"github.com/leandroluk/larago/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := core.Row{"name": "Ann", "age": int64(30), "deleted_at": nil, "seen_at": now}

	tests := []struct {
		name      string
		condition *core.Condition
		want      bool
	}{
		{"nil condition", nil, true},
		{"eq", core.Col("name").Eq("Ann"), true},
		{"eq across int kinds", core.Col("age").Eq(30), true},
		{"ne", core.Col("name").Ne("Bob"), true},
		{"ne never matches null", core.Col("deleted_at").Ne("x"), false},
		{"eq never matches null", core.Col("missing").Eq(nil), false},
		{"is null", core.Col("deleted_at").Nil(), true},
		{"missing column is null", core.Col("missing").Nil(), true},
		{"is not null", core.Col("name").NotNil(), true},
		{"gt", core.Col("age").Gt(29), true},
		{"lte", core.Col("age").Lte(29), false},
		{"time compare", core.Col("seen_at").Lt(now.Add(time.Hour)), true},
		{"like is case insensitive", core.Col("name").Like("a%"), true},
		{"like single char", core.Col("name").Like("A_"), false},
		{"like escapes regexp", core.Col("name").Like("A.n"), false},
		{"in", core.Col("name").In("Bob", "Ann"), true},
		{"empty in", core.Col("name").In(), false},
		{"and", core.Col("name").Eq("Ann").And(core.Col("age").Gt(40)), false},
		{"or", core.Col("name").Eq("Bob").Or(core.Col("age").Gt(20)), true},
		{"not", core.Col("name").Eq("Ann").Not(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(tt.condition, row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Matches(core.Col("name").Gt(1), row)
	assert.Error(t, err, "string and number do not compare")
}

func TestMemoryDriver_CRUD(t *testing.T) {
	ctx := context.Background()
	driver := NewMemoryDriver()
	table := &core.Table{Name: "users", PrimaryKey: "id"}

	id, err := driver.Insert(ctx, table, core.Row{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = driver.Insert(ctx, table, core.Row{"id": int64(5), "name": "Bob"})
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = driver.Insert(ctx, table, core.Row{"id": int64(5), "name": "Dup"})
	assert.Error(t, err)

	id, err = driver.Insert(ctx, table, core.Row{"name": "Cid"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), id)

	affected, err := driver.Update(ctx, table, core.Col("name").Eq("Ann"), core.Changes{"name": "Anna"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	rows, err := driver.Select(ctx, table, &core.Where{Sort: []core.Sort{{FieldName: "id", Order: -1}}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cid", rows[0]["name"])
	assert.Equal(t, "Bob", rows[1]["name"])

	rows[0]["name"] = "mutated"
	count, err := driver.Count(ctx, table, core.Col("name").Eq("mutated"))
	require.NoError(t, err)
	assert.Zero(t, count, "selected rows are copies")

	affected, err = driver.Delete(ctx, table, core.Col("id").In(int64(1), int64(5)))
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.Len(t, driver.Rows(table), 1)
}

func TestMemoryDriver_FailingConditionWritesNothing(t *testing.T) {
	ctx := context.Background()
	driver := NewMemoryDriver()
	table := &core.Table{Name: "users", PrimaryKey: "id"}
	require.NoError(t, driver.Seed(table,
		core.Row{"id": int64(1), "name": "Ann"},
		core.Row{"id": int64(2), "name": "Bob"},
		core.Row{"id": int64(3), "name": "Cid"},
	))
	// Row 1 matches, row 2 is kept and row 3 cannot be compared.
	condition := core.Col("id").Eq(int64(1)).Or(core.Col("id").Eq(int64(3)).And(core.Col("name").Gt(5)))

	_, err := driver.Delete(ctx, table, condition)
	require.Error(t, err)
	_, err = driver.Update(ctx, table, condition, core.Changes{"name": "changed"})
	require.Error(t, err)

	rows := driver.Rows(table)
	require.Len(t, rows, 3)
	for i, name := range []string{"Ann", "Bob", "Cid"} {
		assert.Equal(t, int64(i+1), rows[i]["id"])
		assert.Equal(t, name, rows[i]["name"])
	}
}

func TestMemoryDriver_SelectProjectionAndOffset(t *testing.T) {
	ctx := context.Background()
	driver := NewMemoryDriver()
	table := &core.Table{Name: "users", PrimaryKey: "id"}
	require.NoError(t, driver.Seed(table,
		core.Row{"name": "Ann", "email": "a@x"},
		core.Row{"name": "Bob", "email": "b@x"},
	))

	projected := &core.Table{Name: "users", PrimaryKey: "id", Columns: []string{"name"}}
	rows, err := driver.Select(ctx, projected, &core.Where{Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{"name": "Bob"}}, rows)

	rows, err = driver.Select(ctx, table, &core.Where{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryDriver_SortNullsFirst(t *testing.T) {
	rows := []core.Row{{"n": int64(2)}, {"n": nil}, {"n": int64(1)}}
	sortRows(rows, []core.Sort{{FieldName: "n", Order: 1}})
	assert.Equal(t, []core.Row{{"n": nil}, {"n": int64(1)}, {"n": int64(2)}}, rows)

	sortRows(rows, []core.Sort{{FieldName: "n", Order: -1}})
	assert.Equal(t, []core.Row{{"n": int64(2)}, {"n": int64(1)}, {"n": nil}}, rows)
}

func TestMemoryDriver_Transaction(t *testing.T) {
	ctx := context.Background()
	driver := NewMemoryDriver()
	table := &core.Table{Name: "users", PrimaryKey: "id"}

	tx, err := driver.Transaction(ctx)
	require.NoError(t, err)
	_, err = driver.Insert(ctx, table, core.Row{"name": "Ann"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
	assert.Empty(t, driver.Rows(table))
	assert.Error(t, tx.Commit(ctx), "already finished")

	tx, err = driver.Transaction(ctx)
	require.NoError(t, err)
	_, err = driver.Insert(ctx, table, core.Row{"name": "Ann"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.Len(t, driver.Rows(table), 1)
}

func TestMemoryDriver_Close(t *testing.T) {
	ctx := context.Background()
	driver := NewMemoryDriver()
	require.NoError(t, driver.Connect(ctx))
	require.NoError(t, driver.Close(ctx))
	assert.Error(t, driver.Ping(ctx))
}
