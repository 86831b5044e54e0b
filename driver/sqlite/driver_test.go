package sqlite

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leandroluk/larago/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var users = &core.Table{Name: "users", PrimaryKey: "id"}

func newMockDriver(t *testing.T) (*SQLiteDriver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteDriverWithDB(db), mock
}

func TestSQLiteDriver_Select(t *testing.T) {
	driver, mock := newMockDriver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "deleted_at" IS NULL LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "bio"}).
			AddRow(int64(1), []byte("Ann"), nil))

	rows, err := driver.Select(context.Background(), users, &core.Where{Condition: core.Col("deleted_at").Nil(), Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.Row{"id": int64(1), "name": "Ann", "bio": nil}, rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteDriver_Insert(t *testing.T) {
	tests := []struct {
		name    string
		row     core.Row
		query   string
		wantKey any
	}{
		{
			name:    "generated key",
			row:     core.Row{"name": "Ann"},
			query:   `INSERT INTO "users" ("name") VALUES (?)`,
			wantKey: int64(42),
		},
		{
			name:    "explicit key",
			row:     core.Row{"id": "k1", "name": "Ann"},
			query:   `INSERT INTO "users" ("id", "name") VALUES (?, ?)`,
			wantKey: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, mock := newMockDriver(t)
			mock.ExpectExec(regexp.QuoteMeta(tt.query)).WillReturnResult(sqlmock.NewResult(42, 1))

			key, err := driver.Insert(context.Background(), users, tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLiteDriver_UpdateDeleteCount(t *testing.T) {
	ctx := context.Background()
	driver, mock := newMockDriver(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "deleted_at" = ? WHERE "id" = ?`)).
		WithArgs(nil, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	affected, err := driver.Update(ctx, users, core.Col("id").Eq(1), core.Changes{"deleted_at": nil})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users" WHERE "id" IN (?, ?)`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	affected, err = driver.Delete(ctx, users, core.Col("id").In(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "users" WHERE 1=1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	count, err := driver.Count(ctx, users, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteDriver_TransactionFromContext(t *testing.T) {
	ctx := context.Background()
	driver, mock := newMockDriver(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users" WHERE "id" = ?`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := core.RunTransaction(ctx, driver, func(txCtx context.Context) error {
		if _, err := driver.Delete(txCtx, users, core.Col("id").Eq(1)); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteDriver_ModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	driver, mock := newMockDriver(t)
	model := core.NewModel("users", driver, core.SoftDeletes())

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users" ("name") VALUES (?)`)).
		WithArgs("Ann").
		WillReturnResult(sqlmock.NewResult(7, 1))
	record, err := model.Create(ctx, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), record.Key())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "deleted_at" = ? WHERE "id" = ?`)).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, record.Delete(ctx))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "users" WHERE "deleted_at" IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	count, err := model.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
