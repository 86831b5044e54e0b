// Package sqlite provides a database/sql driver for the larago ORM backed by
// the pure-Go modernc.org/sqlite engine.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/driver/internal/sqlbuild"
	_ "modernc.org/sqlite"
)

type sqliteTransaction struct {
	transaction *sql.Tx
}

func (transaction *sqliteTransaction) Commit(ctx context.Context) error {
	return transaction.transaction.Commit()
}

func (transaction *sqliteTransaction) Rollback(ctx context.Context) error {
	return transaction.transaction.Rollback()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteDriver implements core.Driver over a *sql.DB.
type SQLiteDriver struct {
	db      *sql.DB
	builder sqlbuild.Builder
}

var _ core.Driver = (*SQLiteDriver)(nil)

// NewSQLiteDriver opens path (":memory:" for an in-memory database) with
// foreign keys enabled.
func NewSQLiteDriver(ctx context.Context, path string) (*SQLiteDriver, error) {
	var dsn string
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return NewSQLiteDriverWithDB(db), nil
}

// NewSQLiteDriverWithDB wraps an existing connection pool.
func NewSQLiteDriverWithDB(db *sql.DB) *SQLiteDriver {
	return &SQLiteDriver{db: db, builder: sqlbuild.Builder{Placeholder: sqlbuild.Question, LikeOperator: "LIKE"}}
}

// DB exposes the underlying pool, e.g. for migrations.
func (driver *SQLiteDriver) DB() *sql.DB { return driver.db }

func (driver *SQLiteDriver) conn(ctx context.Context) queryer {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if sqliteTx, ok := tx.(*sqliteTransaction); ok {
			return sqliteTx.transaction
		}
	}
	return driver.db
}

func (driver *SQLiteDriver) Connect(ctx context.Context) error {
	return driver.db.PingContext(ctx)
}

func (driver *SQLiteDriver) Ping(ctx context.Context) error {
	return driver.db.PingContext(ctx)
}

func (driver *SQLiteDriver) Close(ctx context.Context) error {
	return driver.db.Close()
}

func (driver *SQLiteDriver) Transaction(ctx context.Context) (core.Transaction, error) {
	tx, err := driver.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTransaction{transaction: tx}, nil
}

func (driver *SQLiteDriver) Select(ctx context.Context, table *core.Table, where *core.Where) ([]core.Row, error) {
	sqlQuery, argList, err := driver.builder.Select(table, where)
	if err != nil {
		return nil, err
	}
	rowList, err := driver.conn(ctx).QueryContext(ctx, sqlQuery, argList...)
	if err != nil {
		return nil, err
	}
	defer rowList.Close()

	columnList, err := rowList.Columns()
	if err != nil {
		return nil, err
	}
	var resultList []core.Row
	for rowList.Next() {
		valueList := make([]any, len(columnList))
		pointerList := make([]any, len(columnList))
		for i := range valueList {
			pointerList[i] = &valueList[i]
		}
		if err := rowList.Scan(pointerList...); err != nil {
			return nil, err
		}
		row := make(core.Row, len(columnList))
		for i, column := range columnList {
			if b, ok := valueList[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = valueList[i]
		}
		resultList = append(resultList, row)
	}
	return resultList, rowList.Err()
}

// Insert returns the rowid SQLite assigned when the row had no primary key.
func (driver *SQLiteDriver) Insert(ctx context.Context, table *core.Table, row core.Row) (any, error) {
	sqlQuery, argList := driver.builder.Insert(table, row, "")
	result, err := driver.conn(ctx).ExecContext(ctx, sqlQuery, argList...)
	if err != nil {
		return nil, err
	}
	if _, ok := row[table.PrimaryKey]; ok || table.PrimaryKey == "" {
		return nil, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (driver *SQLiteDriver) Update(ctx context.Context, table *core.Table, condition *core.Condition, changes core.Changes) (int64, error) {
	sqlQuery, argList, err := driver.builder.Update(table, condition, changes)
	if err != nil {
		return 0, err
	}
	return driver.exec(ctx, sqlQuery, argList)
}

func (driver *SQLiteDriver) Delete(ctx context.Context, table *core.Table, condition *core.Condition) (int64, error) {
	sqlQuery, argList, err := driver.builder.Delete(table, condition)
	if err != nil {
		return 0, err
	}
	return driver.exec(ctx, sqlQuery, argList)
}

func (driver *SQLiteDriver) exec(ctx context.Context, sqlQuery string, argList []any) (int64, error) {
	result, err := driver.conn(ctx).ExecContext(ctx, sqlQuery, argList...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (driver *SQLiteDriver) Count(ctx context.Context, table *core.Table, condition *core.Condition) (int64, error) {
	sqlQuery, argList, err := driver.builder.Count(table, condition)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := driver.conn(ctx).QueryRowContext(ctx, sqlQuery, argList...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
