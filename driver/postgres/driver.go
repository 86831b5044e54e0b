// Package postgres provides a PostgreSQL driver for the larago ORM built on
// pgx and its connection pool.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/driver/internal/sqlbuild"
)

// PostgresDriver implements core.Driver over a pgxpool.Pool.
type PostgresDriver struct {
	pool    *pgxpool.Pool
	builder sqlbuild.Builder
}

var _ core.Driver = (*PostgresDriver)(nil)

// NewPostgresDriver creates a pool for connString. The pool connects lazily;
// call Connect to fail fast.
func NewPostgresDriver(ctx context.Context, connString string) (*PostgresDriver, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresDriver{pool: pool, builder: sqlbuild.Builder{Placeholder: sqlbuild.Dollar, LikeOperator: "ILIKE"}}, nil
}

// Pool exposes the underlying pool, e.g. for migrations.
func (driver *PostgresDriver) Pool() *pgxpool.Pool { return driver.pool }

// conn returns the ongoing transaction from ctx, or the pool.
func (driver *PostgresDriver) conn(ctx context.Context) querier {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if pgTx, ok := tx.(*postgresTransaction); ok {
			return pgTx.transaction
		}
	}
	return driver.pool
}

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (driver *PostgresDriver) Connect(ctx context.Context) error {
	return driver.pool.Ping(ctx)
}

func (driver *PostgresDriver) Ping(ctx context.Context) error {
	return driver.pool.Ping(ctx)
}

func (driver *PostgresDriver) Close(ctx context.Context) error {
	driver.pool.Close()
	return nil
}

func (driver *PostgresDriver) Transaction(ctx context.Context) (core.Transaction, error) {
	tx, err := driver.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &postgresTransaction{transaction: tx}, nil
}

func (driver *PostgresDriver) Select(ctx context.Context, table *core.Table, where *core.Where) ([]core.Row, error) {
	sqlQuery, argList, err := driver.builder.Select(table, where)
	if err != nil {
		return nil, err
	}
	rowList, err := driver.conn(ctx).Query(ctx, sqlQuery, argList...)
	if err != nil {
		return nil, err
	}
	defer rowList.Close()

	columnDescriptionList := rowList.FieldDescriptions()
	var resultList []core.Row
	for rowList.Next() {
		valueList, err := rowList.Values()
		if err != nil {
			return nil, err
		}
		row := make(core.Row, len(columnDescriptionList))
		for i, col := range columnDescriptionList {
			row[col.Name] = valueList[i]
		}
		resultList = append(resultList, row)
	}
	return resultList, rowList.Err()
}

// Insert uses RETURNING to report the key Postgres generated when the row
// had none.
func (driver *PostgresDriver) Insert(ctx context.Context, table *core.Table, row core.Row) (any, error) {
	returning := ""
	if _, ok := row[table.PrimaryKey]; !ok && table.PrimaryKey != "" {
		returning = table.PrimaryKey
	}
	sqlQuery, argList := driver.builder.Insert(table, row, returning)
	if returning == "" {
		_, err := driver.conn(ctx).Exec(ctx, sqlQuery, argList...)
		return nil, err
	}
	var id any
	if err := driver.conn(ctx).QueryRow(ctx, sqlQuery, argList...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return id, nil
}

func (driver *PostgresDriver) Update(ctx context.Context, table *core.Table, condition *core.Condition, changes core.Changes) (int64, error) {
	sqlQuery, argList, err := driver.builder.Update(table, condition, changes)
	if err != nil {
		return 0, err
	}
	tag, err := driver.conn(ctx).Exec(ctx, sqlQuery, argList...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (driver *PostgresDriver) Delete(ctx context.Context, table *core.Table, condition *core.Condition) (int64, error) {
	sqlQuery, argList, err := driver.builder.Delete(table, condition)
	if err != nil {
		return 0, err
	}
	tag, err := driver.conn(ctx).Exec(ctx, sqlQuery, argList...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (driver *PostgresDriver) Count(ctx context.Context, table *core.Table, condition *core.Condition) (int64, error) {
	sqlQuery, argList, err := driver.builder.Count(table, condition)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := driver.conn(ctx).QueryRow(ctx, sqlQuery, argList...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
