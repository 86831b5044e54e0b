// Package core provides the fundamental building blocks of the larago ORM.
// It defines abstractions for queries, models, records, events and drivers.
package core

import "context"

// Table describes where a model's rows live.
//
// It is the minimal schema information a Driver needs: the database
// (optional), the table/collection name, the primary key column and,
// optionally, the column list to select.
type Table struct {
	Database   string
	Name       string
	PrimaryKey string
	Columns    []string
}

// Sort represents an ordering rule used in queries.
//
// FieldName specifies which column/field to sort by.
// Order determines the direction: 1 for ascending (ASC), -1 for descending (DESC).
type Sort struct {
	FieldName string
	Order     int // 1 = ASC, -1 = DESC
}

// Where encapsulates filtering and pagination options for a select.
//
// Global scopes have already been folded into Condition by the time a
// Where reaches a driver.
type Where struct {
	Condition *Condition
	Limit     int
	Offset    int
	Sort      []Sort
}

// Row is a raw record as exchanged with a driver: column name to value.
type Row map[string]any

// Changes represents a set of field updates, mapping column names to new values.
// It is typically used in Update operations.
type Changes map[string]any

// Transaction defines the contract for database transaction management.
//
// Implementations must provide atomic commit and rollback semantics.
type Transaction interface {
	// Commit finalizes the transaction and makes all changes permanent.
	Commit(ctx context.Context) error
	// Rollback reverts the transaction, discarding all changes.
	Rollback(ctx context.Context) error
}

// Driver defines the contract for storage backends supported by the ORM.
//
// Drivers know nothing about events, scopes or soft deletes; they execute
// what the model layer hands them and return raw rows.
type Driver interface {
	// Connect establishes a new connection or validates connectivity.
	Connect(ctx context.Context) error
	// Ping checks if the underlying database is reachable.
	Ping(ctx context.Context) error
	// Close terminates the connection and releases resources.
	Close(ctx context.Context) error

	// Transaction starts a new database transaction.
	Transaction(ctx context.Context) (Transaction, error)

	// Select returns every row matching the options.
	Select(ctx context.Context, table *Table, where *Where) ([]Row, error)
	// Insert persists one row. It returns the generated primary key when
	// the row did not carry one, and nil otherwise.
	Insert(ctx context.Context, table *Table, row Row) (any, error)
	// Update modifies rows matching the condition and reports how many changed.
	Update(ctx context.Context, table *Table, condition *Condition, changes Changes) (int64, error)
	// Delete physically removes rows matching the condition.
	Delete(ctx context.Context, table *Table, condition *Condition) (int64, error)
	// Count returns the number of rows matching the condition.
	Count(ctx context.Context, table *Table, condition *Condition) (int64, error)
}
