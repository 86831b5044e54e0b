// Package core provides the fundamental building blocks of the larago ORM.
// This file defines the options that describe a model: where it is stored,
// which attributes are fillable, mutators, timestamps and soft deletes.
package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option configures a Model at construction time.
type Option func(*Model)

// TableName sets the table/collection name. It defaults to the model name.
func TableName(name string) Option {
	return func(m *Model) { m.table.Name = name }
}

// Database sets the database name for the model's table.
func Database(name string) Option {
	return func(m *Model) { m.table.Database = name }
}

// PrimaryKey sets the primary key column. It defaults to "id".
func PrimaryKey(column string) Option {
	return func(m *Model) { m.table.PrimaryKey = column }
}

// Columns restricts the columns read by selects. By default every column is read.
func Columns(columns ...string) Option {
	return func(m *Model) { m.table.Columns = append([]string(nil), columns...) }
}

// Fillable lists the attributes accepted by mass assignment. When set, any
// other attribute is rejected by Fill.
func Fillable(fields ...string) Option {
	return func(m *Model) { m.fillable = append(m.fillable, fields...) }
}

// Guarded lists attributes refused by mass assignment. "*" guards everything
// not named in Fillable.
func Guarded(fields ...string) Option {
	return func(m *Model) { m.guarded = append(m.guarded, fields...) }
}

// Hidden lists attributes left out of Record.ToMap.
func Hidden(fields ...string) Option {
	return func(m *Model) { m.hidden = append(m.hidden, fields...) }
}

// StrictMassAssignment makes Fill fail with *MassAssignmentError instead of
// silently dropping non-fillable attributes.
func StrictMassAssignment() Option {
	return func(m *Model) { m.strictFill = true }
}

// Mutate registers a mutator for field. Record.Set runs it before storing.
func Mutate(field string, mutator Mutator) Option {
	return func(m *Model) { m.mutators[field] = mutator }
}

// Accessor computes a virtual attribute from a record.
type Accessor func(record *Record) any

// Accessors registers computed attributes. Record.Get and Record.ToMap read
// them. They are never written to storage.
func Accessors(accessors map[string]Accessor) Option {
	return func(m *Model) {
		for name, accessor := range accessors {
			m.accessors[name] = accessor
		}
	}
}

// Timestamps maintains created_at and updated_at on insert and update.
func Timestamps() Option {
	return func(m *Model) { m.timestamps = true }
}

// TimestampColumns enables timestamps with custom column names.
func TimestampColumns(createdAt, updatedAt string) Option {
	return func(m *Model) {
		m.timestamps = true
		m.createdAtColumn = createdAt
		m.updatedAtColumn = updatedAt
	}
}

// SoftDeletes makes Delete flag rows through deleted_at instead of removing
// them, and registers the "soft_deleting" global scope.
func SoftDeletes() Option {
	return func(m *Model) { m.softDeletes = true }
}

// SoftDeletesColumn enables soft deletes on a custom column.
func SoftDeletesColumn(column string) Option {
	return func(m *Model) {
		m.softDeletes = true
		m.deletedAtColumn = column
	}
}

// KeyGenerator assigns a primary key on insert when the record has none.
func KeyGenerator(generate func() any) Option {
	return func(m *Model) { m.keyGenerator = generate }
}

// UUIDKeys generates random UUID strings as primary keys.
func UUIDKeys() Option {
	return KeyGenerator(func() any { return uuid.NewString() })
}

// WithDispatcher shares an event dispatcher between models. Without it the
// model gets a private dispatcher.
func WithDispatcher(dispatcher *Dispatcher) Option {
	return func(m *Model) { m.dispatcher = dispatcher }
}

// WithScopes shares a global scope registry between models. Without it the
// model gets a private registry.
func WithScopes(registry *ScopeRegistry) Option {
	return func(m *Model) { m.scopes = registry }
}

// WithLogger sets the model's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// WithClock replaces time.Now for timestamps and soft deletes.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithMiddleware appends middlewares to the model's driver pipeline.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(m *Model) { m.middlewares = append(m.middlewares, middlewares...) }
}
