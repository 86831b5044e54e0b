// Package core provides the fundamental building blocks of the larago ORM.
// This file defines the Model, the entry point for working with one kind of
// record. A Model handles persistence, queries, relations, events, global
// scopes and soft deletes.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultPrimaryKey      = "id"
	DefaultCreatedAtColumn = "created_at"
	DefaultUpdatedAtColumn = "updated_at"
	DefaultDeletedAtColumn = "deleted_at"
)

// LocalScope is a reusable, named query fragment applied on demand with
// Query.Scope.
type LocalScope func(query *Query, args ...any)

// Model is a repository-like abstraction for one record type.
//
// It wraps a Table and a Driver and exposes high-level operations such as
// Create, Save, Delete, Restore, Find and All. Event handlers and global
// scopes live in the (possibly shared) Dispatcher and ScopeRegistry, keyed
// by the model name.
type Model struct {
	name   string
	table  Table
	driver Driver

	fillable   []string
	guarded    []string
	hidden     []string
	strictFill bool
	mutators   map[string]Mutator
	casts      map[string]Cast
	accessors  map[string]Accessor

	timestamps      bool
	createdAtColumn string
	updatedAtColumn string

	softDeletes     bool
	deletedAtColumn string

	keyGenerator func() any
	localScopes  map[string]LocalScope
	middlewares  []Middleware

	dispatcher *Dispatcher
	scopes     *ScopeRegistry
	logger     zerolog.Logger
	now        func() time.Time
}

// NewModel creates a Model named name, stored through driver.
//
// Example:
//
//	users := core.NewModel("users", driver,
//		core.Fillable("name", "email"),
//		core.Mutate("email", lower),
//		core.SoftDeletes(),
//		core.WithDispatcher(events),
//		core.WithScopes(scopes),
//	)
func NewModel(name string, driver Driver, options ...Option) *Model {
	m := &Model{
		name:            name,
		table:           Table{Name: name, PrimaryKey: DefaultPrimaryKey},
		driver:          driver,
		mutators:        make(map[string]Mutator),
		casts:           make(map[string]Cast),
		accessors:       make(map[string]Accessor),
		createdAtColumn: DefaultCreatedAtColumn,
		updatedAtColumn: DefaultUpdatedAtColumn,
		deletedAtColumn: DefaultDeletedAtColumn,
		localScopes:     make(map[string]LocalScope),
		logger:          zerolog.Nop(),
		now:             time.Now,
	}
	for _, option := range options {
		option(m)
	}
	if m.dispatcher == nil {
		m.dispatcher = NewDispatcher(DispatcherLogger(m.logger))
	}
	if m.scopes == nil {
		m.scopes = NewScopeRegistry()
	}
	if m.softDeletes {
		m.scopes.Add(m.name, SoftDeletingScopeName, SoftDeletingScope{})
	}
	m.logger = m.logger.With().Str("model", m.name).Logger()
	return m
}

// Name returns the model name, the key used by the dispatcher and the scope registry.
func (m *Model) Name() string { return m.name }

// Table returns a copy of the model's table description.
func (m *Model) Table() Table { return m.table }

// KeyName returns the primary key column.
func (m *Model) KeyName() string { return m.table.PrimaryKey }

// Driver returns the storage driver.
func (m *Model) Driver() Driver { return m.driver }

// Dispatcher returns the event dispatcher the model fires into.
func (m *Model) Dispatcher() *Dispatcher { return m.dispatcher }

// Scopes returns the global scope registry the model reads from.
func (m *Model) Scopes() *ScopeRegistry { return m.scopes }

// UsesSoftDeletes reports whether the model was built with SoftDeletes.
func (m *Model) UsesSoftDeletes() bool { return m.softDeletes }

// Now reads the model's clock.
func (m *Model) Now() time.Time { return m.now() }

// DeletedAtColumn returns the soft delete flag column.
func (m *Model) DeletedAtColumn() string { return m.deletedAtColumn }

// IsFillable reports whether mass assignment accepts field.
func (m *Model) IsFillable(field string) bool {
	if contains(m.fillable, field) {
		return true
	}
	if len(m.fillable) > 0 || contains(m.guarded, "*") {
		return false
	}
	return !contains(m.guarded, field)
}

// AddGlobalScope registers a global scope for this model.
func (m *Model) AddGlobalScope(name string, scope Scope) {
	m.scopes.Add(m.name, name, scope)
}

// Scope registers a local scope, applied with Query.Scope(name, args...).
func (m *Model) Scope(name string, scope LocalScope) {
	m.localScopes[name] = scope
}

// Use appends middlewares to the model's driver pipeline.
func (m *Model) Use(middlewares ...Middleware) {
	m.middlewares = append(m.middlewares, middlewares...)
}

// New builds an unsaved record and mass-assigns values into it.
func (m *Model) New(values map[string]any) (*Record, error) {
	record := m.newRecord()
	if err := record.Fill(values); err != nil {
		return nil, err
	}
	return record, nil
}

// Hydrate builds a persisted record from a raw row. Casts apply, mutators
// do not.
func (m *Model) Hydrate(row Row) *Record {
	record := m.newRecord()
	for field, value := range row {
		record.SetRaw(field, record.cast(field, value))
	}
	record.SyncOriginal()
	record.exists = true
	return record
}

func (m *Model) newRecord() *Record {
	attributes := NewAttributes(m.mutators)
	attributes.casts = m.casts
	return &Record{Attributes: attributes, model: m}
}

// Query starts a query with every global scope in effect.
func (m *Model) Query() *Query { return newQuery(m) }

// Where starts a query with one condition.
func (m *Model) Where(field string, op Operator, value any) *Query {
	return m.Query().Where(field, op, value)
}

// WithoutGlobalScope starts a query that skips the named global scopes.
func (m *Model) WithoutGlobalScope(names ...string) *Query {
	return m.Query().WithoutGlobalScope(names...)
}

// WithGlobalScope starts a query that forces scope under name.
func (m *Model) WithGlobalScope(name string, scope Scope) *Query {
	return m.Query().WithGlobalScope(name, scope)
}

// WithTrashed starts a query that includes soft-deleted rows.
func (m *Model) WithTrashed() *Query { return m.Query().WithTrashed() }

// OnlyTrashed starts a query that returns soft-deleted rows only.
func (m *Model) OnlyTrashed() *Query { return m.Query().OnlyTrashed() }

// All returns every record visible through the global scopes.
func (m *Model) All(ctx context.Context) ([]*Record, error) {
	return m.Query().Get(ctx)
}

// Find returns the record with the given key, or nil when there is none.
func (m *Model) Find(ctx context.Context, key any) (*Record, error) {
	return m.Query().Find(ctx, key)
}

// FindOrFail is Find, failing with *NotFoundError when there is no record.
func (m *Model) FindOrFail(ctx context.Context, key any) (*Record, error) {
	return m.Query().FindOrFail(ctx, key)
}

// Count returns the number of records visible through the global scopes.
func (m *Model) Count(ctx context.Context) (int64, error) {
	return m.Query().Count(ctx)
}

// Transaction runs fn inside a driver transaction; see RunTransaction.
func (m *Model) Transaction(ctx context.Context, fn TransactionFunc) error {
	return RunTransaction(ctx, m.driver, fn)
}

// Observe registers an observer for this model's events.
func (m *Model) Observe(observer any) error {
	return m.dispatcher.Observe(m.name, observer)
}

// Saving registers a handler fired before every insert or update. A veto
// aborts the save.
func (m *Model) Saving(handler BeforeHandler) error {
	return m.dispatcher.ListenBefore(m.name, EventSaving, handler)
}

// Creating registers a handler fired before an insert, after saving.
func (m *Model) Creating(handler BeforeHandler) error {
	return m.dispatcher.ListenBefore(m.name, EventCreating, handler)
}

// Updating registers a handler fired before an update, after saving. It
// only runs when the record has dirty attributes.
func (m *Model) Updating(handler BeforeHandler) error {
	return m.dispatcher.ListenBefore(m.name, EventUpdating, handler)
}

// Deleting registers a handler fired before a delete, soft or forced.
// Record.IsForceDeleting tells the two apart.
func (m *Model) Deleting(handler BeforeHandler) error {
	return m.dispatcher.ListenBefore(m.name, EventDeleting, handler)
}

// Restoring registers a handler fired before a soft-deleted record is restored.
func (m *Model) Restoring(handler BeforeHandler) error {
	return m.dispatcher.ListenBefore(m.name, EventRestoring, handler)
}

// Saved registers a handler fired after a successful insert or update.
func (m *Model) Saved(handler AfterHandler) error {
	return m.dispatcher.ListenAfter(m.name, EventSaved, handler)
}

// Created registers a handler fired after a successful insert.
func (m *Model) Created(handler AfterHandler) error {
	return m.dispatcher.ListenAfter(m.name, EventCreated, handler)
}

// Updated registers a handler fired after a successful update.
func (m *Model) Updated(handler AfterHandler) error {
	return m.dispatcher.ListenAfter(m.name, EventUpdated, handler)
}

// Deleted registers a handler fired after a delete, soft or forced.
func (m *Model) Deleted(handler AfterHandler) error {
	return m.dispatcher.ListenAfter(m.name, EventDeleted, handler)
}

// Restored registers a handler fired after a restore.
func (m *Model) Restored(handler AfterHandler) error {
	return m.dispatcher.ListenAfter(m.name, EventRestored, handler)
}
