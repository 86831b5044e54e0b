// Package core provides the fundamental building blocks of the larago ORM.
// This file defines the fluent query builder and how global scopes are
// folded into it.
package core

import (
	"context"
	"fmt"
)

// Query is a fluent, per-call query for one model.
//
// Global scopes are not copied in when the query is created: they are
// applied to a private clone when the query runs, so WithoutGlobalScope and
// WithGlobalScope only ever affect this query value.
//
// Example:
//
//	active, _ := users.Query().
//		Where("active", "=", true).
//		OrderBy("created_at", -1).
//		Limit(10).
//		Get(ctx)
type Query struct {
	model   *Model
	where   Where
	columns []string
	has     []*Relation
	without map[string]struct{}
	forced  []NamedScope
	err     error
}

func newQuery(m *Model) *Query {
	return &Query{model: m, without: make(map[string]struct{})}
}

// Model returns the model the query reads.
func (q *Query) Model() *Model { return q.model }

// Clone returns an independent copy of the query.
func (q *Query) Clone() *Query {
	c := &Query{
		model:   q.model,
		where:   q.where,
		columns: append([]string(nil), q.columns...),
		has:     append([]*Relation(nil), q.has...),
		without: make(map[string]struct{}, len(q.without)),
		forced:  append([]NamedScope(nil), q.forced...),
		err:     q.err,
	}
	c.where.Sort = append([]Sort(nil), q.where.Sort...)
	for name := range q.without {
		c.without[name] = struct{}{}
	}
	return c
}

// Err returns the first error recorded while building the query.
func (q *Query) Err() error { return q.err }

// Where adds field <op> value, ANDed with the existing filter. op accepts
// the Operator constants or their symbols ("=", "!=", ">", ">=", "<", "<=",
// "like", "in").
func (q *Query) Where(field string, op Operator, value any) *Query {
	return q.WhereCondition(Col(field).Apply(ParseOperator(string(op)), value))
}

// WhereCondition ANDs an arbitrary condition tree into the filter.
func (q *Query) WhereCondition(condition *Condition) *Query {
	q.where.Condition = foldConditionsAnd(q.where.Condition, condition)
	return q
}

// WhereNull adds "field IS NULL".
func (q *Query) WhereNull(field string) *Query {
	return q.WhereCondition(Col(field).Nil())
}

// WhereNotNull adds "field IS NOT NULL".
func (q *Query) WhereNotNull(field string) *Query {
	return q.WhereCondition(Col(field).NotNil())
}

// WhereIn adds "field IN (values...)".
func (q *Query) WhereIn(field string, values ...any) *Query {
	return q.WhereCondition(Col(field).In(values...))
}

// OrderBy adds an ordering rule. Order is 1 (ASC) or -1 (DESC).
func (q *Query) OrderBy(field string, order int) *Query {
	q.where.Sort = append(q.where.Sort, Sort{FieldName: field, Order: order})
	return q
}

// Limit sets the maximum number of results to return.
func (q *Query) Limit(limit int) *Query {
	q.where.Limit = limit
	return q
}

// Offset sets the number of rows to skip before starting to return results.
func (q *Query) Offset(offset int) *Query {
	q.where.Offset = offset
	return q
}

// Select restricts the columns read by Get. The model's own Columns apply
// when it is never called.
func (q *Query) Select(columns ...string) *Query {
	q.columns = append([]string(nil), columns...)
	return q
}

// When calls fn with the query only if condition holds.
//
//	users.Query().When(onlyActive, func(q *core.Query) { q.Scope("active") })
func (q *Query) When(condition bool, fn func(query *Query)) *Query {
	if condition && fn != nil {
		fn(q)
	}
	return q
}

// Has keeps the records that have at least one related record through rel.
// The related model's global scopes apply, so soft-deleted related rows do
// not count. rel must start at the query's model.
func (q *Query) Has(rel *Relation) *Query {
	if rel == nil || rel.Parent != q.model {
		return q.fail(fmt.Errorf("%s: Has: relation does not start at this model", q.model.name))
	}
	q.has = append(q.has, rel)
	return q
}

// WithoutGlobalScope excludes the named global scopes from this query only.
func (q *Query) WithoutGlobalScope(names ...string) *Query {
	for _, name := range names {
		q.without[name] = struct{}{}
		q.dropForced(name)
	}
	return q
}

// WithGlobalScope forces scope under name for this query only. If name is
// registered globally, this scope replaces it at the same position;
// otherwise it runs after the registered ones.
func (q *Query) WithGlobalScope(name string, scope Scope) *Query {
	delete(q.without, name)
	q.dropForced(name)
	q.forced = append(q.forced, NamedScope{Name: name, Scope: scope})
	return q
}

func (q *Query) dropForced(name string) {
	for i, s := range q.forced {
		if s.Name == name {
			q.forced = append(q.forced[:i:i], q.forced[i+1:]...)
			return
		}
	}
}

// WithTrashed includes soft-deleted rows by removing the soft delete scope.
func (q *Query) WithTrashed() *Query {
	if !q.model.softDeletes {
		return q.fail(fmt.Errorf("%s: WithTrashed: %w", q.model.name, ErrNotSoftDeletable))
	}
	return q.WithoutGlobalScope(SoftDeletingScopeName)
}

// OnlyTrashed removes the soft delete scope and keeps flagged rows only.
func (q *Query) OnlyTrashed() *Query {
	if !q.model.softDeletes {
		return q.fail(fmt.Errorf("%s: OnlyTrashed: %w", q.model.name, ErrNotSoftDeletable))
	}
	return q.WithoutGlobalScope(SoftDeletingScopeName).WhereNotNull(q.model.deletedAtColumn)
}

// Scope applies the model's local scope name with args.
func (q *Query) Scope(name string, args ...any) *Query {
	scope, ok := q.model.localScopes[name]
	if !ok {
		return q.fail(fmt.Errorf("%s: %w %q", q.model.name, ErrUnknownScope, name))
	}
	scope(q, args...)
	return q
}

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Compile resolves the global scopes and returns the options a driver
// receives. The query itself is left untouched. Queries using Has fail with
// ErrUnresolvedRelation since their filter needs reads.
func (q *Query) Compile() (*Where, error) {
	built, err := q.scoped()
	if err != nil {
		return nil, err
	}
	if len(built.has) > 0 {
		return nil, fmt.Errorf("%s: %w", q.model.name, ErrUnresolvedRelation)
	}
	where := built.where
	return &where, nil
}

// compile is Compile with Has filters turned into key conditions.
func (q *Query) compile(ctx context.Context) (*Where, error) {
	built, err := q.scoped()
	if err != nil {
		return nil, err
	}
	for _, rel := range built.has {
		field, keys, err := rel.parentKeys(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: Has %s: %w", q.model.name, rel.Related.name, err)
		}
		built.WhereCondition(Col(field).In(keys...))
	}
	where := built.where
	return &where, nil
}

// scoped returns a clone with the global scopes applied.
func (q *Query) scoped() (*Query, error) {
	if q.err != nil {
		return nil, q.err
	}
	built := q.Clone()
	registered := q.model.scopes.Scopes(q.model.name)
	for _, s := range registered {
		if _, skip := q.without[s.Name]; skip {
			continue
		}
		scope := s.Scope
		if forced, ok := q.forcedScope(s.Name); ok {
			scope = forced
		}
		scope.Apply(built, q.model)
	}
	for _, s := range q.forced {
		if !containsScope(registered, s.Name) {
			s.Scope.Apply(built, q.model)
		}
	}
	if built.err != nil {
		return nil, built.err
	}
	return built, nil
}

func (q *Query) forcedScope(name string) (Scope, bool) {
	for _, s := range q.forced {
		if s.Name == name {
			return s.Scope, true
		}
	}
	return nil, false
}

func containsScope(list []NamedScope, name string) bool {
	for _, s := range list {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Get runs the query and returns the matching records.
func (q *Query) Get(ctx context.Context) ([]*Record, error) {
	where, err := q.compile(ctx)
	if err != nil {
		return nil, err
	}
	m := q.model
	table := m.table
	if len(q.columns) > 0 {
		table.Columns = q.columns
	}
	var rows []Row
	err = m.run(ctx, OperationFind, Payload{Model: m.name, Table: &table, Where: where}, func(ctx context.Context) error {
		var err error
		rows, err = m.driver.Select(ctx, &table, where)
		return err
	})
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, m.Hydrate(row))
	}
	return records, nil
}

// First returns the first matching record, or nil when there is none.
func (q *Query) First(ctx context.Context) (*Record, error) {
	records, err := q.Clone().Limit(1).Get(ctx)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// FirstOrFail is First, failing with *NotFoundError when there is no record.
func (q *Query) FirstOrFail(ctx context.Context) (*Record, error) {
	record, err := q.First(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &NotFoundError{Model: q.model.name}
	}
	return record, nil
}

// Find returns the matching record with the given key, or nil.
func (q *Query) Find(ctx context.Context, key any) (*Record, error) {
	return q.Clone().Where(q.model.table.PrimaryKey, OpEq, key).First(ctx)
}

// FindOrFail is Find, failing with *NotFoundError when there is no record.
func (q *Query) FindOrFail(ctx context.Context, key any) (*Record, error) {
	record, err := q.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &NotFoundError{Model: q.model.name, Key: key}
	}
	return record, nil
}

// Count returns the number of matching rows. Limit and offset are ignored.
func (q *Query) Count(ctx context.Context) (int64, error) {
	where, err := q.compile(ctx)
	if err != nil {
		return 0, err
	}
	m := q.model
	var count int64
	err = m.run(ctx, OperationCount, Payload{Model: m.name, Table: &m.table, Where: where}, func(ctx context.Context) error {
		var err error
		count, err = m.driver.Count(ctx, &m.table, where.Condition)
		return err
	})
	return count, err
}
