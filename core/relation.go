// Package core provides the fundamental building blocks of the larago ORM.
// This file defines relations between models. Relation reads go through the
// related model's query, so its global scopes apply.
package core

import (
	"context"
	"fmt"
	"reflect"
)

// RelationKind defines the type of relationship between models.
type RelationKind int

const (
	OneToOne RelationKind = iota + 1
	OneToMany
	BelongsToOne
	ManyToMany
)

// Relation links a parent model to a related one.
//
// For OneToOne/OneToMany the related rows carry ForeignKey = parent.LocalKey.
// For BelongsToOne the parent carries ForeignKey = related.LocalKey. For
// ManyToMany a join table maps JoinLocalKey (parent key) to JoinForeignKey
// (related key).
type Relation struct {
	Kind           RelationKind
	Parent         *Model
	Related        *Model
	ForeignKey     string
	LocalKey       string
	JoinTable      string
	JoinLocalKey   string
	JoinForeignKey string
}

// HasMany declares that related rows point at this model through foreignKey.
// An empty localKey means this model's primary key.
func (m *Model) HasMany(related *Model, foreignKey, localKey string) *Relation {
	return &Relation{Kind: OneToMany, Parent: m, Related: related, ForeignKey: foreignKey, LocalKey: orDefault(localKey, m.table.PrimaryKey)}
}

// HasOne is HasMany limited to a single related record.
func (m *Model) HasOne(related *Model, foreignKey, localKey string) *Relation {
	return &Relation{Kind: OneToOne, Parent: m, Related: related, ForeignKey: foreignKey, LocalKey: orDefault(localKey, m.table.PrimaryKey)}
}

// BelongsTo declares that this model points at related through foreignKey.
// An empty ownerKey means the related primary key.
func (m *Model) BelongsTo(related *Model, foreignKey, ownerKey string) *Relation {
	return &Relation{Kind: BelongsToOne, Parent: m, Related: related, ForeignKey: foreignKey, LocalKey: orDefault(ownerKey, related.table.PrimaryKey)}
}

// BelongsToMany declares a many-to-many relation through joinTable.
func (m *Model) BelongsToMany(related *Model, joinTable, joinLocalKey, joinForeignKey string) *Relation {
	return &Relation{
		Kind:           ManyToMany,
		Parent:         m,
		Related:        related,
		ForeignKey:     related.table.PrimaryKey,
		LocalKey:       m.table.PrimaryKey,
		JoinTable:      joinTable,
		JoinLocalKey:   joinLocalKey,
		JoinForeignKey: joinForeignKey,
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Query returns the related model's query restricted to parent. Many-to-many
// relations read the join table first, which needs ctx.
func (rel *Relation) Query(ctx context.Context, parent *Record) (*Query, error) {
	if err := rel.Parent.owns(parent); err != nil {
		return nil, err
	}
	query := rel.Related.Query()
	switch rel.Kind {
	case OneToOne, OneToMany:
		return query.Where(rel.ForeignKey, OpEq, parent.Get(rel.LocalKey)), nil
	case BelongsToOne:
		return query.Where(rel.LocalKey, OpEq, parent.Get(rel.ForeignKey)), nil
	case ManyToMany:
		joinTable := &Table{Database: rel.Parent.table.Database, Name: rel.JoinTable}
		where := &Where{Condition: Col(rel.JoinLocalKey).Eq(parent.Get(rel.LocalKey))}
		rows, err := rel.Parent.driver.Select(ctx, joinTable, where)
		if err != nil {
			return nil, err
		}
		keys := make([]any, 0, len(rows))
		for _, row := range rows {
			keys = append(keys, row[rel.JoinForeignKey])
		}
		if len(keys) == 0 {
			return query.WhereCondition(Col(rel.ForeignKey).In()), nil
		}
		return query.WhereIn(rel.ForeignKey, keys...), nil
	}
	return nil, fmt.Errorf("relation: unknown kind %d", rel.Kind)
}

// parentKeys returns the parent field and the values it must hold for a
// parent record to have at least one related record.
func (rel *Relation) parentKeys(ctx context.Context) (string, []any, error) {
	switch rel.Kind {
	case OneToOne, OneToMany:
		keys, err := relatedValues(ctx, rel.Related.Query().WhereNotNull(rel.ForeignKey), rel.ForeignKey)
		return rel.LocalKey, keys, err
	case BelongsToOne:
		keys, err := relatedValues(ctx, rel.Related.Query(), rel.LocalKey)
		return rel.ForeignKey, keys, err
	case ManyToMany:
		related, err := relatedValues(ctx, rel.Related.Query(), rel.ForeignKey)
		if err != nil || len(related) == 0 {
			return rel.LocalKey, nil, err
		}
		joinTable := &Table{Database: rel.Parent.table.Database, Name: rel.JoinTable, Columns: []string{rel.JoinLocalKey}}
		rows, err := rel.Parent.driver.Select(ctx, joinTable, &Where{Condition: Col(rel.JoinForeignKey).In(related...)})
		if err != nil {
			return rel.LocalKey, nil, err
		}
		keys := make([]any, 0, len(rows))
		for _, row := range rows {
			keys = append(keys, row[rel.JoinLocalKey])
		}
		return rel.LocalKey, distinct(keys), nil
	}
	return "", nil, fmt.Errorf("relation: unknown kind %d", rel.Kind)
}

// relatedValues reads field from every row query matches, without repeats.
func relatedValues(ctx context.Context, query *Query, field string) ([]any, error) {
	records, err := query.Select(field).Get(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(records))
	for _, record := range records {
		values = append(values, record.Attributes.Get(field))
	}
	return distinct(values), nil
}

func distinct(values []any) []any {
	seen := make(map[any]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if v == nil {
			continue
		}
		if reflect.TypeOf(v).Comparable() {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
		}
		out = append(out, v)
	}
	return out
}

// Get loads the related records of parent.
func (rel *Relation) Get(ctx context.Context, parent *Record) ([]*Record, error) {
	query, err := rel.Query(ctx, parent)
	if err != nil {
		return nil, err
	}
	return query.Get(ctx)
}

// First loads the first related record of parent, or nil.
func (rel *Relation) First(ctx context.Context, parent *Record) (*Record, error) {
	query, err := rel.Query(ctx, parent)
	if err != nil {
		return nil, err
	}
	return query.First(ctx)
}

// Create creates a related record pointing at parent. Only OneToOne and
// OneToMany relations support it.
func (rel *Relation) Create(ctx context.Context, parent *Record, values map[string]any) (*Record, error) {
	if rel.Kind != OneToOne && rel.Kind != OneToMany {
		return nil, fmt.Errorf("relation: create is only supported on has-one/has-many")
	}
	if err := rel.Parent.owns(parent); err != nil {
		return nil, err
	}
	record, err := rel.Related.New(values)
	if err != nil {
		return nil, err
	}
	record.Set(rel.ForeignKey, parent.Get(rel.LocalKey))
	if err := rel.Related.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
