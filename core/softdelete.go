// Package core provides the fundamental building blocks of the larago ORM.
// This file implements soft deletes: the soft_deleting global scope, the
// flag-and-keep delete, restore and the bulk variants.
package core

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// SoftDeletingScopeName is the global scope registered by SoftDeletes.
const SoftDeletingScopeName = "soft_deleting"

// SoftDeletingScope hides rows whose deleted-at column is set.
type SoftDeletingScope struct{}

// Apply adds "deleted_at IS NULL" for the model's flag column.
func (SoftDeletingScope) Apply(query *Query, model *Model) {
	query.WhereNull(model.deletedAtColumn)
}

// softDelete: deleting -> set flag and persist that one column -> deleted.
// The row stays in storage and the record keeps existing.
func (m *Model) softDelete(ctx context.Context, record *Record) error {
	snapshot := record.snapshot()
	if err := m.fire(ctx, EventDeleting, record); err != nil {
		record.restore(snapshot)
		return err
	}
	now := m.now()
	if err := m.writeFlag(ctx, record, now); err != nil {
		record.restore(snapshot)
		return err
	}
	return m.fire(ctx, EventDeleted, record)
}

// Restore clears the soft delete flag: restoring -> clear and persist ->
// restored.
func (m *Model) Restore(ctx context.Context, record *Record) error {
	if err := m.owns(record); err != nil {
		return err
	}
	if !m.softDeletes {
		return fmt.Errorf("%s: restore: %w", m.name, ErrNotSoftDeletable)
	}
	if !record.exists {
		return fmt.Errorf("%s: restore: %w", m.name, ErrNotPersisted)
	}
	snapshot := record.snapshot()
	if err := m.fire(ctx, EventRestoring, record); err != nil {
		record.restore(snapshot)
		return err
	}
	if err := m.writeFlag(ctx, record, nil); err != nil {
		record.restore(snapshot)
		return err
	}
	return m.fire(ctx, EventRestored, record)
}

// writeFlag stores value in the deleted-at column, in storage and in the
// record, and syncs only that column's snapshot. Other pending changes on
// the record stay dirty.
func (m *Model) writeFlag(ctx context.Context, record *Record, value any) error {
	column := m.deletedAtColumn
	condition := keyCondition(&m.table, m.originalKey(record))
	changes := Changes{column: value}
	err := m.run(ctx, OperationUpdate, Payload{Model: m.name, Table: &m.table, Condition: condition, Changes: changes}, func(ctx context.Context) error {
		_, err := m.driver.Update(ctx, &m.table, condition, changes)
		return err
	})
	if err != nil {
		return err
	}
	record.SetRaw(column, value)
	record.syncOriginalField(column)
	record.changes = map[string]any{column: value}
	return nil
}

// RestoreAll restores every record whose key is in keys.
//
// Keys are processed independently: a missing key, a veto or a driver error
// is collected and the remaining keys are still processed. It returns how
// many records were restored and the combined errors.
func (m *Model) RestoreAll(ctx context.Context, keys ...any) (int, error) {
	if !m.softDeletes {
		return 0, fmt.Errorf("%s: restore: %w", m.name, ErrNotSoftDeletable)
	}
	return m.eachKey(ctx, keys, "restore", m.Restore)
}

// ForceDeleteAll physically removes every record whose key is in keys,
// trashed or not. Failures are handled as in RestoreAll.
func (m *Model) ForceDeleteAll(ctx context.Context, keys ...any) (int, error) {
	return m.eachKey(ctx, keys, "force delete", m.ForceDelete)
}

func (m *Model) eachKey(ctx context.Context, keys []any, verb string, apply func(context.Context, *Record) error) (int, error) {
	var errs error
	done := 0
	for _, key := range keys {
		query := m.Query()
		if m.softDeletes {
			query = query.WithTrashed()
		}
		record, err := query.FindOrFail(ctx, key)
		if err == nil {
			err = apply(ctx, record)
		}
		if err != nil {
			m.logger.Debug().Err(err).Interface("key", key).Msgf("%s skipped", verb)
			errs = multierr.Append(errs, fmt.Errorf("%s %v: %w", verb, key, err))
			continue
		}
		done++
	}
	return done, errs
}
