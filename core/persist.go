// Package core provides the fundamental building blocks of the larago ORM.
// This file implements the save and delete lifecycles.
package core

import (
	"context"
	"fmt"
)

// fire dispatches event for record and turns a veto into a *VetoError.
func (m *Model) fire(ctx context.Context, event Event, record *Record) error {
	decision, err := m.dispatcher.Fire(ctx, event, record)
	if err != nil {
		return err
	}
	if decision.Vetoed() {
		return &VetoError{Model: m.name, Event: event, Reason: decision.Reason()}
	}
	return nil
}

func (m *Model) owns(record *Record) error {
	if record == nil || record.model != m {
		return fmt.Errorf("%s: record belongs to another model", m.name)
	}
	return nil
}

// Create builds a record from values and saves it.
//
// Creation fires saving, creating, created and saved. On a veto the
// returned error is a *VetoError and nothing is stored.
func (m *Model) Create(ctx context.Context, values map[string]any) (*Record, error) {
	record, err := m.New(values)
	if err != nil {
		return nil, err
	}
	if err := m.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Save inserts a new record or updates a stored one.
//
//	insert: saving -> creating -> driver insert -> created -> saved
//	update: saving -> updating -> driver update -> updated -> saved
//
// A veto or error in a before handler, or a driver error, leaves the record's
// attributes exactly as they were before the call. The original snapshot is
// synced as soon as storage accepted the write, so after handlers see a
// clean record and GetChanges describes what was written. An error from an
// after handler is returned as is; the write itself is not undone unless
// the caller runs inside Transaction.
func (m *Model) Save(ctx context.Context, record *Record) error {
	if err := m.owns(record); err != nil {
		return err
	}
	snapshot := record.snapshot()
	if err := m.fire(ctx, EventSaving, record); err != nil {
		record.restore(snapshot)
		return err
	}
	var err error
	if record.exists {
		err = m.performUpdate(ctx, record, snapshot)
	} else {
		err = m.performInsert(ctx, record, snapshot)
	}
	if err != nil {
		return err
	}
	return m.fire(ctx, EventSaved, record)
}

// Update mass-assigns values and saves. A failed save also undoes the fill.
func (m *Model) Update(ctx context.Context, record *Record, values map[string]any) error {
	if err := m.owns(record); err != nil {
		return err
	}
	snapshot := record.snapshot()
	if err := record.Fill(values); err != nil {
		return err
	}
	if err := m.Save(ctx, record); err != nil {
		if !record.storedSince(snapshot) {
			record.restore(snapshot)
		}
		return err
	}
	return nil
}

// storedSince reports whether the original snapshot moved, i.e. a write
// reached storage after s was taken.
func (r *Record) storedSince(s attributesSnapshot) bool {
	if len(s.original) != len(r.original) {
		return true
	}
	for field, value := range s.original {
		if !ValuesEqual(value, r.original[field]) {
			return true
		}
	}
	return false
}

func (m *Model) performInsert(ctx context.Context, record *Record, snapshot attributesSnapshot) error {
	if err := m.fire(ctx, EventCreating, record); err != nil {
		record.restore(snapshot)
		return err
	}

	pk := m.table.PrimaryKey
	if m.timestamps {
		now := m.now()
		if deref(record.Get(m.createdAtColumn)) == nil {
			record.SetRaw(m.createdAtColumn, now)
		}
		record.SetRaw(m.updatedAtColumn, now)
	}
	if deref(record.Get(pk)) == nil && m.keyGenerator != nil {
		record.SetRaw(pk, m.keyGenerator())
	}

	row := Row(record.All())
	if deref(row[pk]) == nil {
		delete(row, pk)
	}
	var generated any
	err := m.run(ctx, OperationInsert, Payload{Model: m.name, Table: &m.table, Row: row}, func(ctx context.Context) error {
		var err error
		generated, err = m.driver.Insert(ctx, &m.table, row)
		return err
	})
	if err != nil {
		record.restore(snapshot)
		return err
	}
	if generated != nil && deref(record.Get(pk)) == nil {
		record.SetRaw(pk, generated)
	}

	record.exists = true
	record.changes = record.GetDirty()
	record.SyncOriginal()
	return m.fire(ctx, EventCreated, record)
}

func (m *Model) performUpdate(ctx context.Context, record *Record, snapshot attributesSnapshot) error {
	if err := m.fire(ctx, EventUpdating, record); err != nil {
		record.restore(snapshot)
		return err
	}

	dirty := record.GetDirty()
	if len(dirty) > 0 {
		if m.timestamps {
			now := m.now()
			record.SetRaw(m.updatedAtColumn, now)
			dirty[m.updatedAtColumn] = now
		}
		condition := keyCondition(&m.table, m.originalKey(record))
		changes := Changes(dirty)
		err := m.run(ctx, OperationUpdate, Payload{Model: m.name, Table: &m.table, Condition: condition, Changes: changes}, func(ctx context.Context) error {
			_, err := m.driver.Update(ctx, &m.table, condition, changes)
			return err
		})
		if err != nil {
			record.restore(snapshot)
			return err
		}
	}

	record.changes = dirty
	record.SyncOriginal()
	return m.fire(ctx, EventUpdated, record)
}

// originalKey is the key the row is stored under, even if the record's key
// attribute was changed since.
func (m *Model) originalKey(record *Record) any {
	if key := record.GetOriginal(m.table.PrimaryKey); deref(key) != nil {
		return key
	}
	return record.Key()
}

// Delete removes a stored record: deleting -> remove -> deleted. Models with
// soft deletes flag the row instead of removing it (see softDelete).
func (m *Model) Delete(ctx context.Context, record *Record) error {
	if err := m.owns(record); err != nil {
		return err
	}
	if !record.exists {
		return fmt.Errorf("%s: delete: %w", m.name, ErrNotPersisted)
	}
	if m.softDeletes {
		return m.softDelete(ctx, record)
	}
	return m.performDelete(ctx, record)
}

// ForceDelete physically removes the row, soft deletes or not. It fires
// deleting and deleted; handlers see Record.IsForceDeleting report true.
func (m *Model) ForceDelete(ctx context.Context, record *Record) error {
	if err := m.owns(record); err != nil {
		return err
	}
	if !record.exists {
		return fmt.Errorf("%s: force delete: %w", m.name, ErrNotPersisted)
	}
	record.forceDeleting = true
	defer func() { record.forceDeleting = false }()
	return m.performDelete(ctx, record)
}

func (m *Model) performDelete(ctx context.Context, record *Record) error {
	snapshot := record.snapshot()
	if err := m.fire(ctx, EventDeleting, record); err != nil {
		record.restore(snapshot)
		return err
	}
	condition := keyCondition(&m.table, m.originalKey(record))
	err := m.run(ctx, OperationDelete, Payload{Model: m.name, Table: &m.table, Condition: condition}, func(ctx context.Context) error {
		_, err := m.driver.Delete(ctx, &m.table, condition)
		return err
	})
	if err != nil {
		record.restore(snapshot)
		return err
	}
	record.exists = false
	record.changes = nil
	return m.fire(ctx, EventDeleted, record)
}
