package core

import (
	"context"
	"fmt"
)

// Record is one model instance: an attribute store bound to its Model,
// plus whether it exists in storage and what the last save wrote.
type Record struct {
	Attributes

	model         *Model
	exists        bool
	forceDeleting bool
	changes       map[string]any
}

// Model returns the model the record belongs to.
func (r *Record) Model() *Model { return r.model }

// Get returns the value of field. Accessors registered on the model take
// precedence over stored attributes.
func (r *Record) Get(field string) any {
	if access, ok := r.model.accessors[field]; ok && access != nil {
		return access(r)
	}
	return r.Attributes.Get(field)
}

// Key returns the primary key value, nil until the record is persisted or
// given a key explicitly.
func (r *Record) Key() any { return r.Get(r.model.table.PrimaryKey) }

// Exists reports whether the record is stored. It is false for new records
// and after a force delete.
func (r *Record) Exists() bool { return r.exists }

// IsForceDeleting reports whether the record is inside ForceDelete. Deleting
// and deleted handlers use it to tell a force delete from a soft one.
func (r *Record) IsForceDeleting() bool { return r.forceDeleting }

// Trashed reports whether the soft delete flag is set.
func (r *Record) Trashed() bool {
	if !r.model.softDeletes {
		return false
	}
	return deref(r.Get(r.model.deletedAtColumn)) != nil
}

// Fill mass-assigns values through the model's fillable/guarded lists.
//
// Non-fillable keys are dropped (and logged at debug level), unless the
// model uses StrictMassAssignment: then nothing is assigned and a
// *MassAssignmentError names the rejected keys.
func (r *Record) Fill(values map[string]any) error {
	var accepted, rejected []string
	for _, field := range sortedKeys(values) {
		if r.model.IsFillable(field) {
			accepted = append(accepted, field)
		} else {
			rejected = append(rejected, field)
		}
	}
	if len(rejected) > 0 {
		if r.model.strictFill {
			return &MassAssignmentError{Model: r.model.name, Fields: rejected}
		}
		r.model.logger.Debug().Strs("fields", rejected).Msg("discarded non-fillable attributes")
	}
	for _, field := range accepted {
		r.Set(field, values[field])
	}
	return nil
}

// ForceFill assigns every value, ignoring the fillable/guarded lists.
func (r *Record) ForceFill(values map[string]any) {
	for _, field := range sortedKeys(values) {
		r.Set(field, values[field])
	}
}

// GetChanges returns what the last successful save or delete wrote.
func (r *Record) GetChanges() map[string]any {
	return cloneMap(r.changes)
}

// WasChanged reports whether any of fields was written by the last save.
// With no arguments it reports whether anything was written.
func (r *Record) WasChanged(fields ...string) bool {
	if len(fields) == 0 {
		return len(r.changes) > 0
	}
	for _, f := range fields {
		if _, ok := r.changes[f]; ok {
			return true
		}
	}
	return false
}

// ToMap returns the current attributes plus accessor values, without the
// model's hidden fields.
func (r *Record) ToMap() map[string]any {
	out := r.All()
	for name, access := range r.model.accessors {
		if access != nil {
			out[name] = access(r)
		}
	}
	for _, field := range r.model.hidden {
		delete(out, field)
	}
	return out
}

func (r *Record) String() string {
	return fmt.Sprintf("%s(%v)", r.model.name, r.Key())
}

// Save inserts or updates the record; see Model.Save.
func (r *Record) Save(ctx context.Context) error { return r.model.Save(ctx, r) }

// Update fills values and saves; see Model.Update.
func (r *Record) Update(ctx context.Context, values map[string]any) error {
	return r.model.Update(ctx, r, values)
}

// Delete deletes (or soft-deletes) the record; see Model.Delete.
func (r *Record) Delete(ctx context.Context) error { return r.model.Delete(ctx, r) }

// ForceDelete removes the row even for soft-delete models.
func (r *Record) ForceDelete(ctx context.Context) error { return r.model.ForceDelete(ctx, r) }

// Restore clears the soft delete flag; see Model.Restore.
func (r *Record) Restore(ctx context.Context) error { return r.model.Restore(ctx, r) }

// Refresh reloads the attributes from storage, trashed rows included.
func (r *Record) Refresh(ctx context.Context) error {
	if !r.exists {
		return ErrNotPersisted
	}
	query := r.model.Query()
	if r.model.softDeletes {
		query = query.WithTrashed()
	}
	fresh, err := query.FindOrFail(ctx, r.Key())
	if err != nil {
		return err
	}
	r.Attributes = fresh.Attributes
	return nil
}
