// Package core provides the fundamental building blocks of the larago ORM.
// This file defines the attribute store that every record is built on.
package core

// Mutator transforms a value before it is stored by Attributes.Set.
type Mutator func(value any) any

// Attributes holds a record's current field values, the snapshot taken the
// last time the record was loaded or saved, and the mutators and casts
// applied on Set.
//
// A field is dirty when its current value differs from the snapshot
// (see ValuesEqual). Unknown fields read as nil.
type Attributes struct {
	current  map[string]any
	original map[string]any
	mutators map[string]Mutator
	casts    map[string]Cast
}

// NewAttributes returns an empty store using the given mutators. The
// mutator map is shared, not copied; it is read-only after model setup.
func NewAttributes(mutators map[string]Mutator) Attributes {
	return Attributes{
		current:  make(map[string]any),
		original: make(map[string]any),
		mutators: mutators,
	}
}

func (a *Attributes) init() {
	if a.current == nil {
		a.current = make(map[string]any)
	}
	if a.original == nil {
		a.original = make(map[string]any)
	}
}

// Get returns the current value of field, or nil when it was never set.
func (a *Attributes) Get(field string) any {
	return a.current[field]
}

// Has reports whether field has been set, even to nil.
func (a *Attributes) Has(field string) bool {
	_, ok := a.current[field]
	return ok
}

// Set stores value under field, passing it through the field's mutator
// and then its cast when those are registered.
func (a *Attributes) Set(field string, value any) {
	a.init()
	if mutate, ok := a.mutators[field]; ok && mutate != nil {
		value = mutate(value)
	}
	a.current[field] = a.cast(field, value)
}

func (a *Attributes) cast(field string, value any) any {
	if cast, ok := a.casts[field]; ok && cast != nil {
		return cast(value)
	}
	return value
}

// SetRaw stores value verbatim, bypassing mutators. Used when hydrating
// rows read back from storage.
func (a *Attributes) SetRaw(field string, value any) {
	a.init()
	a.current[field] = value
}

// GetOriginal returns the snapshot value of field.
func (a *Attributes) GetOriginal(field string) any {
	return a.original[field]
}

// IsDirty reports whether any of the given fields changed since the last
// sync. With no arguments it reports whether any field changed.
func (a *Attributes) IsDirty(fields ...string) bool {
	if len(fields) == 0 {
		return len(a.GetDirty()) > 0
	}
	for _, f := range fields {
		if !ValuesEqual(a.current[f], a.original[f]) {
			return true
		}
	}
	return false
}

// GetDirty returns field -> current value for every changed field.
func (a *Attributes) GetDirty() map[string]any {
	dirty := make(map[string]any)
	for field, value := range a.current {
		if !ValuesEqual(value, a.original[field]) {
			dirty[field] = value
		}
	}
	return dirty
}

// SyncOriginal makes the current values the new snapshot.
func (a *Attributes) SyncOriginal() {
	a.original = cloneMap(a.current)
}

func (a *Attributes) syncOriginalField(field string) {
	a.init()
	a.original[field] = a.current[field]
}

// All returns a copy of the current values.
func (a *Attributes) All() map[string]any {
	return cloneMap(a.current)
}

// attributesSnapshot captures both maps so a vetoed or failed operation can
// put the store back exactly as it was.
type attributesSnapshot struct {
	current  map[string]any
	original map[string]any
}

func (a *Attributes) snapshot() attributesSnapshot {
	return attributesSnapshot{current: cloneMap(a.current), original: cloneMap(a.original)}
}

func (a *Attributes) restore(s attributesSnapshot) {
	a.current = s.current
	a.original = s.original
}
