package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVetoed is matched by every *VetoError.
	ErrVetoed = errors.New("operation vetoed")
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("record not found")
	// ErrMassAssignment is matched by every *MassAssignmentError.
	ErrMassAssignment = errors.New("mass assignment")
	// ErrNotPersisted is returned when deleting or restoring a record that
	// was never stored.
	ErrNotPersisted = errors.New("record is not persisted")
	// ErrNotSoftDeletable is returned by restore operations on models
	// without soft deletes.
	ErrNotSoftDeletable = errors.New("model does not use soft deletes")
	// ErrUnknownScope is returned when a query names a local scope that was
	// never registered.
	ErrUnknownScope = errors.New("unknown scope")
	// ErrUnresolvedRelation is returned by Query.Compile when the query
	// filters on related rows, which can only be read when it runs.
	ErrUnresolvedRelation = errors.New("relation filter is resolved when the query runs")
)

// VetoError reports that a "before" handler stopped a persistence
// operation. Nothing was written when it is returned.
type VetoError struct {
	Model  string
	Event  Event
	Reason string
}

func (e *VetoError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s vetoed", e.Model, e.Event)
	}
	return fmt.Sprintf("%s: %s vetoed: %s", e.Model, e.Event, e.Reason)
}

func (e *VetoError) Unwrap() error { return ErrVetoed }

// IsVetoed reports whether err is (or wraps) a veto.
func IsVetoed(err error) bool {
	return errors.Is(err, ErrVetoed)
}

// NotFoundError is returned by the *OrFail lookups.
type NotFoundError struct {
	Model string
	Key   any
}

func (e *NotFoundError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("%s: no matching record", e.Model)
	}
	return fmt.Sprintf("%s: record %v not found", e.Model, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MassAssignmentError lists the fields rejected by a strict Fill.
type MassAssignmentError struct {
	Model  string
	Fields []string
}

func (e *MassAssignmentError) Error() string {
	return fmt.Sprintf("%s: fields not fillable: %s", e.Model, strings.Join(e.Fields, ", "))
}

func (e *MassAssignmentError) Unwrap() error { return ErrMassAssignment }
