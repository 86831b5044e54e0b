package core

import "context"

// Observer capabilities. An observer implements any subset of these; the
// dispatcher checks them once, when the observer is registered.
type (
	SavingObserver interface {
		Saving(ctx context.Context, record *Record) (Decision, error)
	}
	SavedObserver interface {
		Saved(ctx context.Context, record *Record) error
	}
	CreatingObserver interface {
		Creating(ctx context.Context, record *Record) (Decision, error)
	}
	CreatedObserver interface {
		Created(ctx context.Context, record *Record) error
	}
	UpdatingObserver interface {
		Updating(ctx context.Context, record *Record) (Decision, error)
	}
	UpdatedObserver interface {
		Updated(ctx context.Context, record *Record) error
	}
	DeletingObserver interface {
		Deleting(ctx context.Context, record *Record) (Decision, error)
	}
	DeletedObserver interface {
		Deleted(ctx context.Context, record *Record) error
	}
	RestoringObserver interface {
		Restoring(ctx context.Context, record *Record) (Decision, error)
	}
	RestoredObserver interface {
		Restored(ctx context.Context, record *Record) error
	}
)

type observerBinding struct {
	event Event
	entry handlerEntry
}

// observerBindings builds the handler entries for observer, in Events order.
func observerBindings(observer any) []observerBinding {
	var out []observerBinding
	before := func(e Event, h BeforeHandler) {
		out = append(out, observerBinding{event: e, entry: handlerEntry{source: "observer", before: h}})
	}
	after := func(e Event, h AfterHandler) {
		out = append(out, observerBinding{event: e, entry: handlerEntry{source: "observer", after: h}})
	}

	if o, ok := observer.(SavingObserver); ok {
		before(EventSaving, o.Saving)
	}
	if o, ok := observer.(CreatingObserver); ok {
		before(EventCreating, o.Creating)
	}
	if o, ok := observer.(UpdatingObserver); ok {
		before(EventUpdating, o.Updating)
	}
	if o, ok := observer.(DeletingObserver); ok {
		before(EventDeleting, o.Deleting)
	}
	if o, ok := observer.(RestoringObserver); ok {
		before(EventRestoring, o.Restoring)
	}
	if o, ok := observer.(SavedObserver); ok {
		after(EventSaved, o.Saved)
	}
	if o, ok := observer.(CreatedObserver); ok {
		after(EventCreated, o.Created)
	}
	if o, ok := observer.(UpdatedObserver); ok {
		after(EventUpdated, o.Updated)
	}
	if o, ok := observer.(DeletedObserver); ok {
		after(EventDeleted, o.Deleted)
	}
	if o, ok := observer.(RestoredObserver); ok {
		after(EventRestored, o.Restored)
	}
	return out
}
