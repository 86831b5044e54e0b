// Package core provides the fundamental building blocks of the larago ORM.
// This file defines model lifecycle events and the dispatcher that runs
// their handlers.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Event names a point in a record's persistence lifecycle.
type Event string

const (
	EventSaving    Event = "saving"
	EventSaved     Event = "saved"
	EventCreating  Event = "creating"
	EventCreated   Event = "created"
	EventUpdating  Event = "updating"
	EventUpdated   Event = "updated"
	EventDeleting  Event = "deleting"
	EventDeleted   Event = "deleted"
	EventRestoring Event = "restoring"
	EventRestored  Event = "restored"
)

// Events lists every lifecycle event, "before" events first.
var Events = []Event{
	EventSaving, EventCreating, EventUpdating, EventDeleting, EventRestoring,
	EventSaved, EventCreated, EventUpdated, EventDeleted, EventRestored,
}

// IsBefore reports whether handlers of e may veto the operation.
func (e Event) IsBefore() bool {
	switch e {
	case EventSaving, EventCreating, EventUpdating, EventDeleting, EventRestoring:
		return true
	}
	return false
}

// Valid reports whether e is one of the known lifecycle events.
func (e Event) Valid() bool {
	for _, known := range Events {
		if e == known {
			return true
		}
	}
	return false
}

// Decision is what a "before" handler returns: proceed, or veto with a reason.
type Decision struct {
	vetoed bool
	reason string
}

// Proceed lets the operation continue.
func Proceed() Decision { return Decision{} }

// Veto stops the operation. The reason ends up in the returned *VetoError.
func Veto(reason string) Decision { return Decision{vetoed: true, reason: reason} }

// Vetoed reports whether the decision stops the operation.
func (d Decision) Vetoed() bool { return d.vetoed }

// Reason returns the veto reason, if any.
func (d Decision) Reason() string { return d.reason }

// BeforeHandler runs before a persistence operation and may veto it.
type BeforeHandler func(ctx context.Context, record *Record) (Decision, error)

// AfterHandler runs after a persistence operation. A returned error reaches
// the caller of the operation unchanged.
type AfterHandler func(ctx context.Context, record *Record) error

type handlerEntry struct {
	source string // "observer" or "listener", for logs
	before BeforeHandler
	after  AfterHandler
}

// Dispatcher keeps the ordered handler table for every model and fires
// lifecycle events.
//
// A Dispatcher is built once at application start and handed to every model
// sharing it (see WithDispatcher). Tests build a fresh one per case.
type Dispatcher struct {
	mutex  sync.RWMutex
	tables map[string]map[Event][]handlerEntry
	logger zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// DispatcherLogger sets the logger used for veto and failure traces.
func DispatcherLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		tables: make(map[string]map[Event][]handlerEntry),
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(d)
	}
	return d
}

func (d *Dispatcher) append(model string, event Event, entry handlerEntry) {
	table, ok := d.tables[model]
	if !ok {
		table = make(map[Event][]handlerEntry)
		d.tables[model] = table
	}
	table[event] = append(table[event], entry)
}

// ListenBefore attaches an inline handler to a "before" event of model.
func (d *Dispatcher) ListenBefore(model string, event Event, handler BeforeHandler) error {
	if !event.IsBefore() {
		return fmt.Errorf("dispatcher: %q is not a before event", event)
	}
	if handler == nil {
		return fmt.Errorf("dispatcher: nil handler for %q", event)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.append(model, event, handlerEntry{source: "listener", before: handler})
	return nil
}

// ListenAfter attaches an inline handler to an "after" event of model.
func (d *Dispatcher) ListenAfter(model string, event Event, handler AfterHandler) error {
	if !event.Valid() || event.IsBefore() {
		return fmt.Errorf("dispatcher: %q is not an after event", event)
	}
	if handler == nil {
		return fmt.Errorf("dispatcher: nil handler for %q", event)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.append(model, event, handlerEntry{source: "listener", after: handler})
	return nil
}

// Observe registers every event method observer implements for model. The
// capabilities are resolved here, once; the entries are appended to each
// event's list at this point in the registration order.
func (d *Dispatcher) Observe(model string, observer any) error {
	bindings := observerBindings(observer)
	if len(bindings) == 0 {
		return fmt.Errorf("dispatcher: %T implements no observer methods", observer)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for _, b := range bindings {
		d.append(model, b.event, b.entry)
	}
	return nil
}

// Forget drops every handler registered for model.
func (d *Dispatcher) Forget(model string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	delete(d.tables, model)
}

// HasListeners reports whether anything is registered for (model, event).
func (d *Dispatcher) HasListeners(model string, event Event) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.tables[model][event]) > 0
}

// Fire runs the handlers for (record's model, event) in registration order.
//
// For before events the first veto or error stops dispatch and is returned.
// For after events the decision is always Proceed and the first error stops
// dispatch.
func (d *Dispatcher) Fire(ctx context.Context, event Event, record *Record) (Decision, error) {
	model := record.model.Name()

	d.mutex.RLock()
	entries := append([]handlerEntry(nil), d.tables[model][event]...)
	d.mutex.RUnlock()

	for _, entry := range entries {
		if event.IsBefore() {
			decision, err := entry.before(ctx, record)
			if err != nil {
				d.logger.Debug().Err(err).Str("model", model).Str("event", string(event)).
					Str("source", entry.source).Msg("before handler failed")
				return Proceed(), err
			}
			if decision.Vetoed() {
				d.logger.Debug().Str("model", model).Str("event", string(event)).
					Str("source", entry.source).Str("reason", decision.Reason()).Msg("operation vetoed")
				return decision, nil
			}
			continue
		}
		if err := entry.after(ctx, record); err != nil {
			d.logger.Debug().Err(err).Str("model", model).Str("event", string(event)).
				Str("source", entry.source).Msg("after handler failed")
			return Proceed(), err
		}
	}
	return Proceed(), nil
}
