// Package core provides the fundamental building blocks of the larago ORM.
// This file defines global scopes and the registry that holds them.
package core

import "sync"

// Scope is a predicate applied to every query of a model. Apply receives a
// private copy of the query and the model, and typically adds a filter.
type Scope interface {
	Apply(query *Query, model *Model)
}

// ScopeFunc adapts a plain function to Scope.
type ScopeFunc func(query *Query, model *Model)

// Apply calls f(query, model).
func (f ScopeFunc) Apply(query *Query, model *Model) { f(query, model) }

// NamedScope pairs a scope with the name it was registered under.
type NamedScope struct {
	Name  string
	Scope Scope
}

// ScopeRegistry holds the ordered global scopes of every model, keyed by
// model name. It is built once at application start and shared by the
// models that use it (see WithScopes).
//
// Queries never write to the registry: per-query additions and removals
// live on the Query value.
type ScopeRegistry struct {
	mutex  sync.RWMutex
	scopes map[string][]NamedScope
}

// NewScopeRegistry creates an empty registry.
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{scopes: make(map[string][]NamedScope)}
}

// Add registers scope for model under name. Registering a name again
// replaces the scope but keeps its original position.
func (r *ScopeRegistry) Add(model, name string, scope Scope) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	list := r.scopes[model]
	for i := range list {
		if list[i].Name == name {
			list[i].Scope = scope
			return
		}
	}
	r.scopes[model] = append(list, NamedScope{Name: name, Scope: scope})
}

// Remove unregisters name for model. It reports whether anything was removed.
func (r *ScopeRegistry) Remove(model, name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	list := r.scopes[model]
	for i := range list {
		if list[i].Name == name {
			r.scopes[model] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether name is registered for model.
func (r *ScopeRegistry) Has(model, name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, s := range r.scopes[model] {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Scopes returns a copy of model's scopes in registration order.
func (r *ScopeRegistry) Scopes(model string) []NamedScope {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]NamedScope(nil), r.scopes[model]...)
}

// Names returns the registered scope names for model, in order.
func (r *ScopeRegistry) Names(model string) []string {
	scopes := r.Scopes(model)
	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = s.Name
	}
	return names
}
