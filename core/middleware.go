// Package core provides the fundamental building blocks of the larago ORM.
// This file defines the middleware system, which allows cross-cutting concerns
// (logging, metrics, auditing, etc.) to be applied to driver calls.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Operation represents the type of driver call being executed.
//
// It is used within middlewares to distinguish between inserts, updates,
// deletes, and queries.
type Operation string

const (
	// OperationInsert corresponds to an insert (create) operation.
	OperationInsert Operation = "insert"
	// OperationUpdate corresponds to an update, including soft deletes and restores.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to a physical delete.
	OperationDelete Operation = "delete"
	// OperationFind corresponds to a select.
	OperationFind Operation = "find"
	// OperationCount corresponds to a count.
	OperationCount Operation = "count"
)

// Payload describes the driver call a middleware wraps. Only the fields
// relevant to the operation are set.
type Payload struct {
	Model     string
	Table     *Table
	Where     *Where
	Condition *Condition
	Row       Row
	Changes   Changes
}

// Handler is the function signature executed by the driver pipeline.
type Handler func(ctx context.Context, op Operation, payload Payload) error

// Middleware is a function that wraps a Handler with additional logic.
//
// Middlewares are registered per model and follow the decorator pattern:
// the first registered middleware is the outermost.
type Middleware func(next Handler) Handler

// chain applies the middlewares to the final handler.
func chain(middlewares []Middleware, final Handler) Handler {
	h := final
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// run executes exec through the model's middleware chain.
func (m *Model) run(ctx context.Context, op Operation, payload Payload, exec func(ctx context.Context) error) error {
	handler := chain(m.middlewares, func(ctx context.Context, _ Operation, _ Payload) error {
		return exec(ctx)
	})
	return handler(ctx, op, payload)
}

// LoggingMiddleware logs every driver call with its duration.
//
// Example:
//
//	users.Use(core.LoggingMiddleware(logger))
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, op Operation, payload Payload) error {
			start := time.Now()
			err := next(ctx, op, payload)
			event := logger.Debug()
			if err != nil {
				event = logger.Error().Err(err)
			}
			table := ""
			if payload.Table != nil {
				table = payload.Table.Name
			}
			event.Str("op", string(op)).
				Str("model", payload.Model).
				Str("table", table).
				Dur("took", time.Since(start)).
				Msg("driver call")
			return err
		}
	}
}
