// Package core provides the fundamental building blocks of the larago ORM.
// This file defines the set of supported operators used in query conditions.
package core

import "strings"

// Operator represents a comparison or logical operator used in a query condition.
//
// Operators can be logical (AND, OR, NOT) or value-based (EQ, GT, IN, etc.).
type Operator string

const (
	// Logical operators
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
	OpNot Operator = "NOT"

	// Value-based operators
	OpNil  Operator = "NIL"  // field IS NULL
	OpEq   Operator = "EQ"   // field = value
	OpNe   Operator = "NE"   // field <> value
	OpGt   Operator = "GT"   // field > value
	OpGte  Operator = "GTE"  // field >= value
	OpLt   Operator = "LT"   // field < value
	OpLte  Operator = "LTE"  // field <= value
	OpLike Operator = "LIKE" // field LIKE pattern (SQL) or regex (NoSQL)
	OpIn   Operator = "IN"   // field IN (value list)
)

// IsLogical reports whether the operator combines child conditions.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

// ParseOperator maps the symbolic spellings accepted by Query.Where
// ("=", "!=", ">", "like", ...) to an Operator. Unknown input is returned
// upper-cased so that the canonical names ("EQ", "GT") also work.
func ParseOperator(symbol string) Operator {
	switch strings.ToLower(strings.TrimSpace(symbol)) {
	case "=", "==":
		return OpEq
	case "!=", "<>":
		return OpNe
	case ">":
		return OpGt
	case ">=":
		return OpGte
	case "<":
		return OpLt
	case "<=":
		return OpLte
	case "like":
		return OpLike
	case "in":
		return OpIn
	case "is null", "nil":
		return OpNil
	}
	return Operator(strings.ToUpper(symbol))
}
