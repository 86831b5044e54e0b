// Package core provides the fundamental building blocks of the larago ORM:
// records with dirty tracking, models, queries with global scopes, the
// event dispatcher, soft deletes and the driver contract.
package core

// Condition is one node of a filter tree. Leaves compare FieldName with
// Value through Operator; OpAnd, OpOr and OpNot nodes combine Children.
//
//	core.Col("age").Gt(18).And(core.Col("status").Eq("active"))
type Condition struct {
	FieldName string
	Operator  Operator
	Value     any
	Children  []*Condition
}

// Col starts a leaf on field. Call one of the operator methods before use.
func Col(field string) *Condition {
	return &Condition{FieldName: field}
}

func group(op Operator, children ...*Condition) *Condition {
	return &Condition{Operator: op, Children: children}
}

func (c *Condition) set(op Operator, v any) *Condition {
	c.Operator, c.Value = op, v
	return c
}

// And returns c AND every one of conditions.
func (c *Condition) And(conditions ...*Condition) *Condition {
	return group(OpAnd, append([]*Condition{c}, conditions...)...)
}

// Or returns c OR any of conditions.
func (c *Condition) Or(conditions ...*Condition) *Condition {
	return group(OpOr, append([]*Condition{c}, conditions...)...)
}

// Not returns the negation of c.
func (c *Condition) Not() *Condition { return group(OpNot, c) }

// Nil matches null or absent values.
func (c *Condition) Nil() *Condition { return c.set(OpNil, nil) }

// NotNil is Nil().Not().
func (c *Condition) NotNil() *Condition { return c.Nil().Not() }

func (c *Condition) Eq(v any) *Condition { return c.set(OpEq, v) }
func (c *Condition) Ne(v any) *Condition { return c.set(OpNe, v) }
func (c *Condition) Gt(v any) *Condition { return c.set(OpGt, v) }
func (c *Condition) Gte(v any) *Condition { return c.set(OpGte, v) }
func (c *Condition) Lt(v any) *Condition { return c.set(OpLt, v) }
func (c *Condition) Lte(v any) *Condition { return c.set(OpLte, v) }

// Like matches a SQL LIKE pattern (% and _). Drivers decide case
// sensitivity.
func (c *Condition) Like(pattern any) *Condition { return c.set(OpLike, pattern) }

// In matches any of values. An empty list matches nothing.
func (c *Condition) In(values ...any) *Condition { return c.set(OpIn, values) }

// Apply sets op with v, normalizing the value for OpNil and OpIn. Query.Where
// builds its leaves with it.
func (c *Condition) Apply(op Operator, v any) *Condition {
	switch op {
	case OpNil:
		return c.Nil()
	case OpIn:
		if list, ok := v.([]any); ok {
			return c.In(list...)
		}
		return c.In(v)
	}
	return c.set(op, v)
}
