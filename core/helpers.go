// Package core provides the fundamental building blocks of the larago ORM.
// This file contains helper functions for value comparison, condition
// folding and map copies.
package core

import (
	"math"
	"reflect"
	"sort"
	"time"
)

// foldConditionsAnd combines multiple conditions into a single condition
// using logical AND. Nil entries are skipped. If zero conditions remain, it
// returns nil; if one remains, it returns that condition.
func foldConditionsAnd(conds ...*Condition) *Condition {
	kept := make([]*Condition, 0, len(conds))
	for _, c := range conds {
		if c != nil {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &Condition{Operator: OpAnd, Children: kept}
	}
}

// keyCondition returns the condition selecting a single row by primary key.
func keyCondition(table *Table, key any) *Condition {
	return Col(table.PrimaryKey).Eq(key)
}

// ValuesEqual compares two attribute values the way dirty tracking does.
//
// nil and a typed nil pointer are equal, time.Time values are compared with
// Equal and numbers of different Go kinds compare by value. Anything else
// falls back to reflect.DeepEqual.
func ValuesEqual(a, b any) bool {
	a, b = deref(a), deref(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if equal, ok := numbersEqual(a, b); ok {
		return equal
	}
	return reflect.DeepEqual(a, b)
}

// numbersEqual compares two numbers of any kind. Integers compare exactly;
// float64 is only used when one side is a float.
func numbersEqual(a, b any) (equal, ok bool) {
	ka, kb := numberKind(a), numberKind(b)
	if ka == notNumber || kb == notNumber {
		return false, false
	}
	if ka == floatNumber || kb == floatNumber {
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa == fb, true
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case ka == signedNumber && kb == signedNumber:
		return ra.Int() == rb.Int(), true
	case ka == unsignedNumber && kb == unsignedNumber:
		return ra.Uint() == rb.Uint(), true
	case ka == signedNumber:
		return ra.Int() >= 0 && uint64(ra.Int()) == rb.Uint(), true
	default:
		return rb.Int() >= 0 && uint64(rb.Int()) == ra.Uint(), true
	}
}

type numberClass int

const (
	notNumber numberClass = iota
	signedNumber
	unsignedNumber
	floatNumber
)

func numberKind(v any) numberClass {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signedNumber
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return unsignedNumber
	case reflect.Float32, reflect.Float64:
		return floatNumber
	}
	return notNumber
}

// toInt64 converts any integer kind that fits to int64.
func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch numberKind(v) {
	case signedNumber:
		return rv.Int(), true
	case unsignedNumber:
		if rv.Uint() <= math.MaxInt64 {
			return int64(rv.Uint()), true
		}
	}
	return 0, false
}

// deref unwraps pointers so that *string("x") and "x" compare equal.
func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// toFloat converts any integer or float kind to float64.
func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](in map[string]V) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
