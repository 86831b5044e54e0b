// Package core provides the fundamental building blocks of the larago ORM.
// This file defines attribute casts: conversions applied to values read from
// storage and to values assigned with Set, so a field keeps one Go type no
// matter which driver produced it.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Cast converts a value to the Go type of its attribute. Values it cannot
// convert, nil included, come back unchanged.
type Cast func(value any) any

// Casts registers casts per field. They run on Hydrate and on Set, after the
// field's mutator.
func Casts(casts map[string]Cast) Option {
	return func(m *Model) {
		for field, cast := range casts {
			m.casts[field] = cast
		}
	}
}

// Dates casts each field with AsTime.
func Dates(fields ...string) Option {
	return func(m *Model) {
		for _, field := range fields {
			m.casts[field] = AsTime
		}
	}
}

// AsBool converts numbers and strings such as "1", "t" or "true" to bool.
func AsBool(value any) any {
	plain := deref(value)
	switch v := plain.(type) {
	case nil:
		return nil
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
		return value
	case []byte:
		return AsBool(string(v))
	}
	if n, ok := toInt64(plain); ok {
		return n != 0
	}
	if f, ok := toFloat(plain); ok {
		return f != 0
	}
	return value
}

// AsInt converts integers, integral floats and numeric strings to int64.
func AsInt(value any) any {
	plain := deref(value)
	switch v := plain.(type) {
	case nil:
		return nil
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
		return value
	case []byte:
		return AsInt(string(v))
	}
	if n, ok := toInt64(plain); ok {
		return n
	}
	if f, ok := toFloat(plain); ok && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return int64(f)
	}
	return value
}

// AsFloat converts numbers and numeric strings to float64.
func AsFloat(value any) any {
	plain := deref(value)
	switch v := plain.(type) {
	case nil:
		return nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		return value
	case []byte:
		return AsFloat(string(v))
	}
	if f, ok := toFloat(plain); ok {
		return f
	}
	return value
}

// AsString formats any non-nil value as a string.
func AsString(value any) any {
	plain := deref(value)
	switch v := plain.(type) {
	case nil:
		return nil
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// AsTime converts timestamps stored as text to time.Time. Text without a
// zone is read as UTC.
func AsTime(value any) any {
	plain := deref(value)
	switch v := plain.(type) {
	case nil:
		return nil
	case time.Time:
		return v
	case string:
		text := strings.TrimSpace(v)
		if i := strings.Index(text, " m="); i > 0 {
			text = text[:i]
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t
			}
		}
		return value
	case []byte:
		return AsTime(string(v))
	}
	return value
}
