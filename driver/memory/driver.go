// Package memory provides an in-process driver for the larago ORM.
//
// Rows live in maps guarded by a mutex. Conditions are evaluated in Go with
// the same semantics the SQL drivers render. Transactions snapshot the whole
// store and put it back on rollback. It backs tests and the demo CLI.
package memory

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leandroluk/larago/core"
)

type memoryTransaction struct {
	driver   *MemoryDriver
	snapshot map[string]*table
	done     bool
}

func (transaction *memoryTransaction) Commit(ctx context.Context) error {
	transaction.driver.mutex.Lock()
	defer transaction.driver.mutex.Unlock()
	if transaction.done {
		return fmt.Errorf("memory driver: transaction already finished")
	}
	transaction.done = true
	return nil
}

func (transaction *memoryTransaction) Rollback(ctx context.Context) error {
	transaction.driver.mutex.Lock()
	defer transaction.driver.mutex.Unlock()
	if transaction.done {
		return fmt.Errorf("memory driver: transaction already finished")
	}
	transaction.done = true
	transaction.driver.tables = transaction.snapshot
	return nil
}

type table struct {
	rows   []core.Row
	nextID int64
}

func (t *table) clone() *table {
	rows := make([]core.Row, len(t.rows))
	for i, row := range t.rows {
		rows[i] = cloneRow(row)
	}
	return &table{rows: rows, nextID: t.nextID}
}

// MemoryDriver implements core.Driver on top of Go maps.
type MemoryDriver struct {
	mutex  sync.RWMutex
	tables map[string]*table
	closed bool
}

var _ core.Driver = (*MemoryDriver)(nil)

// NewMemoryDriver returns an empty store.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{tables: make(map[string]*table)}
}

func tableKey(schema *core.Table) string {
	if schema.Database != "" {
		return schema.Database + "." + schema.Name
	}
	return schema.Name
}

func (driver *MemoryDriver) tableFor(schema *core.Table) *table {
	key := tableKey(schema)
	t, ok := driver.tables[key]
	if !ok {
		t = &table{}
		driver.tables[key] = t
	}
	return t
}

func (driver *MemoryDriver) Connect(ctx context.Context) error {
	return driver.Ping(ctx)
}

func (driver *MemoryDriver) Ping(ctx context.Context) error {
	driver.mutex.RLock()
	defer driver.mutex.RUnlock()
	if driver.closed {
		return fmt.Errorf("memory driver: closed")
	}
	return nil
}

func (driver *MemoryDriver) Close(ctx context.Context) error {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()
	driver.closed = true
	return nil
}

// Transaction snapshots every table. Transactions are not isolated from
// concurrent writers; rollback restores the snapshot wholesale.
func (driver *MemoryDriver) Transaction(ctx context.Context) (core.Transaction, error) {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()
	snapshot := make(map[string]*table, len(driver.tables))
	for name, t := range driver.tables {
		snapshot[name] = t.clone()
	}
	return &memoryTransaction{driver: driver, snapshot: snapshot}, nil
}

func (driver *MemoryDriver) Select(ctx context.Context, schema *core.Table, where *core.Where) ([]core.Row, error) {
	driver.mutex.RLock()
	defer driver.mutex.RUnlock()
	if where == nil {
		where = &core.Where{}
	}
	var matched []core.Row
	for _, row := range driver.tables[tableKey(schema)].rowsOrNil() {
		ok, err := Matches(where.Condition, row)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, project(row, schema.Columns))
		}
	}
	sortRows(matched, where.Sort)
	if where.Offset > 0 {
		if where.Offset >= len(matched) {
			return []core.Row{}, nil
		}
		matched = matched[where.Offset:]
	}
	if where.Limit > 0 && where.Limit < len(matched) {
		matched = matched[:where.Limit]
	}
	return matched, nil
}

func (t *table) rowsOrNil() []core.Row {
	if t == nil {
		return nil
	}
	return t.rows
}

// Insert stores a copy of row. Rows without a primary key get the next
// integer id of the table.
func (driver *MemoryDriver) Insert(ctx context.Context, schema *core.Table, row core.Row) (any, error) {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()
	t := driver.tableFor(schema)
	stored := cloneRow(row)
	var generated any
	if pk := schema.PrimaryKey; pk != "" {
		if key, ok := stored[pk]; !ok || key == nil {
			t.nextID++
			stored[pk] = t.nextID
			generated = t.nextID
		} else {
			for _, existing := range t.rows {
				if equal(existing[pk], key) {
					return nil, fmt.Errorf("memory driver: duplicate key %v in %s", key, schema.Name)
				}
			}
			if n, ok := key.(int64); ok && n > t.nextID {
				t.nextID = n
			}
		}
	}
	t.rows = append(t.rows, stored)
	return generated, nil
}

func (driver *MemoryDriver) Update(ctx context.Context, schema *core.Table, condition *core.Condition, changes core.Changes) (int64, error) {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()
	rows := driver.tables[tableKey(schema)].rowsOrNil()
	matched, err := matchRows(condition, rows)
	if err != nil {
		return 0, err
	}
	var affected int64
	for i, row := range rows {
		if !matched[i] {
			continue
		}
		for column, value := range changes {
			row[column] = value
		}
		affected++
	}
	return affected, nil
}

func (driver *MemoryDriver) Delete(ctx context.Context, schema *core.Table, condition *core.Condition) (int64, error) {
	driver.mutex.Lock()
	defer driver.mutex.Unlock()
	t := driver.tables[tableKey(schema)]
	if t == nil {
		return 0, nil
	}
	matched, err := matchRows(condition, t.rows)
	if err != nil {
		return 0, err
	}
	kept := t.rows[:0]
	var affected int64
	for i, row := range t.rows {
		if matched[i] {
			affected++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return affected, nil
}

// matchRows evaluates condition against every row before anything is
// written, so a failing condition leaves the table untouched.
func matchRows(condition *core.Condition, rows []core.Row) ([]bool, error) {
	matched := make([]bool, len(rows))
	for i, row := range rows {
		ok, err := Matches(condition, row)
		if err != nil {
			return nil, err
		}
		matched[i] = ok
	}
	return matched, nil
}

func (driver *MemoryDriver) Count(ctx context.Context, schema *core.Table, condition *core.Condition) (int64, error) {
	rows, err := driver.Select(ctx, &core.Table{Database: schema.Database, Name: schema.Name}, &core.Where{Condition: condition})
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Seed inserts rows verbatim, bypassing the model layer. Useful in tests.
func (driver *MemoryDriver) Seed(schema *core.Table, rows ...core.Row) error {
	for _, row := range rows {
		if _, err := driver.Insert(context.Background(), schema, row); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns copies of every stored row of the table, trashed or not.
func (driver *MemoryDriver) Rows(schema *core.Table) []core.Row {
	driver.mutex.RLock()
	defer driver.mutex.RUnlock()
	var out []core.Row
	for _, row := range driver.tables[tableKey(schema)].rowsOrNil() {
		out = append(out, cloneRow(row))
	}
	return out
}

// Matches evaluates condition against row. A nil condition matches everything.
func Matches(condition *core.Condition, row core.Row) (bool, error) {
	if condition == nil {
		return true, nil
	}
	switch condition.Operator {
	case core.OpAnd:
		for _, child := range condition.Children {
			ok, err := Matches(child, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case core.OpOr:
		for _, child := range condition.Children {
			ok, err := Matches(child, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case core.OpNot:
		for _, child := range condition.Children {
			ok, err := Matches(child, row)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		return false, nil
	}

	value := row[condition.FieldName]
	switch condition.Operator {
	case core.OpNil:
		return isNil(value), nil
	case core.OpEq:
		return !isNil(value) && equal(value, condition.Value), nil
	case core.OpNe:
		return !isNil(value) && !equal(value, condition.Value), nil
	case core.OpGt, core.OpGte, core.OpLt, core.OpLte:
		if isNil(value) {
			return false, nil
		}
		cmp, ok := compare(value, condition.Value)
		if !ok {
			return false, fmt.Errorf("memory driver: cannot compare %T with %T", value, condition.Value)
		}
		switch condition.Operator {
		case core.OpGt:
			return cmp > 0, nil
		case core.OpGte:
			return cmp >= 0, nil
		case core.OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case core.OpLike:
		pattern, err := likePattern(fmt.Sprint(condition.Value))
		if err != nil {
			return false, err
		}
		return !isNil(value) && pattern.MatchString(fmt.Sprint(value)), nil
	case core.OpIn:
		list, _ := condition.Value.([]any)
		for _, candidate := range list {
			if equal(value, candidate) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("memory driver: unsupported operator %q", condition.Operator)
}

func isNil(v any) bool {
	return v == nil || core.ValuesEqual(v, nil)
}

func equal(a, b any) bool {
	return core.ValuesEqual(a, b)
}

// compare orders numbers, strings and times. ok is false for other pairs.
func compare(a, b any) (int, bool) {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	fa, okA := number(a)
	fb, okB := number(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// likePattern turns a SQL LIKE pattern into an anchored, case-insensitive regexp.
func likePattern(input string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range input {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func sortRows(rows []core.Row, rules []core.Sort) {
	if len(rules) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, rule := range rules {
			a, b := rows[i][rule.FieldName], rows[j][rule.FieldName]
			if isNil(a) || isNil(b) {
				if isNil(a) == isNil(b) {
					continue
				}
				// NULLs first ascending, last descending
				return isNil(a) == (rule.Order >= 0)
			}
			cmp, ok := compare(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if rule.Order < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func project(row core.Row, columns []string) core.Row {
	if len(columns) == 0 {
		return cloneRow(row)
	}
	out := make(core.Row, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func cloneRow(row core.Row) core.Row {
	out := make(core.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
