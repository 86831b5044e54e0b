// Package sqlbuild renders core conditions and statements as SQL for the
// SQL drivers. Postgres uses $n placeholders, SQLite uses ?.
package sqlbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leandroluk/larago/core"
)

// Placeholder selects the bind parameter syntax.
type Placeholder int

const (
	Dollar Placeholder = iota // $1, $2, ...
	Question                  // ?, ?, ...
)

// Builder renders statements for one placeholder style. LikeOperator is the
// SQL used for core.OpLike (ILIKE on Postgres, LIKE elsewhere).
type Builder struct {
	Placeholder  Placeholder
	LikeOperator string
}

func (b Builder) bind(argList *[]any, value any) string {
	*argList = append(*argList, value)
	if b.Placeholder == Question {
		return "?"
	}
	return fmt.Sprintf("$%d", len(*argList))
}

// Quote quotes an identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableName renders the (optionally database-qualified) table.
func TableName(table *core.Table) string {
	if table.Database != "" {
		return Quote(table.Database) + "." + Quote(table.Name)
	}
	return Quote(table.Name)
}

// Condition renders condition, appending bind values to argList.
func (b Builder) Condition(condition *core.Condition, argList *[]any) (string, error) {
	if condition == nil {
		return "1=1", nil
	}
	if condition.Operator.IsLogical() {
		partList := make([]string, 0, len(condition.Children))
		for _, child := range condition.Children {
			part, err := b.Condition(child, argList)
			if err != nil {
				return "", err
			}
			partList = append(partList, part)
		}
		if len(partList) == 0 {
			return "1=1", nil
		}
		switch condition.Operator {
		case core.OpAnd:
			return "(" + strings.Join(partList, " AND ") + ")", nil
		case core.OpOr:
			return "(" + strings.Join(partList, " OR ") + ")", nil
		default:
			return "NOT (" + strings.Join(partList, " AND ") + ")", nil
		}
	}

	column := Quote(condition.FieldName)
	switch condition.Operator {
	case core.OpNil:
		return column + " IS NULL", nil
	case core.OpEq:
		return column + " = " + b.bind(argList, condition.Value), nil
	case core.OpNe:
		return column + " <> " + b.bind(argList, condition.Value), nil
	case core.OpGt:
		return column + " > " + b.bind(argList, condition.Value), nil
	case core.OpGte:
		return column + " >= " + b.bind(argList, condition.Value), nil
	case core.OpLt:
		return column + " < " + b.bind(argList, condition.Value), nil
	case core.OpLte:
		return column + " <= " + b.bind(argList, condition.Value), nil
	case core.OpLike:
		like := b.LikeOperator
		if like == "" {
			like = "LIKE"
		}
		return column + " " + like + " " + b.bind(argList, condition.Value), nil
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		if len(valueList) == 0 {
			return "1=0", nil
		}
		placeholderList := make([]string, 0, len(valueList))
		for _, v := range valueList {
			placeholderList = append(placeholderList, b.bind(argList, v))
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholderList, ", ")), nil
	}
	return "", fmt.Errorf("sqlbuild: unsupported operator %q", condition.Operator)
}

// Select renders a SELECT for where.
func (b Builder) Select(table *core.Table, where *core.Where) (string, []any, error) {
	if where == nil {
		where = &core.Where{}
	}
	selectColumns := "*"
	if len(table.Columns) > 0 {
		quoted := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			quoted[i] = Quote(c)
		}
		selectColumns = strings.Join(quoted, ", ")
	}

	argList := []any{}
	whereClause, err := b.Condition(where.Condition, &argList)
	if err != nil {
		return "", nil, err
	}
	sqlQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selectColumns, TableName(table), whereClause)

	if len(where.Sort) > 0 {
		orderPartList := make([]string, 0, len(where.Sort))
		for _, sortItem := range where.Sort {
			direction := "ASC"
			if sortItem.Order < 0 {
				direction = "DESC"
			}
			orderPartList = append(orderPartList, Quote(sortItem.FieldName)+" "+direction)
		}
		sqlQuery += " ORDER BY " + strings.Join(orderPartList, ", ")
	}
	if where.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", where.Limit)
	} else if where.Offset > 0 && b.Placeholder == Question {
		// SQLite requires a LIMIT before OFFSET
		sqlQuery += " LIMIT -1"
	}
	if where.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", where.Offset)
	}
	return sqlQuery, argList, nil
}

// Insert renders an INSERT of row with columns in sorted order. When
// returning is not empty a RETURNING clause for that column is added.
func (b Builder) Insert(table *core.Table, row core.Row, returning string) (string, []any) {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	argList := []any{}
	quoted := make([]string, len(columns))
	placeholderList := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = Quote(column)
		placeholderList[i] = b.bind(&argList, row[column])
	}
	var sqlQuery string
	if len(columns) == 0 {
		sqlQuery = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", TableName(table))
	} else {
		sqlQuery = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			TableName(table), strings.Join(quoted, ", "), strings.Join(placeholderList, ", "))
	}
	if returning != "" {
		sqlQuery += " RETURNING " + Quote(returning)
	}
	return sqlQuery, argList
}

// Update renders an UPDATE setting changes (sorted by column) on rows
// matching condition.
func (b Builder) Update(table *core.Table, condition *core.Condition, changes core.Changes) (string, []any, error) {
	if len(changes) == 0 {
		return "", nil, fmt.Errorf("sqlbuild: update without changes")
	}
	columns := make([]string, 0, len(changes))
	for column := range changes {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	argList := []any{}
	setPartList := make([]string, len(columns))
	for i, column := range columns {
		setPartList[i] = Quote(column) + " = " + b.bind(&argList, changes[column])
	}
	whereClause, err := b.Condition(condition, &argList)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		TableName(table), strings.Join(setPartList, ", "), whereClause), argList, nil
}

// Delete renders a DELETE of rows matching condition.
func (b Builder) Delete(table *core.Table, condition *core.Condition) (string, []any, error) {
	argList := []any{}
	whereClause, err := b.Condition(condition, &argList)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", TableName(table), whereClause), argList, nil
}

// Count renders a COUNT(*) of rows matching condition.
func (b Builder) Count(table *core.Table, condition *core.Condition) (string, []any, error) {
	argList := []any{}
	whereClause, err := b.Condition(condition, &argList)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", TableName(table), whereClause), argList, nil
}
