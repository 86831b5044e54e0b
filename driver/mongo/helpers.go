package mongo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leandroluk/larago/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const documentKey = "_id"

// toMongoLikePattern converts a SQL LIKE pattern into an anchored regex:
// % becomes .* and _ becomes a single character wildcard.
//
//	toMongoLikePattern("%admin_") // "^.*admin.$"
func toMongoLikePattern(input string) string {
	var b strings.Builder
	b.WriteString("^")
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
	return b.String()
}

// fieldFor maps the model primary key onto the document _id.
func fieldFor(table *core.Table, name string) string {
	if table != nil && table.PrimaryKey != "" && name == table.PrimaryKey {
		return documentKey
	}
	return name
}

// toDocument renames the primary key of row to _id.
func toDocument(table *core.Table, row map[string]any) bson.M {
	document := make(bson.M, len(row))
	for k, v := range row {
		document[fieldFor(table, k)] = v
	}
	return document
}

// fromDocument renames _id back to the model primary key.
func fromDocument(table *core.Table, document bson.M) core.Row {
	row := make(core.Row, len(document))
	for k, v := range document {
		if k == documentKey && table.PrimaryKey != "" {
			row[table.PrimaryKey] = v
			continue
		}
		row[k] = v
	}
	return row
}

// buildFilter translates a condition tree into a Mongo filter. Comparisons
// other than IS NULL never match missing or null fields, matching the SQL
// drivers.
func buildFilter(table *core.Table, condition *core.Condition) (bson.M, error) {
	if condition == nil {
		return bson.M{}, nil
	}
	if condition.Operator.IsLogical() {
		childFilterList := make([]bson.M, 0, len(condition.Children))
		for _, child := range condition.Children {
			filter, err := buildFilter(table, child)
			if err != nil {
				return nil, err
			}
			childFilterList = append(childFilterList, filter)
		}
		if len(childFilterList) == 0 {
			return bson.M{}, nil
		}
		switch condition.Operator {
		case core.OpAnd:
			return bson.M{"$and": childFilterList}, nil
		case core.OpOr:
			return bson.M{"$or": childFilterList}, nil
		default:
			return bson.M{"$nor": []bson.M{{"$and": childFilterList}}}, nil
		}
	}

	fieldName := fieldFor(table, condition.FieldName)
	switch condition.Operator {
	case core.OpNil:
		return bson.M{fieldName: nil}, nil
	case core.OpEq:
		return bson.M{fieldName: bson.M{"$eq": condition.Value}}, nil
	case core.OpNe:
		return bson.M{"$and": []bson.M{
			{fieldName: bson.M{"$ne": condition.Value}},
			{fieldName: bson.M{"$ne": nil}},
		}}, nil
	case core.OpGt:
		return bson.M{fieldName: bson.M{"$gt": condition.Value}}, nil
	case core.OpGte:
		return bson.M{fieldName: bson.M{"$gte": condition.Value}}, nil
	case core.OpLt:
		return bson.M{fieldName: bson.M{"$lt": condition.Value}}, nil
	case core.OpLte:
		return bson.M{fieldName: bson.M{"$lte": condition.Value}}, nil
	case core.OpLike:
		pattern := toMongoLikePattern(fmt.Sprintf("%v", condition.Value))
		return bson.M{fieldName: primitive.Regex{Pattern: pattern, Options: "is"}}, nil
	case core.OpIn:
		array := []any{}
		switch v := condition.Value.(type) {
		case []any:
			array = append(array, v...)
		case nil:
		default:
			array = append(array, v)
		}
		return bson.M{fieldName: bson.M{"$in": array}}, nil
	}
	return nil, fmt.Errorf("mongo driver: unsupported operator %q", condition.Operator)
}

// sortDocument keeps the order of the sort rules.
func sortDocument(table *core.Table, sortList []core.Sort) bson.D {
	sortDoc := bson.D{}
	for _, sortItem := range sortList {
		direction := 1
		if sortItem.Order < 0 {
			direction = -1
		}
		sortDoc = append(sortDoc, bson.E{Key: fieldFor(table, sortItem.FieldName), Value: direction})
	}
	return sortDoc
}
