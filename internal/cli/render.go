package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leandroluk/larago/core"
)

var (
	userColumns = []string{"id", "name", "email", "active", "verified_at", "created_at", "deleted_at"}
	postColumns = []string{"id", "user_id", "title", "published_at", "created_at", "deleted_at"}
)

// render writes records as a table or, with -o json, as a JSON array of
// their visible attributes.
func (s *session) render(w io.Writer, columns []string, records []*core.Record) error {
	if s.output == "json" {
		results := make([]map[string]any, len(records))
		for i, record := range records {
			results[i] = record.ToMap()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(columns))
	for i, column := range columns {
		headerRow[i] = column
	}
	t.AppendHeader(headerRow)
	for _, record := range records {
		values := record.ToMap()
		row := make(table.Row, len(columns))
		for i, column := range columns {
			row[i] = formatValue(values[column])
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(records))
	return nil
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	case *time.Time:
		if value == nil {
			return ""
		}
		return value.UTC().Format(time.RFC3339)
	case []byte:
		return string(value)
	default:
		return fmt.Sprint(value)
	}
}
