package core_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/driver/memory"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func lower(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}
	return v
}

// newUsers builds a "users" model on a fresh memory driver.
func newUsers(t *testing.T, options ...core.Option) (*core.Model, *memory.MemoryDriver) {
	t.Helper()
	driver := memory.NewMemoryDriver()
	base := []core.Option{core.Fillable("name", "email", "active"), core.WithClock(func() time.Time { return fixedNow })}
	return core.NewModel("users", driver, append(base, options...)...), driver
}

func rowsOf(driver *memory.MemoryDriver, model *core.Model) []core.Row {
	table := model.Table()
	return driver.Rows(&table)
}

func seed(t *testing.T, driver *memory.MemoryDriver, model *core.Model, rows ...core.Row) {
	t.Helper()
	table := model.Table()
	require.NoError(t, driver.Seed(&table, rows...))
}

// recorder collects event names in the order handlers ran.
type recorder struct {
	seen []string
}

func (r *recorder) before(label string) core.BeforeHandler {
	return func(ctx context.Context, record *core.Record) (core.Decision, error) {
		r.seen = append(r.seen, label)
		return core.Proceed(), nil
	}
}

func (r *recorder) after(label string) core.AfterHandler {
	return func(ctx context.Context, record *core.Record) error {
		r.seen = append(r.seen, label)
		return nil
	}
}

// listenAll attaches a recording listener to every event of model.
func (r *recorder) listenAll(t *testing.T, model *core.Model) {
	t.Helper()
	for _, event := range core.Events {
		if event.IsBefore() {
			require.NoError(t, model.Dispatcher().ListenBefore(model.Name(), event, r.before(string(event))))
		} else {
			require.NoError(t, model.Dispatcher().ListenAfter(model.Name(), event, r.after(string(event))))
		}
	}
}

func names(records []*core.Record) []any {
	out := make([]any, len(records))
	for i, record := range records {
		out[i] = record.Get("name")
	}
	return out
}
