package core_test

import (
	"math"
	"testing"
	"time"

	"github.com/leandroluk/larago/core"
	"github.com/stretchr/testify/assert"
)

func TestAttributes_DirtyTracking(t *testing.T) {
	attrs := core.NewAttributes(nil)
	assert.False(t, attrs.IsDirty())

	attrs.Set("name", "Ann")
	assert.True(t, attrs.IsDirty())
	assert.True(t, attrs.IsDirty("name"))
	assert.Equal(t, map[string]any{"name": "Ann"}, attrs.GetDirty())

	attrs.SyncOriginal()
	assert.False(t, attrs.IsDirty())
	assert.Empty(t, attrs.GetDirty())
	assert.Equal(t, "Ann", attrs.GetOriginal("name"))

	attrs.Set("name", "Ann")
	assert.False(t, attrs.IsDirty(), "same value is not a change")

	attrs.Set("name", "Bob")
	assert.True(t, attrs.IsDirty("name"))
	assert.False(t, attrs.IsDirty("email"))
	assert.Equal(t, "Ann", attrs.GetOriginal("name"))
	assert.Equal(t, "Bob", attrs.Get("name"))
}

func TestAttributes_UnknownFieldsReadNil(t *testing.T) {
	attrs := core.NewAttributes(nil)
	assert.Nil(t, attrs.Get("missing"))
	assert.False(t, attrs.Has("missing"))

	attrs.Set("nickname", nil)
	assert.True(t, attrs.Has("nickname"))
	assert.False(t, attrs.IsDirty("nickname"), "nil over nothing is not a change")
}

func TestAttributes_Mutators(t *testing.T) {
	attrs := core.NewAttributes(map[string]core.Mutator{"email": lower})

	attrs.Set("email", "ANN@X.COM")
	assert.Equal(t, "ann@x.com", attrs.Get("email"))

	attrs.SetRaw("email", "RAW@X.COM")
	assert.Equal(t, "RAW@X.COM", attrs.Get("email"))
}

func TestAttributes_AllIsACopy(t *testing.T) {
	attrs := core.NewAttributes(nil)
	attrs.Set("name", "Ann")
	all := attrs.All()
	all["name"] = "changed"
	assert.Equal(t, "Ann", attrs.Get("name"))
}

func TestValuesEqual(t *testing.T) {
	name := "Ann"
	var nilName *string
	utc := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"int and int64", 1, int64(1), true},
		{"int and float", 2, 2.0, true},
		{"number and string", 1, "1", false},
		{"nil and nil", nil, nil, true},
		{"nil and typed nil pointer", nil, nilName, true},
		{"pointer and value", &name, "Ann", true},
		{"nil and value", nil, "", false},
		{"same instant in two zones", utc, utc.In(time.FixedZone("X", 3600)), true},
		{"slices", []any{1, 2}, []any{1, 2}, true},
		{"large int64 neighbours", int64(1 << 53), int64(1<<53 + 1), false},
		{"large int64 and uint64", int64(1<<62 + 1), uint64(1<<62 + 1), true},
		{"max uint64 and minus one", uint64(math.MaxUint64), int64(-1), false},
		{"uint8 and int64", uint8(1), int64(1), true},
		{"int and fractional float", 1, 1.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.ValuesEqual(tt.a, tt.b))
		})
	}
}
