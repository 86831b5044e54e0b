package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/driver/memory"
	"github.com/leandroluk/larago/driver/sqlite"
	"github.com/leandroluk/larago/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	driver, err := Open(ctx, config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.MemoryDriver{}, driver)

	_, err = Open(ctx, config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "larago.db")

	driver, err := Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, DSN: path})
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close(ctx) })
	require.IsType(t, &sqlite.SQLiteDriver{}, driver)

	version, err := Migrate(ctx, driver, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	again, err := Migrate(ctx, driver, "")
	require.NoError(t, err)
	assert.Equal(t, version, again, "migrating twice is a no-op")

	users := core.NewModel("users", driver, core.SoftDeletes(), core.Timestamps())
	record, err := users.Create(ctx, map[string]any{"name": "Ann", "email": "ann@x.com", "password": "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.Key())

	require.NoError(t, record.Delete(ctx))
	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	trashed, err := users.OnlyTrashed().Get(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, "ann@x.com", trashed[0].Get("email"))
}

func TestMigrate_Memory(t *testing.T) {
	version, err := Migrate(context.Background(), memory.NewMemoryDriver(), "")
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestParseKey(t *testing.T) {
	hex := "65a1b2c3d4e5f60718293a4b"
	oid, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)

	tests := []struct {
		name   string
		driver string
		raw    string
		want   any
	}{
		{"numeric", config.DriverSQLite, "42", int64(42)},
		{"uuid", config.DriverPostgres, "2f1d7c1e-8a3b-4c55-9f0e-1b2c3d4e5f60", "2f1d7c1e-8a3b-4c55-9f0e-1b2c3d4e5f60"},
		{"object id", config.DriverMongo, hex, oid},
		{"object id outside mongo", config.DriverMemory, hex, hex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKey(tt.driver, tt.raw))
		})
	}
}
