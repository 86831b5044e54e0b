// Package database opens the configured storage driver and prepares its
// schema.
package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/driver/memory"
	"github.com/leandroluk/larago/driver/mongo"
	"github.com/leandroluk/larago/driver/postgres"
	"github.com/leandroluk/larago/driver/sqlite"
	"github.com/leandroluk/larago/internal/config"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Open creates and connects the driver named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Driver, error) {
	var (
		driver core.Driver
		err    error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		driver = memory.NewMemoryDriver()
	case config.DriverSQLite:
		driver, err = sqlite.NewSQLiteDriver(ctx, cfg.DSN)
	case config.DriverPostgres:
		driver, err = postgres.NewPostgresDriver(ctx, cfg.DSN)
	case config.DriverMongo:
		driver, err = mongo.NewMongoDriver(ctx, cfg.DSN, cfg.Name)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	if err := driver.Connect(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}
	return driver, nil
}

// ParseKey converts a primary key typed on the command line into the type
// the driver stores: ObjectIDs for Mongo hex ids, int64 for numeric ids,
// the raw string otherwise.
func ParseKey(driverName, raw string) any {
	if driverName == config.DriverMongo {
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			return id
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
