package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/driver/memory"
	"github.com/leandroluk/larago/driver/mongo"
	"github.com/leandroluk/larago/driver/postgres"
	"github.com/leandroluk/larago/driver/sqlite"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Migrate brings the schema of driver up to date and returns the schema
// version. SQL drivers run the embedded goose migrations; Mongo gets its
// indexes and the memory driver needs nothing (both report version 0).
// databaseName is only used by Mongo.
func Migrate(ctx context.Context, driver core.Driver, databaseName string) (int64, error) {
	switch d := driver.(type) {
	case *memory.MemoryDriver:
		return 0, nil
	case *sqlite.SQLiteDriver:
		return migrateSQL(ctx, d.DB(), "sqlite", "migrations/sqlite")
	case *postgres.PostgresDriver:
		db := stdlib.OpenDBFromPool(d.Pool())
		defer db.Close()
		return migrateSQL(ctx, db, "postgres", "migrations/postgres")
	case *mongo.MongoDriver:
		return 0, migrateMongo(ctx, d, databaseName)
	}
	return 0, fmt.Errorf("migrate: unsupported driver %T", driver)
}

func migrateSQL(ctx context.Context, db *sql.DB, dialect, dir string) (int64, error) {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

func migrateMongo(ctx context.Context, driver *mongo.MongoDriver, databaseName string) error {
	if databaseName == "" {
		return fmt.Errorf("migrate: database.name is required for mongo")
	}
	db := driver.Client().Database(databaseName)
	indexes := map[string]mgo.IndexModel{
		"users": {Keys: bson.D{{Key: "email", Value: 1}}, Options: mopt.Index().SetUnique(true)},
		"posts": {Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	for collection, index := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateOne(ctx, index); err != nil {
			return fmt.Errorf("failed to create %s index: %w", collection, err)
		}
	}
	return nil
}
