// Package mongo provides a MongoDB driver for the larago ORM. Tables map to
// collections and the model primary key is stored as the document _id.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/leandroluk/larago/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDriver struct {
	client          *mongo.Client
	defaultDatabase string
}

var _ core.Driver = (*MongoDriver)(nil)

// NewMongoDriver connects to uri. defaultDB is used for tables that do not
// name a database.
func NewMongoDriver(ctx context.Context, uri string, defaultDB string) (*MongoDriver, error) {
	opts := mopt.Client().ApplyURI(uri)
	opts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &MongoDriver{client: client, defaultDatabase: defaultDB}, nil
}

// Client exposes the underlying client.
func (driver *MongoDriver) Client() *mongo.Client { return driver.client }

func (driver *MongoDriver) coll(table *core.Table) (*mongo.Collection, error) {
	dbName := driver.defaultDatabase
	if table.Database != "" {
		dbName = table.Database
	}
	if dbName == "" {
		return nil, fmt.Errorf("mongo driver: no database for collection %q", table.Name)
	}
	if table.Name == "" {
		return nil, fmt.Errorf("mongo driver: empty collection name")
	}
	return driver.client.Database(dbName).Collection(table.Name), nil
}

// withSession binds the ongoing transaction of ctx, if any.
func (driver *MongoDriver) withSession(ctx context.Context) context.Context {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if mt, ok := tx.(*mongoTransaction); ok {
			return mongo.NewSessionContext(ctx, mt.session)
		}
	}
	return ctx
}

func (driver *MongoDriver) Connect(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *MongoDriver) Ping(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *MongoDriver) Close(ctx context.Context) error {
	return driver.client.Disconnect(ctx)
}

func (driver *MongoDriver) Transaction(ctx context.Context) (core.Transaction, error) {
	session, err := driver.client.StartSession()
	if err != nil {
		return nil, err
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &mongoTransaction{session: session}, nil
}

func (driver *MongoDriver) Select(ctx context.Context, table *core.Table, where *core.Where) ([]core.Row, error) {
	if where == nil {
		where = &core.Where{}
	}
	collection, err := driver.coll(table)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(table, where.Condition)
	if err != nil {
		return nil, err
	}
	findOpts := mopt.Find()
	if len(where.Sort) > 0 {
		findOpts.SetSort(sortDocument(table, where.Sort))
	}
	if where.Limit > 0 {
		findOpts.SetLimit(int64(where.Limit))
	}
	if where.Offset > 0 {
		findOpts.SetSkip(int64(where.Offset))
	}
	if len(table.Columns) > 0 {
		projection := bson.M{}
		for _, column := range table.Columns {
			projection[fieldFor(table, column)] = 1
		}
		findOpts.SetProjection(projection)
	}

	ctx = driver.withSession(ctx)
	cursor, err := collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var resultList []core.Row
	for cursor.Next(ctx) {
		var document bson.M
		if err := cursor.Decode(&document); err != nil {
			return nil, err
		}
		resultList = append(resultList, fromDocument(table, document))
	}
	return resultList, cursor.Err()
}

// Insert returns the ObjectID Mongo generated when row had no primary key.
func (driver *MongoDriver) Insert(ctx context.Context, table *core.Table, row core.Row) (any, error) {
	collection, err := driver.coll(table)
	if err != nil {
		return nil, err
	}
	result, err := collection.InsertOne(driver.withSession(ctx), toDocument(table, row))
	if err != nil {
		return nil, err
	}
	if _, ok := row[table.PrimaryKey]; ok {
		return nil, nil
	}
	return result.InsertedID, nil
}

func (driver *MongoDriver) Update(ctx context.Context, table *core.Table, condition *core.Condition, changes core.Changes) (int64, error) {
	collection, err := driver.coll(table)
	if err != nil {
		return 0, err
	}
	filter, err := buildFilter(table, condition)
	if err != nil {
		return 0, err
	}
	update := bson.M{"$set": toDocument(table, changes)}
	result, err := collection.UpdateMany(driver.withSession(ctx), filter, update)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

func (driver *MongoDriver) Delete(ctx context.Context, table *core.Table, condition *core.Condition) (int64, error) {
	collection, err := driver.coll(table)
	if err != nil {
		return 0, err
	}
	filter, err := buildFilter(table, condition)
	if err != nil {
		return 0, err
	}
	result, err := collection.DeleteMany(driver.withSession(ctx), filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (driver *MongoDriver) Count(ctx context.Context, table *core.Table, condition *core.Condition) (int64, error) {
	collection, err := driver.coll(table)
	if err != nil {
		return 0, err
	}
	filter, err := buildFilter(table, condition)
	if err != nil {
		return 0, err
	}
	return collection.CountDocuments(driver.withSession(ctx), filter)
}
