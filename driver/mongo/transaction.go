package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// mongoTransaction wraps a MongoDB session. Commit and Rollback end the
// session once the outcome is known.
type mongoTransaction struct {
	session mongo.Session
}

func (transaction *mongoTransaction) Commit(ctx context.Context) error {
	defer transaction.session.EndSession(ctx)
	return transaction.session.CommitTransaction(ctx)
}

func (transaction *mongoTransaction) Rollback(ctx context.Context) error {
	defer transaction.session.EndSession(ctx)
	return transaction.session.AbortTransaction(ctx)
}
