package mongodb

import (
	"context"
	"errors"

	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mapErr converts driver errors to repository sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrDuplicateKey
	}
	return err
}

// mapConditional is mapErr for conditional updates, where no match means the precondition failed.
func mapConditional(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repositories.ErrPreconditionFailed
	}
	return mapErr(err)
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// findAll decodes every document matching filter into a non-nil slice.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []*T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// newestFirst sorts by createdAt descending
func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}
