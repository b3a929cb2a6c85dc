package mongodb

import (
	"context"
	"fmt"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.CounterRepository = (*CounterRepository)(nil)

// CounterRepository stores named sequences, one document per name
type CounterRepository struct {
	collection *mongo.Collection
}

func NewCounterRepository(db *mongo.Database) *CounterRepository {
	return &CounterRepository{collection: db.Collection("counters")}
}

// Next increments the sequence, creating it on first use.
func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter models.Counter
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to advance counter %s: %w", name, err)
	}
	return counter.Seq, nil
}
