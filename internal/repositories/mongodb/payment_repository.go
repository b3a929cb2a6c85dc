package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository handles MongoDB operations for installment payments
type PaymentRepository struct {
	collection *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{collection: db.Collection("payments")}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, payment)
	return mapErr(err)
}

func (r *PaymentRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Payment, error) {
	return findAll[models.Payment](ctx, r.collection, bson.M{"userId": userID}, newestFirst())
}

func (r *PaymentRepository) FindByUserPolicies(ctx context.Context, ids []primitive.ObjectID) ([]*models.Payment, error) {
	if len(ids) == 0 {
		return []*models.Payment{}, nil
	}
	return findAll[models.Payment](ctx, r.collection, bson.M{"userPolicyId": bson.M{"$in": ids}}, newestFirst())
}

func (r *PaymentRepository) FindAll(ctx context.Context) ([]*models.Payment, error) {
	return findAll[models.Payment](ctx, r.collection, bson.M{}, newestFirst())
}

func (r *PaymentRepository) CountByUserPolicy(ctx context.Context, userPolicyID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userPolicyId": userPolicyID})
}

// Totals returns the number of payments and the sum of their amounts
func (r *PaymentRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, decimal.Zero, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count int64           `bson:"count"`
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, decimal.Zero, err
	}
	if len(rows) == 0 {
		return 0, decimal.Zero, nil
	}
	return rows[0].Count, rows[0].Total, nil
}
