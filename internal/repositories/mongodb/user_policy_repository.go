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

var _ repositories.UserPolicyRepository = (*UserPolicyRepository)(nil)

// UserPolicyRepository handles MongoDB operations for subscriptions
type UserPolicyRepository struct {
	collection *mongo.Collection
}

// NewUserPolicyRepository creates a new UserPolicyRepository
func NewUserPolicyRepository(db *mongo.Database) *UserPolicyRepository {
	return &UserPolicyRepository{collection: db.Collection("userpolicies")}
}

func (r *UserPolicyRepository) Create(ctx context.Context, policy *models.UserPolicy) error {
	policy.ID = primitive.NewObjectID()
	policy.CreatedAt = time.Now().UTC()
	policy.UpdatedAt = policy.CreatedAt
	_, err := r.collection.InsertOne(ctx, policy)
	return mapErr(err)
}

func (r *UserPolicyRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.UserPolicy, error) {
	var policy models.UserPolicy
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&policy); err != nil {
		return nil, mapErr(err)
	}
	return &policy, nil
}

func (r *UserPolicyRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.UserPolicy, error) {
	if len(ids) == 0 {
		return []*models.UserPolicy{}, nil
	}
	return findAll[models.UserPolicy](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *UserPolicyRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.UserPolicy, error) {
	return findAll[models.UserPolicy](ctx, r.collection, bson.M{"userId": userID}, newestFirst())
}

func (r *UserPolicyRepository) FindAssigned(ctx context.Context, agentID primitive.ObjectID, productIDs []primitive.ObjectID) ([]*models.UserPolicy, error) {
	or := bson.A{bson.M{"assignedAgentId": agentID}}
	if len(productIDs) > 0 {
		or = append(or, bson.M{"policyProductId": bson.M{"$in": productIDs}})
	}
	return findAll[models.UserPolicy](ctx, r.collection, bson.M{"$or": or}, newestFirst())
}

func (r *UserPolicyRepository) FindAll(ctx context.Context) ([]*models.UserPolicy, error) {
	return findAll[models.UserPolicy](ctx, r.collection, bson.M{}, newestFirst())
}

// CountByProduct counts subscriptions of a product in any of the given statuses
func (r *UserPolicyRepository) CountByProduct(ctx context.Context, productID primitive.ObjectID, statuses []models.PolicyStatus) (int64, error) {
	filter := bson.M{"policyProductId": productID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.collection.CountDocuments(ctx, filter)
}

func (r *UserPolicyRepository) CountByStatus(ctx context.Context, status models.PolicyStatus) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"status": status})
}

func (r *UserPolicyRepository) CountByAgent(ctx context.Context, agentID primitive.ObjectID, statuses []models.PolicyStatus) (int64, error) {
	filter := bson.M{"assignedAgentId": agentID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.collection.CountDocuments(ctx, filter)
}

func (r *UserPolicyRepository) MaxInstallmentsByProduct(ctx context.Context, productID primitive.ObjectID) (int, error) {
	cursor, err := r.collection.Aggregate(ctx, maxInstallmentsPipeline(productID))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Max int `bson:"max"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Max, nil
}

func (r *UserPolicyRepository) ClearAgent(ctx context.Context, agentID primitive.ObjectID) (int64, error) {
	update := bson.M{"$set": bson.M{"assignedAgentId": nil, "updatedAt": time.Now().UTC()}}
	res, err := r.collection.UpdateMany(ctx, bson.M{"assignedAgentId": agentID}, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *UserPolicyRepository) Transition(ctx context.Context, id primitive.ObjectID, from []models.PolicyStatus, d models.PolicyDecision) (*models.UserPolicy, error) {
	filter, update := transitionQuery(id, from, d, time.Now().UTC())
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *UserPolicyRepository) ReserveInstallment(ctx context.Context, id primitive.ObjectID, termMonths int, amount decimal.Decimal) (*models.UserPolicy, error) {
	filter, update := reserveInstallmentQuery(id, termMonths, amount, time.Now().UTC())
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *UserPolicyRepository) ReleaseInstallment(ctx context.Context, id primitive.ObjectID, amount decimal.Decimal) (*models.UserPolicy, error) {
	filter, update := releaseInstallmentQuery(id, amount, time.Now().UTC())
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *UserPolicyRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.UserPolicy, error) {
	var policy models.UserPolicy
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&policy); err != nil {
		return nil, mapConditional(err)
	}
	return &policy, nil
}

// transitionQuery matches the policy only while its status is one of from.
func transitionQuery(id primitive.ObjectID, from []models.PolicyStatus, d models.PolicyDecision, now time.Time) (filter, update bson.M) {
	set := bson.M{
		"status":    d.Status,
		"updatedAt": now,
	}
	if d.VerificationType != "" {
		set["verificationType"] = d.VerificationType
	}
	if d.Term != nil {
		set["startDate"] = d.Term.StartDate
		set["endDate"] = d.Term.EndDate
	}
	filter = bson.M{"_id": id, "status": bson.M{"$in": from}}
	return filter, bson.M{"$set": set}
}

func reserveInstallmentQuery(id primitive.ObjectID, termMonths int, amount decimal.Decimal, now time.Time) (filter, update bson.M) {
	filter = bson.M{
		"_id":              id,
		"status":           models.PolicyApproved,
		"installmentsPaid": bson.M{"$lt": termMonths},
	}
	update = bson.M{
		"$inc": bson.M{"installmentsPaid": 1, "premiumPaid": amount},
		"$set": bson.M{"updatedAt": now},
	}
	return filter, update
}

func releaseInstallmentQuery(id primitive.ObjectID, amount decimal.Decimal, now time.Time) (filter, update bson.M) {
	filter = bson.M{
		"_id":              id,
		"installmentsPaid": bson.M{"$gt": 0},
	}
	update = bson.M{
		"$inc": bson.M{"installmentsPaid": -1, "premiumPaid": amount.Neg()},
		"$set": bson.M{"updatedAt": now},
	}
	return filter, update
}

func maxInstallmentsPipeline(productID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "policyProductId", Value: productID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "max", Value: bson.D{{Key: "$max", Value: "$installmentsPaid"}}},
		}}},
	}
}

func (r *UserPolicyRepository) ExpireEnded(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":  models.PolicyApproved,
		"endDate": bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{"status": models.PolicyExpired, "updatedAt": time.Now().UTC()}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
