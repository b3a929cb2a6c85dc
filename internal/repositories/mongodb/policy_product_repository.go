package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ repositories.PolicyProductRepository = (*PolicyProductRepository)(nil)

// PolicyProductRepository handles MongoDB operations for the product catalog
type PolicyProductRepository struct {
	collection *mongo.Collection
}

// NewPolicyProductRepository creates a new PolicyProductRepository
func NewPolicyProductRepository(db *mongo.Database) *PolicyProductRepository {
	return &PolicyProductRepository{collection: db.Collection("policyproducts")}
}

// Create inserts a new product; the unique code index rejects duplicates
func (r *PolicyProductRepository) Create(ctx context.Context, product *models.PolicyProduct) error {
	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now().UTC()
	product.UpdatedAt = product.CreatedAt
	_, err := r.collection.InsertOne(ctx, product)
	return mapErr(err)
}

func (r *PolicyProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PolicyProduct, error) {
	var product models.PolicyProduct
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, mapErr(err)
	}
	return &product, nil
}

func (r *PolicyProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.PolicyProduct, error) {
	if len(ids) == 0 {
		return []*models.PolicyProduct{}, nil
	}
	return findAll[models.PolicyProduct](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *PolicyProductRepository) FindByCode(ctx context.Context, code string) (*models.PolicyProduct, error) {
	var product models.PolicyProduct
	if err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&product); err != nil {
		return nil, mapErr(err)
	}
	return &product, nil
}

// FindByAgent lists products assigned to the agent
func (r *PolicyProductRepository) FindByAgent(ctx context.Context, agentID primitive.ObjectID) ([]*models.PolicyProduct, error) {
	return findAll[models.PolicyProduct](ctx, r.collection, bson.M{"assignedAgentId": agentID}, newestFirst())
}

func (r *PolicyProductRepository) FindAll(ctx context.Context) ([]*models.PolicyProduct, error) {
	return findAll[models.PolicyProduct](ctx, r.collection, bson.M{}, newestFirst())
}

// Update replaces the editable catalog fields of a product
func (r *PolicyProductRepository) Update(ctx context.Context, product *models.PolicyProduct) error {
	product.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"code":          product.Code,
			"title":         product.Title,
			"description":   product.Description,
			"premium":       product.Premium,
			"termMonths":    product.TermMonths,
			"minSumInsured": product.MinSumInsured,
			"maxSumInsured": product.MaxSumInsured,
			"updatedAt":     product.UpdatedAt,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// SetAgent assigns the agent, or clears the assignment when agentID is nil
func (r *PolicyProductRepository) SetAgent(ctx context.Context, id primitive.ObjectID, agentID *primitive.ObjectID, agentName *string) (*models.PolicyProduct, error) {
	update := bson.M{
		"$set": bson.M{
			"assignedAgentId":   agentID,
			"assignedAgentName": agentName,
			"updatedAt":         time.Now().UTC(),
		},
	}
	var product models.PolicyProduct
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter).Decode(&product); err != nil {
		return nil, mapErr(err)
	}
	return &product, nil
}

func (r *PolicyProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
