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

var _ repositories.ClaimRepository = (*ClaimRepository)(nil)

// ClaimRepository handles MongoDB operations for claims
type ClaimRepository struct {
	collection *mongo.Collection
}

func NewClaimRepository(db *mongo.Database) *ClaimRepository {
	return &ClaimRepository{collection: db.Collection("claims")}
}

func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	claim.ID = primitive.NewObjectID()
	claim.CreatedAt = time.Now().UTC()
	claim.UpdatedAt = claim.CreatedAt
	_, err := r.collection.InsertOne(ctx, claim)
	return mapErr(err)
}

func (r *ClaimRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error) {
	var claim models.Claim
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&claim); err != nil {
		return nil, mapErr(err)
	}
	return &claim, nil
}

func (r *ClaimRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Claim, error) {
	return findAll[models.Claim](ctx, r.collection, bson.M{"userId": userID}, newestFirst())
}

func (r *ClaimRepository) FindByUserPolicies(ctx context.Context, ids []primitive.ObjectID) ([]*models.Claim, error) {
	if len(ids) == 0 {
		return []*models.Claim{}, nil
	}
	return findAll[models.Claim](ctx, r.collection, bson.M{"userPolicyId": bson.M{"$in": ids}}, newestFirst())
}

func (r *ClaimRepository) FindAll(ctx context.Context) ([]*models.Claim, error) {
	return findAll[models.Claim](ctx, r.collection, bson.M{}, newestFirst())
}

func (r *ClaimRepository) CountByStatus(ctx context.Context, status models.ClaimStatus) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"status": status})
}

func (r *ClaimRepository) Decide(ctx context.Context, id primitive.ObjectID, d models.ClaimDecision) (*models.Claim, error) {
	set := bson.M{
		"status":           d.Status,
		"decidedByAgentId": d.DecidedBy,
		"decidedAt":        d.DecidedAt,
		"verificationType": d.VerificationType,
		"updatedAt":        time.Now().UTC(),
	}
	if d.DecisionNotes != "" {
		set["decisionNotes"] = d.DecisionNotes
	}
	filter := bson.M{"_id": id, "status": models.ClaimPending}
	var claim models.Claim
	if err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, returnAfter).Decode(&claim); err != nil {
		return nil, mapConditional(err)
	}
	return &claim, nil
}

func (r *ClaimRepository) Patch(ctx context.Context, id primitive.ObjectID, patch models.ClaimPatch, pendingOnly bool) (*models.Claim, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.IncidentDate != nil {
		set["incidentDate"] = *patch.IncidentDate
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.AmountClaimed != nil {
		set["amountClaimed"] = *patch.AmountClaimed
	}
	if patch.DecisionNotes != nil {
		set["decisionNotes"] = *patch.DecisionNotes
	}

	filter := bson.M{"_id": id}
	if pendingOnly {
		filter["status"] = models.ClaimPending
	}
	var claim models.Claim
	if err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, returnAfter).Decode(&claim); err != nil {
		return nil, mapConditional(err)
	}
	return &claim, nil
}
