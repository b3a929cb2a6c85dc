package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.ClaimRepository = (*ClaimRepository)(nil)

type ClaimRepository struct {
	s *Store
}

func (s *Store) Claims() *ClaimRepository {
	return &ClaimRepository{s: s}
}

func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	return r.s.write(ctx, func() error {
		claim.ID = primitive.NewObjectID()
		claim.CreatedAt = now()
		claim.UpdatedAt = claim.CreatedAt
		r.s.claims[claim.ID] = *claim
		return nil
	})
}

func (r *ClaimRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error) {
	var (
		c  models.Claim
		ok bool
	)
	r.s.read(func() { c, ok = r.s.claims[id] })
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *ClaimRepository) find(keep func(*models.Claim) bool) []*models.Claim {
	var out []*models.Claim
	r.s.read(func() { out = collect(r.s.claims, claimCreated, keep) })
	return out
}

func (r *ClaimRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Claim, error) {
	return r.find(func(c *models.Claim) bool { return c.UserID == userID }), nil
}

func (r *ClaimRepository) FindByUserPolicies(ctx context.Context, ids []primitive.ObjectID) ([]*models.Claim, error) {
	set := idSet(ids)
	return r.find(func(c *models.Claim) bool { return set[c.UserPolicyID] }), nil
}

func (r *ClaimRepository) FindAll(ctx context.Context) ([]*models.Claim, error) {
	return r.find(nil), nil
}

func (r *ClaimRepository) CountByStatus(ctx context.Context, status models.ClaimStatus) (int64, error) {
	return int64(len(r.find(func(c *models.Claim) bool { return c.Status == status }))), nil
}

func (r *ClaimRepository) update(ctx context.Context, id primitive.ObjectID, cond func(*models.Claim) bool, fn func(*models.Claim)) (*models.Claim, error) {
	var out models.Claim
	err := r.s.write(ctx, func() error {
		c, ok := r.s.claims[id]
		if !ok || !cond(&c) {
			return repositories.ErrPreconditionFailed
		}
		fn(&c)
		c.UpdatedAt = now()
		r.s.claims[id] = c
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ClaimRepository) Decide(ctx context.Context, id primitive.ObjectID, d models.ClaimDecision) (*models.Claim, error) {
	return r.update(ctx, id,
		func(c *models.Claim) bool { return c.Status == models.ClaimPending },
		func(c *models.Claim) {
			decidedBy, decidedAt := d.DecidedBy, d.DecidedAt
			c.Status = d.Status
			if d.DecisionNotes != "" {
				c.DecisionNotes = d.DecisionNotes
			}
			c.DecidedByAgentID = &decidedBy
			c.DecidedAt = &decidedAt
			c.VerificationType = d.VerificationType
		})
}

func (r *ClaimRepository) Patch(ctx context.Context, id primitive.ObjectID, patch models.ClaimPatch, pendingOnly bool) (*models.Claim, error) {
	return r.update(ctx, id,
		func(c *models.Claim) bool { return !pendingOnly || c.Status == models.ClaimPending },
		func(c *models.Claim) {
			if patch.IncidentDate != nil {
				c.IncidentDate = *patch.IncidentDate
			}
			if patch.Description != nil {
				c.Description = *patch.Description
			}
			if patch.AmountClaimed != nil {
				c.AmountClaimed = *patch.AmountClaimed
			}
			if patch.DecisionNotes != nil {
				c.DecisionNotes = *patch.DecisionNotes
			}
		})
}

func claimCreated(c *models.Claim) time.Time { return c.CreatedAt }
