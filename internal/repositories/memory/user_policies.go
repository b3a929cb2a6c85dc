package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.UserPolicyRepository = (*UserPolicyRepository)(nil)

type UserPolicyRepository struct {
	s *Store
}

func (s *Store) UserPolicies() *UserPolicyRepository {
	return &UserPolicyRepository{s: s}
}

func (r *UserPolicyRepository) Create(ctx context.Context, policy *models.UserPolicy) error {
	return r.s.write(ctx, func() error {
		policy.ID = primitive.NewObjectID()
		policy.CreatedAt = now()
		policy.UpdatedAt = policy.CreatedAt
		r.s.policies[policy.ID] = *policy
		return nil
	})
}

func (r *UserPolicyRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.UserPolicy, error) {
	var (
		p  models.UserPolicy
		ok bool
	)
	r.s.read(func() { p, ok = r.s.policies[id] })
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r *UserPolicyRepository) find(keep func(*models.UserPolicy) bool) []*models.UserPolicy {
	var out []*models.UserPolicy
	r.s.read(func() { out = collect(r.s.policies, policyCreated, keep) })
	return out
}

func (r *UserPolicyRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.UserPolicy, error) {
	set := idSet(ids)
	return r.find(func(p *models.UserPolicy) bool { return set[p.ID] }), nil
}

func (r *UserPolicyRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.UserPolicy, error) {
	return r.find(func(p *models.UserPolicy) bool { return p.UserID == userID }), nil
}

func (r *UserPolicyRepository) FindAssigned(ctx context.Context, agentID primitive.ObjectID, productIDs []primitive.ObjectID) ([]*models.UserPolicy, error) {
	products := idSet(productIDs)
	return r.find(func(p *models.UserPolicy) bool {
		return assignedTo(p, agentID) || products[p.PolicyProductID]
	}), nil
}

func (r *UserPolicyRepository) FindAll(ctx context.Context) ([]*models.UserPolicy, error) {
	return r.find(nil), nil
}

func (r *UserPolicyRepository) CountByProduct(ctx context.Context, productID primitive.ObjectID, statuses []models.PolicyStatus) (int64, error) {
	matches := r.find(func(p *models.UserPolicy) bool {
		return p.PolicyProductID == productID && (len(statuses) == 0 || hasStatus(statuses, p.Status))
	})
	return int64(len(matches)), nil
}

func (r *UserPolicyRepository) CountByStatus(ctx context.Context, status models.PolicyStatus) (int64, error) {
	matches := r.find(func(p *models.UserPolicy) bool { return p.Status == status })
	return int64(len(matches)), nil
}

func (r *UserPolicyRepository) CountByAgent(ctx context.Context, agentID primitive.ObjectID, statuses []models.PolicyStatus) (int64, error) {
	matches := r.find(func(p *models.UserPolicy) bool {
		return assignedTo(p, agentID) && (len(statuses) == 0 || hasStatus(statuses, p.Status))
	})
	return int64(len(matches)), nil
}

func (r *UserPolicyRepository) MaxInstallmentsByProduct(ctx context.Context, productID primitive.ObjectID) (int, error) {
	highest := 0
	for _, p := range r.find(func(p *models.UserPolicy) bool { return p.PolicyProductID == productID }) {
		if p.InstallmentsPaid > highest {
			highest = p.InstallmentsPaid
		}
	}
	return highest, nil
}

func (r *UserPolicyRepository) ClearAgent(ctx context.Context, agentID primitive.ObjectID) (int64, error) {
	var n int64
	err := r.s.write(ctx, func() error {
		t := now()
		for id, p := range r.s.policies {
			if assignedTo(&p, agentID) {
				p.AssignedAgentID = nil
				p.UpdatedAt = t
				r.s.policies[id] = p
				n++
			}
		}
		return nil
	})
	return n, err
}

// update applies fn to the stored policy when cond holds, mirroring a filtered FindOneAndUpdate.
func (r *UserPolicyRepository) update(ctx context.Context, id primitive.ObjectID, cond func(*models.UserPolicy) bool, fn func(*models.UserPolicy)) (*models.UserPolicy, error) {
	var out models.UserPolicy
	err := r.s.write(ctx, func() error {
		p, ok := r.s.policies[id]
		if !ok || !cond(&p) {
			return repositories.ErrPreconditionFailed
		}
		fn(&p)
		p.UpdatedAt = now()
		r.s.policies[id] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *UserPolicyRepository) Transition(ctx context.Context, id primitive.ObjectID, from []models.PolicyStatus, d models.PolicyDecision) (*models.UserPolicy, error) {
	return r.update(ctx, id,
		func(p *models.UserPolicy) bool { return hasStatus(from, p.Status) },
		func(p *models.UserPolicy) {
			p.Status = d.Status
			if d.VerificationType != "" {
				p.VerificationType = d.VerificationType
			}
			if d.Term != nil {
				p.StartDate = d.Term.StartDate
				p.EndDate = d.Term.EndDate
			}
		})
}

func (r *UserPolicyRepository) ReserveInstallment(ctx context.Context, id primitive.ObjectID, termMonths int, amount decimal.Decimal) (*models.UserPolicy, error) {
	return r.update(ctx, id,
		func(p *models.UserPolicy) bool {
			return p.Status == models.PolicyApproved && p.InstallmentsPaid < termMonths
		},
		func(p *models.UserPolicy) {
			p.InstallmentsPaid++
			p.PremiumPaid = p.PremiumPaid.Add(amount)
		})
}

func (r *UserPolicyRepository) ReleaseInstallment(ctx context.Context, id primitive.ObjectID, amount decimal.Decimal) (*models.UserPolicy, error) {
	return r.update(ctx, id,
		func(p *models.UserPolicy) bool { return p.InstallmentsPaid > 0 },
		func(p *models.UserPolicy) {
			p.InstallmentsPaid--
			p.PremiumPaid = p.PremiumPaid.Sub(amount)
		})
}

func (r *UserPolicyRepository) ExpireEnded(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.s.write(ctx, func() error {
		t := now()
		for id, p := range r.s.policies {
			if p.Status == models.PolicyApproved && p.EndDate.Before(cutoff) {
				p.Status = models.PolicyExpired
				p.UpdatedAt = t
				r.s.policies[id] = p
				n++
			}
		}
		return nil
	})
	return n, err
}

func hasStatus(list []models.PolicyStatus, s models.PolicyStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func assignedTo(p *models.UserPolicy, agentID primitive.ObjectID) bool {
	return p.AssignedAgentID != nil && *p.AssignedAgentID == agentID
}

func policyCreated(p *models.UserPolicy) time.Time { return p.CreatedAt }
