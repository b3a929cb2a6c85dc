package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.PolicyProductRepository = (*PolicyProductRepository)(nil)

type PolicyProductRepository struct {
	s *Store
}

func (s *Store) Products() *PolicyProductRepository {
	return &PolicyProductRepository{s: s}
}

func (r *PolicyProductRepository) codeTaken(code string, except primitive.ObjectID) bool {
	for id, p := range r.s.products {
		if p.Code == code && id != except {
			return true
		}
	}
	return false
}

func (r *PolicyProductRepository) Create(ctx context.Context, product *models.PolicyProduct) error {
	return r.s.write(ctx, func() error {
		if r.codeTaken(product.Code, primitive.NilObjectID) {
			return repositories.ErrDuplicateKey
		}
		product.ID = primitive.NewObjectID()
		product.CreatedAt = now()
		product.UpdatedAt = product.CreatedAt
		r.s.products[product.ID] = *product
		return nil
	})
}

func (r *PolicyProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PolicyProduct, error) {
	var (
		p  models.PolicyProduct
		ok bool
	)
	r.s.read(func() { p, ok = r.s.products[id] })
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r *PolicyProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.PolicyProduct, error) {
	set := idSet(ids)
	var out []*models.PolicyProduct
	r.s.read(func() {
		out = collect(r.s.products, productCreated, func(p *models.PolicyProduct) bool { return set[p.ID] })
	})
	return out, nil
}

func (r *PolicyProductRepository) FindByCode(ctx context.Context, code string) (*models.PolicyProduct, error) {
	var found *models.PolicyProduct
	r.s.read(func() {
		for _, p := range r.s.products {
			if p.Code == code {
				p := p
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

func (r *PolicyProductRepository) FindByAgent(ctx context.Context, agentID primitive.ObjectID) ([]*models.PolicyProduct, error) {
	var out []*models.PolicyProduct
	r.s.read(func() {
		out = collect(r.s.products, productCreated, func(p *models.PolicyProduct) bool {
			return p.AssignedAgentID != nil && *p.AssignedAgentID == agentID
		})
	})
	return out, nil
}

func (r *PolicyProductRepository) FindAll(ctx context.Context) ([]*models.PolicyProduct, error) {
	var out []*models.PolicyProduct
	r.s.read(func() { out = collect(r.s.products, productCreated, nil) })
	return out, nil
}

func (r *PolicyProductRepository) Update(ctx context.Context, product *models.PolicyProduct) error {
	return r.s.write(ctx, func() error {
		current, ok := r.s.products[product.ID]
		if !ok {
			return repositories.ErrNotFound
		}
		if r.codeTaken(product.Code, product.ID) {
			return repositories.ErrDuplicateKey
		}
		current.Code = product.Code
		current.Title = product.Title
		current.Description = product.Description
		current.Premium = product.Premium
		current.TermMonths = product.TermMonths
		current.MinSumInsured = product.MinSumInsured
		current.MaxSumInsured = product.MaxSumInsured
		current.UpdatedAt = now()
		product.UpdatedAt = current.UpdatedAt
		r.s.products[product.ID] = current
		return nil
	})
}

func (r *PolicyProductRepository) SetAgent(ctx context.Context, id primitive.ObjectID, agentID *primitive.ObjectID, agentName *string) (*models.PolicyProduct, error) {
	var out models.PolicyProduct
	err := r.s.write(ctx, func() error {
		p, ok := r.s.products[id]
		if !ok {
			return repositories.ErrNotFound
		}
		p.AssignedAgentID = agentID
		p.AssignedAgentName = agentName
		p.UpdatedAt = now()
		r.s.products[id] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PolicyProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.products[id]; !ok {
			return repositories.ErrNotFound
		}
		delete(r.s.products, id)
		return nil
	})
}

func productCreated(p *models.PolicyProduct) time.Time { return p.CreatedAt }
