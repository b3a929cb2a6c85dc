package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.PaymentRepository = (*PaymentRepository)(nil)

type PaymentRepository struct {
	s *Store
}

func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{s: s}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.s.write(ctx, func() error {
		for _, p := range r.s.payments {
			if p.Reference == payment.Reference {
				return repositories.ErrDuplicateKey
			}
		}
		payment.ID = primitive.NewObjectID()
		payment.CreatedAt = now()
		r.s.payments[payment.ID] = *payment
		return nil
	})
}

func (r *PaymentRepository) find(keep func(*models.Payment) bool) []*models.Payment {
	var out []*models.Payment
	r.s.read(func() { out = collect(r.s.payments, paymentCreated, keep) })
	return out
}

func (r *PaymentRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Payment, error) {
	return r.find(func(p *models.Payment) bool { return p.UserID == userID }), nil
}

func (r *PaymentRepository) FindByUserPolicies(ctx context.Context, ids []primitive.ObjectID) ([]*models.Payment, error) {
	set := idSet(ids)
	return r.find(func(p *models.Payment) bool { return set[p.UserPolicyID] }), nil
}

func (r *PaymentRepository) FindAll(ctx context.Context) ([]*models.Payment, error) {
	return r.find(nil), nil
}

func (r *PaymentRepository) CountByUserPolicy(ctx context.Context, userPolicyID primitive.ObjectID) (int64, error) {
	return int64(len(r.find(func(p *models.Payment) bool { return p.UserPolicyID == userPolicyID }))), nil
}

func (r *PaymentRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	total := decimal.Zero
	var n int64
	r.s.read(func() {
		for _, p := range r.s.payments {
			total = total.Add(p.Amount)
			n++
		}
	})
	return n, total, nil
}

func paymentCreated(p *models.Payment) time.Time { return p.CreatedAt }
