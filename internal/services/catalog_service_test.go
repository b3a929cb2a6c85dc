package services

import (
	"testing"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validProductRequest(code string) *models.CreateProductRequest {
	return &models.CreateProductRequest{
		Code:          code,
		Title:         "Family Health",
		Description:   "covers the whole family",
		Premium:       decimal.NewFromInt(500),
		TermMonths:    12,
		MinSumInsured: decimal.NewFromInt(10000),
	}
}

func TestCatalogCreateValidation(t *testing.T) {
	f := newFixture(t)
	lower := decimal.NewFromInt(5000)

	tests := []struct {
		name   string
		mutate func(*models.CreateProductRequest)
	}{
		{"code too short", func(r *models.CreateProductRequest) { r.Code = "H" }},
		{"code too long", func(r *models.CreateProductRequest) { r.Code = "HEALTH-PLAN-0123456789" }},
		{"title too short", func(r *models.CreateProductRequest) { r.Title = "Hi" }},
		{"zero premium", func(r *models.CreateProductRequest) { r.Premium = decimal.Zero }},
		{"term too long", func(r *models.CreateProductRequest) { r.TermMonths = 601 }},
		{"term zero", func(r *models.CreateProductRequest) { r.TermMonths = 0 }},
		{"negative min", func(r *models.CreateProductRequest) { r.MinSumInsured = decimal.NewFromInt(-1) }},
		{"max below min", func(r *models.CreateProductRequest) { r.MaxSumInsured = &lower }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validProductRequest("HEALTH1")
			tt.mutate(req)
			_, err := f.catalog.Create(f.ctx, f.admin, req)
			assertKind(t, err, apperr.KindValidation)
		})
	}
}

func TestCatalogDuplicateCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Create(f.ctx, f.admin, validProductRequest("HEALTH1"))
	require.NoError(t, err)

	_, err = f.catalog.Create(f.ctx, f.admin, validProductRequest("HEALTH1"))
	assertKind(t, err, apperr.KindConflict)
}

func TestCatalogCreateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Create(f.ctx, f.agent, validProductRequest("HEALTH1"))
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.catalog.Create(f.ctx, nil, validProductRequest("HEALTH1"))
	assertKind(t, err, apperr.KindUnauthenticated)
}

func TestCatalogUpdate(t *testing.T) {
	f := newFixture(t)
	first := f.product("LIFE1", 100, 12, nil)
	second := f.product("LIFE2", 100, 12, nil)

	_, err := f.catalog.Update(f.ctx, f.admin, first.ID, &models.UpdateProductRequest{})
	assertKind(t, err, apperr.KindValidation)

	taken := second.Code
	_, err = f.catalog.Update(f.ctx, f.admin, first.ID, &models.UpdateProductRequest{Code: &taken})
	assertKind(t, err, apperr.KindConflict)

	_, err = f.catalog.Update(f.ctx, f.admin, primitive.NewObjectID(), &models.UpdateProductRequest{Code: &taken})
	assertKind(t, err, apperr.KindNotFound)

	lower := decimal.NewFromInt(10)
	_, err = f.catalog.Update(f.ctx, f.admin, first.ID, &models.UpdateProductRequest{MaxSumInsured: &lower})
	assertKind(t, err, apperr.KindValidation)

	title := "Life Plus"
	term := 24
	res, err := f.catalog.Update(f.ctx, f.admin, first.ID, &models.UpdateProductRequest{Title: &title, TermMonths: &term})
	require.NoError(t, err)
	assert.Equal(t, "Life Plus", res.Data.Title)
	assert.Equal(t, 24, res.Data.TermMonths)
	assert.Equal(t, "LIFE1", res.Data.Code)
}

func TestCatalogAssignAndUnassign(t *testing.T) {
	f := newFixture(t)
	product := f.product("AUTO1", 80, 6, nil)

	_, err := f.catalog.AssignAgent(f.ctx, f.admin, product.ID, primitive.NewObjectID())
	assertKind(t, err, apperr.KindNotFound)
	_, err = f.catalog.AssignAgent(f.ctx, f.admin, primitive.NewObjectID(), f.agent.ID)
	assertKind(t, err, apperr.KindNotFound)

	res, err := f.catalog.AssignAgent(f.ctx, f.admin, product.ID, f.agent.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Data.AssignedAgentID)
	assert.Equal(t, f.agent.ID, *res.Data.AssignedAgentID)
	assert.Equal(t, "Ada Agent", *res.Data.AssignedAgentName)

	assigned, err := f.catalog.ListAssigned(f.ctx, f.agent)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	res, err = f.catalog.UnassignAgent(f.ctx, f.admin, product.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Data.AssignedAgentID)
	assert.Nil(t, res.Data.AssignedAgentName)
}

func TestCatalogDeleteBlockedByActiveSubscriptions(t *testing.T) {
	f := newFixture(t)
	product := f.product("HOME1", 50, 12, nil)
	up := f.purchase(product, "")

	_, err := f.catalog.Delete(f.ctx, f.admin, product.ID)
	assertKind(t, err, apperr.KindConflict)

	_, err = f.subs.Reject(f.ctx, f.admin, up.ID)
	require.NoError(t, err)

	_, err = f.catalog.Delete(f.ctx, f.admin, product.ID)
	require.NoError(t, err)

	_, err = f.catalog.Get(f.ctx, product.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestCatalogUpdateKeepsPaidInstallmentsWithinTerm(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, nil)
	up := f.approvedPolicy(product)
	for i := 0; i < 6; i++ {
		_, err := f.payments.Pay(f.ctx, f.customer, &models.PayRequest{UserPolicyID: up.ID})
		require.NoError(t, err)
	}

	short := 3
	_, err := f.catalog.Update(f.ctx, f.admin, product.ID, &models.UpdateProductRequest{TermMonths: &short})
	assertKind(t, err, apperr.KindConflict)
	stored, err := f.catalog.Get(f.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, stored.TermMonths)

	premium := decimal.NewFromInt(650)
	_, err = f.catalog.Update(f.ctx, f.admin, product.ID, &models.UpdateProductRequest{Premium: &premium})
	assertKind(t, err, apperr.KindConflict)

	paid := 6
	res, err := f.catalog.Update(f.ctx, f.admin, product.ID, &models.UpdateProductRequest{TermMonths: &paid})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Data.TermMonths)

	_, err = f.payments.Pay(f.ctx, f.customer, &models.PayRequest{UserPolicyID: up.ID})
	assertKind(t, err, apperr.KindConflict)
	policy, err := f.repos.Policies.FindByID(f.ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, policy.InstallmentsPaid)
	assert.True(t, policy.PremiumPaid.Equal(decimal.NewFromInt(3000)), policy.PremiumPaid.String())
}

func TestCatalogRepriceBeforeFirstInstallment(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, nil)
	f.approvedPolicy(product)

	premium := decimal.NewFromInt(650)
	short := 3
	res, err := f.catalog.Update(f.ctx, f.admin, product.ID, &models.UpdateProductRequest{Premium: &premium, TermMonths: &short})
	require.NoError(t, err)
	assert.True(t, res.Data.Premium.Equal(premium))
	assert.Equal(t, 3, res.Data.TermMonths)
}

func TestCatalogDeleteWaitsForInFlightPurchase(t *testing.T) {
	f := newFixture(t)
	product := f.product("HOME1", 50, 12, nil)

	// a purchase holding the product lock
	release, err := f.locker.Acquire(f.ctx, locks.Key(policyProductLock, product.ID.Hex()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.catalog.Delete(f.ctx, f.admin, product.ID)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("delete finished while the product was locked: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	require.NoError(t, f.repos.Policies.Create(f.ctx, &models.UserPolicy{
		UserID:          f.customer.ID,
		PolicyProductID: product.ID,
		Status:          models.PolicyPending,
	}))
	release()

	select {
	case err := <-done:
		assertKind(t, err, apperr.KindConflict)
	case <-time.After(time.Second):
		t.Fatal("delete did not resume after the lock was released")
	}
	_, err = f.catalog.Get(f.ctx, product.ID)
	require.NoError(t, err)
}
