package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	repos  Repositories
	locker *locks.LocalLocker

	audit    AuditService
	catalog  CatalogService
	subs     SubscriptionService
	payments PaymentService
	claims   ClaimService
	accounts AccountService
	reports  ReportService

	admin, agent, otherAgent, customer, otherCustomer *models.Principal
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(subject, role string) (string, error) {
	return "token:" + role + ":" + subject, nil
}

// directTx runs fn without a transaction, like a MongoDB deployment with transactions disabled.
type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// failingAuditRepo rejects every write.
type failingAuditRepo struct{}

func (failingAuditRepo) Create(context.Context, *models.AuditLog) error {
	return errors.New("audit store unavailable")
}

func (failingAuditRepo) FindRecent(context.Context, int) ([]*models.AuditLog, error) {
	return nil, errors.New("audit store unavailable")
}

func newFixture(t *testing.T, overrides ...func(*Repositories)) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := Repositories{
		Tx:        store,
		Accounts:  store.Accounts(),
		Counters:  store.Counters(),
		Products:  store.Products(),
		Policies:  store.UserPolicies(),
		Payments:  store.Payments(),
		Claims:    store.Claims(),
		AuditLogs: store.AuditLogs(),
	}
	for _, o := range overrides {
		o(&repos)
	}

	log := logger.Nop()
	locker := locks.NewLocalLocker(2 * time.Second)
	audit := NewAuditService(repos.AuditLogs, log)
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    store,
		repos:    repos,
		locker:   locker,
		audit:    audit,
		catalog:  NewCatalogService(repos, locker, audit, log),
		subs:     NewSubscriptionService(repos, locker, audit, log),
		payments: NewPaymentService(repos, locker, log),
		claims:   NewClaimService(repos, locker, audit, log),
		accounts: NewAccountService(repos, fakeIssuer{}, audit, log),
		reports:  NewReportService(repos),
	}
	f.admin = f.account(models.RoleAdmin, "Root Admin", "admin@example.com")
	f.agent = f.account(models.RoleAgent, "Ada Agent", "agent@example.com")
	f.otherAgent = f.account(models.RoleAgent, "Otto Agent", "other.agent@example.com")
	f.customer = f.account(models.RoleCustomer, "Cora Customer", "cora@example.com")
	f.otherCustomer = f.account(models.RoleCustomer, "Carl Customer", "carl@example.com")
	return f
}

// account stores an account directly, skipping password hashing.
func (f *fixture) account(role models.Role, name, email string) *models.Principal {
	f.t.Helper()
	repo, err := f.repos.Accounts.For(role)
	require.NoError(f.t, err)
	a := &models.Account{Name: name, Email: email, Role: role}
	require.NoError(f.t, repo.Create(f.ctx, a))
	return a.Principal()
}

func (f *fixture) product(code string, premium int64, term int, agent *models.Principal) *models.PolicyProduct {
	f.t.Helper()
	res, err := f.catalog.Create(f.ctx, f.admin, &models.CreateProductRequest{
		Code:          code,
		Title:         "Plan " + code,
		Premium:       decimal.NewFromInt(premium),
		TermMonths:    term,
		MinSumInsured: decimal.NewFromInt(1000),
	})
	require.NoError(f.t, err)
	if agent == nil {
		return res.Data
	}
	assigned, err := f.catalog.AssignAgent(f.ctx, f.admin, res.Data.ID, agent.ID)
	require.NoError(f.t, err)
	return assigned.Data
}

func (f *fixture) purchase(product *models.PolicyProduct, start string) *models.UserPolicyView {
	f.t.Helper()
	res, err := f.subs.Purchase(f.ctx, f.customer, &models.PurchaseRequest{PolicyProductID: product.ID, StartDate: start})
	require.NoError(f.t, err)
	return res.Data
}

func (f *fixture) approvedPolicy(product *models.PolicyProduct) *models.UserPolicyView {
	f.t.Helper()
	up := f.purchase(product, "")
	res, err := f.subs.Approve(f.ctx, f.admin, up.ID)
	require.NoError(f.t, err)
	return res.Data
}

func (f *fixture) raiseClaim(up *models.UserPolicyView) *models.ClaimView {
	f.t.Helper()
	res, err := f.claims.Raise(f.ctx, f.customer, &models.RaiseClaimRequest{
		UserPolicyID:  up.ID,
		IncidentDate:  time.Now().UTC().AddDate(0, 0, -2).Format("2006-01-02"),
		Description:   "water damage",
		AmountClaimed: decimal.NewFromInt(2500),
	})
	require.NoError(f.t, err)
	return res.Data
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
}
