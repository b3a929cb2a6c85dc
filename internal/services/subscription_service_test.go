package services

import (
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPurchaseComputesCoverage(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)

	up := f.purchase(product, "2024-01-01")
	assert.Equal(t, models.PolicyPending, up.Status)
	assert.Equal(t, models.VerificationNone, up.VerificationType)
	assert.True(t, up.PremiumPaid.IsZero())
	assert.Equal(t, "2024-01-01", up.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-12-31", up.EndDate.Format("2006-01-02"))
	require.NotNil(t, up.AssignedAgentID)
	assert.Equal(t, f.agent.ID, *up.AssignedAgentID)
	require.NotNil(t, up.Product)
	assert.Equal(t, "HEALTH1", up.Product.Code)
	require.NotNil(t, up.AssignedAgent)
	assert.Equal(t, "Ada Agent", up.AssignedAgent.Name)
}

func TestPurchaseValidation(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, nil)

	_, err := f.subs.Purchase(f.ctx, f.customer, &models.PurchaseRequest{PolicyProductID: primitive.NewObjectID()})
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.subs.Purchase(f.ctx, f.customer, &models.PurchaseRequest{PolicyProductID: product.ID, StartDate: "01/02/2024"})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.subs.Purchase(f.ctx, f.customer, &models.PurchaseRequest{
		PolicyProductID: product.ID,
		Nominee:         &models.Nominee{Name: "Sam", Relation: "Neighbour"},
	})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.subs.Purchase(f.ctx, f.agent, &models.PurchaseRequest{PolicyProductID: product.ID})
	assertKind(t, err, apperr.KindForbidden)

	res, err := f.subs.Purchase(f.ctx, f.customer, &models.PurchaseRequest{
		PolicyProductID: product.ID,
		Nominee:         &models.Nominee{Name: "Sam", Relation: "spouse"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Data.Nominee)
	assert.Equal(t, "Spouse", res.Data.Nominee.Relation)
}

func TestApproveAuthorization(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.purchase(product, "2024-01-01")

	_, err := f.subs.Approve(f.ctx, f.otherAgent, up.ID)
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.subs.Reject(f.ctx, f.otherAgent, up.ID)
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.subs.Approve(f.ctx, f.customer, up.ID)
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.subs.Approve(f.ctx, f.admin, primitive.NewObjectID())
	assertKind(t, err, apperr.KindNotFound)

	res, err := f.subs.Approve(f.ctx, f.agent, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyApproved, res.Data.Status)
	assert.Equal(t, models.VerificationAgent, res.Data.VerificationType)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "2024-01-01", res.Data.StartDate.Format("2006-01-02"))

	_, err = f.subs.Reject(f.ctx, f.admin, up.ID)
	assertKind(t, err, apperr.KindConflict)
}

func TestAdminCanDecideAnySubscription(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.purchase(product, "")

	res, err := f.subs.Reject(f.ctx, f.admin, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyRejected, res.Data.Status)
	assert.Equal(t, models.VerificationAdmin, res.Data.VerificationType)
}

func TestApprovePolicyRequestRestartsCoverage(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.purchase(product, "2020-03-15")

	res, err := f.subs.ApprovePolicyRequest(f.ctx, f.agent, up.ID)
	require.NoError(t, err)

	today := models.StartOfDay(time.Now())
	assert.True(t, res.Data.StartDate.Equal(today))
	assert.True(t, res.Data.EndDate.Equal(models.CoverageEnd(today, 12)))

	entries, err := f.audit.Recent(f.ctx, f.admin, 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, models.AuditPolicyRequestApproved, entries[0].Action)
	assert.Equal(t, f.customer.ID, entries[0].UserID)
	assert.Equal(t, f.agent.ID, entries[0].ActorID)
}

func TestRejectPolicyRequestAudits(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.purchase(product, "")

	res, err := f.subs.RejectPolicyRequest(f.ctx, f.agent, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyRejected, res.Data.Status)

	entries, err := f.audit.Recent(f.ctx, f.admin, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditPolicyRequestRejected, entries[0].Action)
}

func TestAuditFailureIsAWarning(t *testing.T) {
	f := newFixture(t, func(r *Repositories) { r.AuditLogs = failingAuditRepo{} })
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.purchase(product, "")

	res, err := f.subs.ApprovePolicyRequest(f.ctx, f.agent, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyApproved, res.Data.Status)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], models.AuditPolicyRequestApproved)

	stored, err := f.repos.Policies.FindByID(f.ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyApproved, stored.Status)
}

func TestConcurrentApproveOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.purchase(product, "")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	actors := []*models.Principal{f.agent, f.admin, f.agent, f.admin}
	for _, actor := range actors {
		wg.Add(1)
		go func(actor *models.Principal) {
			defer wg.Done()
			_, err := f.subs.Approve(f.ctx, actor, up.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			}
		}(actor)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, len(actors)-1, conflicts)
}

func TestTransitionGuardsAgainstStaleReads(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, nil)
	up := f.purchase(product, "")

	_, err := f.repos.Policies.Transition(f.ctx, up.ID, []models.PolicyStatus{models.PolicyPending},
		models.PolicyDecision{Status: models.PolicyRejected})
	require.NoError(t, err)
	_, err = f.repos.Policies.Transition(f.ctx, up.ID, []models.PolicyStatus{models.PolicyPending},
		models.PolicyDecision{Status: models.PolicyApproved})
	assert.ErrorIs(t, err, repositories.ErrPreconditionFailed)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, nil)

	pending := f.purchase(product, "")
	_, err := f.subs.Cancel(f.ctx, f.customer, pending.ID)
	assertKind(t, err, apperr.KindConflict)

	up := f.approvedPolicy(product)
	_, err = f.subs.Cancel(f.ctx, f.otherCustomer, up.ID)
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.subs.Cancel(f.ctx, f.admin, up.ID)
	assertKind(t, err, apperr.KindForbidden)

	res, err := f.subs.Cancel(f.ctx, f.customer, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyCancelled, res.Data.Status)

	_, err = f.subs.Cancel(f.ctx, f.customer, up.ID)
	assertKind(t, err, apperr.KindConflict)
}

func TestExpireDue(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, nil)

	old := f.purchase(product, "2020-01-01")
	_, err := f.subs.Approve(f.ctx, f.admin, old.ID)
	require.NoError(t, err)
	current := f.approvedPolicy(product)

	// 2020-12-31 is the last covered day
	n, err := f.subs.ExpireDue(f.ctx, time.Date(2020, 12, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.subs.ExpireDue(f.ctx, time.Date(2021, 1, 1, 0, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.subs.Get(f.ctx, f.customer, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyExpired, got.Status)

	n, err = f.subs.ExpireDue(f.ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err = f.subs.Get(f.ctx, f.customer, current.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyApproved, got.Status)
}

func TestSubscriptionListings(t *testing.T) {
	f := newFixture(t)
	direct := f.product("DIRECT", 100, 12, f.agent)
	later := f.product("LATER", 100, 12, nil)

	f.purchase(direct, "")
	f.purchase(later, "")
	_, err := f.catalog.AssignAgent(f.ctx, f.admin, later.ID, f.agent.ID)
	require.NoError(t, err)

	mine, err := f.subs.ListMine(f.ctx, f.customer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	assigned, err := f.subs.ListAssigned(f.ctx, f.agent)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	none, err := f.subs.ListAssigned(f.ctx, f.otherAgent)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.subs.ListAll(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.subs.ListAll(f.ctx, f.agent)
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.subs.Get(f.ctx, f.otherCustomer, mine[0].ID)
	assertKind(t, err, apperr.KindForbidden)
}

func TestTerminalSubscriptionsRejectTransitions(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)

	rejected := f.purchase(product, "")
	_, err := f.subs.Reject(f.ctx, f.agent, rejected.ID)
	require.NoError(t, err)
	_, err = f.subs.Cancel(f.ctx, f.customer, rejected.ID)
	assertKind(t, err, apperr.KindConflict)
	assert.Contains(t, err.Error(), "already Rejected")

	cancelled := f.approvedPolicy(product)
	_, err = f.subs.Cancel(f.ctx, f.customer, cancelled.ID)
	require.NoError(t, err)
	_, err = f.subs.Approve(f.ctx, f.agent, cancelled.ID)
	assertKind(t, err, apperr.KindConflict)
	assert.Contains(t, err.Error(), "already Cancelled")
	_, err = f.subs.Cancel(f.ctx, f.customer, cancelled.ID)
	assertKind(t, err, apperr.KindConflict)

	approved := f.approvedPolicy(product)
	_, err = f.subs.Reject(f.ctx, f.agent, approved.ID)
	assertKind(t, err, apperr.KindConflict)
	assert.Contains(t, err.Error(), "only Pending")
}
