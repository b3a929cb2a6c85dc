package services

import (
	"testing"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRaiseClaimValidation(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.approvedPolicy(product)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	tomorrow := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")

	tests := []struct {
		name  string
		actor *models.Principal
		req   models.RaiseClaimRequest
		kind  apperr.Kind
	}{
		{"zero amount", f.customer, models.RaiseClaimRequest{UserPolicyID: up.ID, IncidentDate: yesterday, Description: "x"}, apperr.KindValidation},
		{"missing description", f.customer, models.RaiseClaimRequest{UserPolicyID: up.ID, IncidentDate: yesterday, AmountClaimed: decimal.NewFromInt(1)}, apperr.KindValidation},
		{"future incident", f.customer, models.RaiseClaimRequest{UserPolicyID: up.ID, IncidentDate: tomorrow, Description: "x", AmountClaimed: decimal.NewFromInt(1)}, apperr.KindValidation},
		{"missing subscription", f.customer, models.RaiseClaimRequest{UserPolicyID: primitive.NewObjectID(), IncidentDate: yesterday, Description: "x", AmountClaimed: decimal.NewFromInt(1)}, apperr.KindNotFound},
		{"not the owner", f.otherCustomer, models.RaiseClaimRequest{UserPolicyID: up.ID, IncidentDate: yesterday, Description: "x", AmountClaimed: decimal.NewFromInt(1)}, apperr.KindForbidden},
		{"agent cannot raise", f.agent, models.RaiseClaimRequest{UserPolicyID: up.ID, IncidentDate: yesterday, Description: "x", AmountClaimed: decimal.NewFromInt(1)}, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.claims.Raise(f.ctx, tt.actor, &req)
			assertKind(t, err, tt.kind)
		})
	}
}

func TestRaiseClaimRequiresApprovedSubscription(t *testing.T) {
	f := newFixture(t)
	pending := f.purchase(f.product("HEALTH1", 500, 12, nil), "")

	_, err := f.claims.Raise(f.ctx, f.customer, &models.RaiseClaimRequest{
		UserPolicyID:  pending.ID,
		IncidentDate:  time.Now().UTC().Format("2006-01-02"),
		Description:   "broken arm",
		AmountClaimed: decimal.NewFromInt(100),
	})
	assertKind(t, err, apperr.KindConflict)
}

func TestAgentApprovesClaim(t *testing.T) {
	f := newFixture(t)
	up := f.approvedPolicy(f.product("HEALTH1", 500, 12, f.agent))
	claim := f.raiseClaim(up)
	assert.Equal(t, models.ClaimPending, claim.Status)
	assert.Equal(t, models.VerificationNone, claim.VerificationType)

	res, err := f.claims.Decide(f.ctx, f.agent, &models.DecideClaimRequest{ClaimID: claim.ID, DecisionNotes: "verified"})
	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, res.Data.Status)
	assert.Equal(t, "verified", res.Data.DecisionNotes)
	assert.Equal(t, models.VerificationAgent, res.Data.VerificationType)
	require.NotNil(t, res.Data.DecidedByAgentID)
	assert.Equal(t, f.agent.ID, *res.Data.DecidedByAgentID)
	require.NotNil(t, res.Data.DecidedAt)
	require.NotNil(t, res.Data.DecidedBy)
	assert.Equal(t, "Ada Agent", res.Data.DecidedBy.Name)
	require.NotNil(t, res.Data.UserPolicy)
	assert.Equal(t, models.PolicyClaimed, res.Data.UserPolicy.Status)

	stored, err := f.repos.Policies.FindByID(f.ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyClaimed, stored.Status)

	_, err = f.claims.Decide(f.ctx, f.agent, &models.DecideClaimRequest{ClaimID: claim.ID, Status: models.ClaimRejected})
	assertKind(t, err, apperr.KindConflict)

	entries, err := f.audit.Recent(f.ctx, f.admin, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditClaimApproved, entries[0].Action)
}

func TestRejectedClaimLeavesSubscription(t *testing.T) {
	f := newFixture(t)
	up := f.approvedPolicy(f.product("HEALTH1", 500, 12, f.agent))
	claim := f.raiseClaim(up)

	res, err := f.claims.Decide(f.ctx, f.admin, &models.DecideClaimRequest{ClaimID: claim.ID, Status: models.ClaimRejected})
	require.NoError(t, err)
	assert.Equal(t, models.ClaimRejected, res.Data.Status)
	assert.Equal(t, models.VerificationAdmin, res.Data.VerificationType)
	assert.Equal(t, f.admin.ID, *res.Data.DecidedByAgentID)

	stored, err := f.repos.Policies.FindByID(f.ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyApproved, stored.Status)
}

func TestSecondApprovedClaimKeepsClaimed(t *testing.T) {
	f := newFixture(t)
	up := f.approvedPolicy(f.product("HEALTH1", 500, 12, f.agent))
	first := f.raiseClaim(up)
	second := f.raiseClaim(up)

	_, err := f.claims.Decide(f.ctx, f.agent, &models.DecideClaimRequest{ClaimID: first.ID})
	require.NoError(t, err)
	res, err := f.claims.Decide(f.ctx, f.agent, &models.DecideClaimRequest{ClaimID: second.ID})
	require.NoError(t, err)
	assert.Equal(t, models.PolicyClaimed, res.Data.UserPolicy.Status)
}

func TestDecideClaimAuthorization(t *testing.T) {
	f := newFixture(t)
	up := f.approvedPolicy(f.product("HEALTH1", 500, 12, f.agent))
	claim := f.raiseClaim(up)

	_, err := f.claims.Decide(f.ctx, f.otherAgent, &models.DecideClaimRequest{ClaimID: claim.ID})
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.claims.Decide(f.ctx, f.customer, &models.DecideClaimRequest{ClaimID: claim.ID})
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.claims.Decide(f.ctx, f.admin, &models.DecideClaimRequest{ClaimID: claim.ID, Status: models.ClaimPending})
	assertKind(t, err, apperr.KindValidation)
	_, err = f.claims.Decide(f.ctx, f.admin, &models.DecideClaimRequest{ClaimID: primitive.NewObjectID()})
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.claims.Decide(f.ctx, f.admin, &models.DecideClaimRequest{ClaimID: claim.ID})
	require.NoError(t, err)
}

func TestApproveClaimRollsBackWhenSubscriptionCancelled(t *testing.T) {
	f := newFixture(t)
	up := f.approvedPolicy(f.product("HEALTH1", 500, 12, f.agent))
	claim := f.raiseClaim(up)
	_, err := f.subs.Cancel(f.ctx, f.customer, up.ID)
	require.NoError(t, err)

	_, err = f.claims.Decide(f.ctx, f.agent, &models.DecideClaimRequest{ClaimID: claim.ID})
	assertKind(t, err, apperr.KindConflict)

	stored, err := f.repos.Claims.FindByID(f.ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPending, stored.Status)
	assert.Nil(t, stored.DecidedByAgentID)
}

func TestUpdateClaim(t *testing.T) {
	f := newFixture(t)
	up := f.approvedPolicy(f.product("HEALTH1", 500, 12, f.agent))
	claim := f.raiseClaim(up)

	description := "water damage in kitchen"
	amount := decimal.NewFromInt(3000)
	res, err := f.claims.Update(f.ctx, f.customer, claim.ID, &models.UpdateClaimRequest{Description: &description, AmountClaimed: &amount})
	require.NoError(t, err)
	assert.Equal(t, description, res.Data.Description)
	assert.True(t, res.Data.AmountClaimed.Equal(amount))
	assert.Equal(t, models.ClaimPending, res.Data.Status)

	notes := "looks fine"
	_, err = f.claims.Update(f.ctx, f.customer, claim.ID, &models.UpdateClaimRequest{DecisionNotes: &notes})
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.claims.Update(f.ctx, f.otherCustomer, claim.ID, &models.UpdateClaimRequest{Description: &description})
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.claims.Update(f.ctx, f.customer, claim.ID, &models.UpdateClaimRequest{})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.claims.Decide(f.ctx, f.agent, &models.DecideClaimRequest{ClaimID: claim.ID, Status: models.ClaimRejected})
	require.NoError(t, err)

	_, err = f.claims.Update(f.ctx, f.customer, claim.ID, &models.UpdateClaimRequest{Description: &description})
	assertKind(t, err, apperr.KindConflict)

	res, err = f.claims.Update(f.ctx, f.agent, claim.ID, &models.UpdateClaimRequest{DecisionNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, res.Data.DecisionNotes)
	assert.Equal(t, models.ClaimRejected, res.Data.Status)
}

func TestClaimListings(t *testing.T) {
	f := newFixture(t)
	up := f.approvedPolicy(f.product("HEALTH1", 500, 12, f.agent))
	claim := f.raiseClaim(up)

	mine, err := f.claims.ListMine(f.ctx, f.customer)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, claim.ID, mine[0].ID)

	assigned, err := f.claims.ListAssigned(f.ctx, f.agent)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	none, err := f.claims.ListAssigned(f.ctx, f.otherAgent)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := f.claims.ListAll(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.claims.Get(f.ctx, f.otherAgent, claim.ID)
	assertKind(t, err, apperr.KindForbidden)
	got, err := f.claims.Get(f.ctx, f.agent, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, up.ID, got.UserPolicy.ID)
}
