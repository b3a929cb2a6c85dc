package services

import (
	"testing"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	account, err := f.accounts.Register(f.ctx, &models.RegisterRequest{Name: "Nia Newcomer", Email: "Nia@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "nia@example.com", account.Email)
	assert.Equal(t, models.RoleCustomer, account.Role)
	assert.NotEqual(t, "secret1", account.Password)

	login, err := f.accounts.Login(f.ctx, models.RoleCustomer, &models.LoginRequest{Email: "nia@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "token:Customer:"+account.ID.Hex(), login.Token)

	_, err = f.accounts.Login(f.ctx, models.RoleCustomer, &models.LoginRequest{Email: "nia@example.com", Password: "wrong-one"})
	assertKind(t, err, apperr.KindUnauthenticated)
	_, err = f.accounts.Login(f.ctx, models.RoleAgent, &models.LoginRequest{Email: "nia@example.com", Password: "secret1"})
	assertKind(t, err, apperr.KindUnauthenticated)

	_, err = f.accounts.Register(f.ctx, &models.RegisterRequest{Name: "Nia Again", Email: "nia@example.com", Password: "secret1"})
	assertKind(t, err, apperr.KindConflict)
	// emails are unique across roles
	_, err = f.accounts.Register(f.ctx, &models.RegisterRequest{Name: "Not Ada", Email: "agent@example.com", Password: "secret1"})
	assertKind(t, err, apperr.KindConflict)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	tests := []models.RegisterRequest{
		{Name: "Al", Email: "al@example.com", Password: "secret1"},
		{Name: "Valid Name", Email: "not-an-email", Password: "secret1"},
		{Name: "Valid Name", Email: "short@example.com", Password: "123"},
	}
	for _, req := range tests {
		req := req
		_, err := f.accounts.Register(f.ctx, &req)
		assertKind(t, err, apperr.KindValidation)
	}
}

func TestCreateAgentAllocatesCodes(t *testing.T) {
	f := newFixture(t)

	first, err := f.accounts.CreateAgent(f.ctx, f.admin, &models.CreateAgentRequest{Name: "Agent One", Email: "one@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "AGT0001", first.Data.AgentCode)

	second, err := f.accounts.CreateAgent(f.ctx, f.admin, &models.CreateAgentRequest{Name: "Agent Two", Email: "two@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "AGT0002", second.Data.AgentCode)

	_, err = f.accounts.CreateAgent(f.ctx, f.agent, &models.CreateAgentRequest{Name: "Agent Three", Email: "three@example.com", Password: "secret1"})
	assertKind(t, err, apperr.KindForbidden)

	agents, err := f.accounts.ListAgents(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, agents, 4)

	login, err := f.accounts.Login(f.ctx, models.RoleAgent, &models.LoginRequest{Email: "one@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "AGT0001", login.Account.AgentCode)
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)

	res, err := f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "cora@example.com", Role: "agent"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAgent, res.Data.Role)
	assert.Equal(t, f.customer.ID, res.Data.ID)
	assert.NotEmpty(t, res.Data.AgentCode)

	customers, err := f.repos.Accounts.For(models.RoleCustomer)
	require.NoError(t, err)
	_, err = customers.FindByID(f.ctx, f.customer.ID)
	require.Error(t, err)

	_, err = f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "cora@example.com", Role: "Agent"})
	assertKind(t, err, apperr.KindConflict)
	_, err = f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "cora@example.com", Role: "owner"})
	assertKind(t, err, apperr.KindValidation)
	_, err = f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "nobody@example.com", Role: "Agent"})
	assertKind(t, err, apperr.KindNotFound)
	_, err = f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "admin@example.com", Role: "Customer"})
	assertKind(t, err, apperr.KindForbidden)
}

func TestChangeRoleKeepsAssignedAgents(t *testing.T) {
	f := newFixture(t)
	f.product("HEALTH1", 500, 12, f.agent)

	_, err := f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "agent@example.com", Role: "Customer"})
	assertKind(t, err, apperr.KindConflict)
}

func TestChangeRoleKeepsAgentsWithOpenSubscriptions(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.purchase(product, "")
	_, err := f.catalog.UnassignAgent(f.ctx, f.admin, product.ID)
	require.NoError(t, err)

	_, err = f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "agent@example.com", Role: "Customer"})
	assertKind(t, err, apperr.KindConflict)
	agents, err := f.repos.Accounts.For(models.RoleAgent)
	require.NoError(t, err)
	_, err = agents.FindByID(f.ctx, f.agent.ID)
	require.NoError(t, err)

	_, err = f.subs.Reject(f.ctx, f.agent, up.ID)
	require.NoError(t, err)

	res, err := f.accounts.ChangeRole(f.ctx, f.admin, &models.ChangeRoleRequest{Email: "agent@example.com", Role: "Customer"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, res.Data.Role)
	assert.Empty(t, res.Data.AgentCode)

	stored, err := f.repos.Policies.FindByID(f.ctx, up.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedAgentID)
	assert.Equal(t, models.PolicyRejected, stored.Status)
}

func TestBootstrapAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.accounts.BootstrapAdmin(f.ctx, "Boot Admin", "boot@example.com", "secret1"))
	require.NoError(t, f.accounts.BootstrapAdmin(f.ctx, "Boot Admin", "boot@example.com", "secret1"))
	require.NoError(t, f.accounts.BootstrapAdmin(f.ctx, "", "", ""))

	admins, err := f.repos.Accounts.For(models.RoleAdmin)
	require.NoError(t, err)
	n, err := admins.Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCustomerOverviewAndReport(t *testing.T) {
	f := newFixture(t)
	product := f.product("HEALTH1", 500, 12, f.agent)
	up := f.approvedPolicy(product)
	f.purchase(product, "")
	_, err := f.payments.Pay(f.ctx, f.customer, &models.PayRequest{UserPolicyID: up.ID})
	require.NoError(t, err)
	f.raiseClaim(up)

	overview, err := f.accounts.CustomerOverview(f.ctx, f.admin, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "cora@example.com", overview.Customer.Email)
	assert.Len(t, overview.Policies, 2)
	assert.Len(t, overview.Payments, 1)
	assert.Len(t, overview.Claims, 1)

	_, err = f.accounts.CustomerOverview(f.ctx, f.admin, f.admin.ID)
	assertKind(t, err, apperr.KindNotFound)

	summary, err := f.reports.Summary(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Customers)
	assert.Equal(t, int64(2), summary.Agents)
	assert.Equal(t, int64(1), summary.PendingPolicies)
	assert.Equal(t, int64(1), summary.ApprovedPolicies)
	assert.Equal(t, int64(1), summary.PendingClaims)
	assert.Equal(t, int64(1), summary.Payments)
	assert.Equal(t, "500", summary.PaymentsTotal.String())

	_, err = f.reports.Summary(f.ctx, f.agent)
	assertKind(t, err, apperr.KindForbidden)
}
