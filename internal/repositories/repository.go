package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup by key matches nothing.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateKey is returned when a unique index rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrPreconditionFailed is returned when a conditional update matched no
	// document: the record is missing or no longer in the expected state.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// Transactor runs fn as one atomic unit. Repositories called with the ctx
// handed to fn take part in the unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountRepository defines account storage for a single role
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Account, error)
	FindAll(ctx context.Context) ([]*models.Account, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// AccountDirectory resolves the account store of a role.
type AccountDirectory interface {
	For(role models.Role) (AccountRepository, error)
}

// RoleAccounts is an AccountDirectory backed by one repository per role.
type RoleAccounts map[models.Role]AccountRepository

func (m RoleAccounts) For(role models.Role) (AccountRepository, error) {
	repo, ok := m[role]
	if !ok {
		return nil, fmt.Errorf("no account store for role %q", role)
	}
	return repo, nil
}

// CounterRepository hands out monotonically increasing sequence values
type CounterRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// PolicyProductRepository defines catalog storage
type PolicyProductRepository interface {
	Create(ctx context.Context, product *models.PolicyProduct) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PolicyProduct, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.PolicyProduct, error)
	FindByCode(ctx context.Context, code string) (*models.PolicyProduct, error)
	FindByAgent(ctx context.Context, agentID primitive.ObjectID) ([]*models.PolicyProduct, error)
	FindAll(ctx context.Context) ([]*models.PolicyProduct, error)
	Update(ctx context.Context, product *models.PolicyProduct) error
	SetAgent(ctx context.Context, id primitive.ObjectID, agentID *primitive.ObjectID, agentName *string) (*models.PolicyProduct, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserPolicyRepository defines subscription storage. Every status change is
// conditional on the current status so concurrent transitions cannot both win.
type UserPolicyRepository interface {
	Create(ctx context.Context, policy *models.UserPolicy) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.UserPolicy, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.UserPolicy, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.UserPolicy, error)
	// FindAssigned returns subscriptions assigned to the agent directly or through one of productIDs.
	FindAssigned(ctx context.Context, agentID primitive.ObjectID, productIDs []primitive.ObjectID) ([]*models.UserPolicy, error)
	FindAll(ctx context.Context) ([]*models.UserPolicy, error)
	CountByProduct(ctx context.Context, productID primitive.ObjectID, statuses []models.PolicyStatus) (int64, error)
	CountByStatus(ctx context.Context, status models.PolicyStatus) (int64, error)
	// CountByAgent counts subscriptions assigned to the agent in any of the given statuses.
	CountByAgent(ctx context.Context, agentID primitive.ObjectID, statuses []models.PolicyStatus) (int64, error)
	// MaxInstallmentsByProduct returns the highest installmentsPaid among the product's subscriptions.
	MaxInstallmentsByProduct(ctx context.Context, productID primitive.ObjectID) (int, error)
	// ClearAgent removes the agent from every subscription assigned to it.
	ClearAgent(ctx context.Context, agentID primitive.ObjectID) (int64, error)
	// Transition applies d when the current status is one of from.
	Transition(ctx context.Context, id primitive.ObjectID, from []models.PolicyStatus, d models.PolicyDecision) (*models.UserPolicy, error)
	// ReserveInstallment atomically counts one more installment and adds amount to
	// premiumPaid, provided the policy is Approved and fewer than termMonths are paid.
	ReserveInstallment(ctx context.Context, id primitive.ObjectID, termMonths int, amount decimal.Decimal) (*models.UserPolicy, error)
	// ReleaseInstallment undoes one ReserveInstallment of amount.
	ReleaseInstallment(ctx context.Context, id primitive.ObjectID, amount decimal.Decimal) (*models.UserPolicy, error)
	// ExpireEnded moves Approved subscriptions whose endDate is before cutoff to Expired.
	ExpireEnded(ctx context.Context, cutoff time.Time) (int64, error)
}

// PaymentRepository defines installment storage. Payments are never updated.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Payment, error)
	FindByUserPolicies(ctx context.Context, ids []primitive.ObjectID) ([]*models.Payment, error)
	FindAll(ctx context.Context) ([]*models.Payment, error)
	CountByUserPolicy(ctx context.Context, userPolicyID primitive.ObjectID) (int64, error)
	Totals(ctx context.Context) (int64, decimal.Decimal, error)
}

// ClaimRepository defines claim storage
type ClaimRepository interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Claim, error)
	FindByUserPolicies(ctx context.Context, ids []primitive.ObjectID) ([]*models.Claim, error)
	FindAll(ctx context.Context) ([]*models.Claim, error)
	CountByStatus(ctx context.Context, status models.ClaimStatus) (int64, error)
	// Decide applies d to a Pending claim.
	Decide(ctx context.Context, id primitive.ObjectID, d models.ClaimDecision) (*models.Claim, error)
	// Patch edits claim fields; with pendingOnly it only matches Pending claims.
	Patch(ctx context.Context, id primitive.ObjectID, patch models.ClaimPatch, pendingOnly bool) (*models.Claim, error)
}

// AuditLogRepository is append-only
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	FindRecent(ctx context.Context, limit int) ([]*models.AuditLog, error)
}
