package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/access"
	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const userPolicyLock = "user policy"

// SubscriptionService drives the UserPolicy lifecycle
type SubscriptionService interface {
	Purchase(ctx context.Context, actor *models.Principal, req *models.PurchaseRequest) (*Result[*models.UserPolicyView], error)
	Approve(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error)
	Reject(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error)
	// ApprovePolicyRequest approves and restarts coverage from today.
	ApprovePolicyRequest(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error)
	RejectPolicyRequest(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error)
	Cancel(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error)
	// ExpireDue moves Approved subscriptions whose last covered day is before now's day to Expired.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	Get(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*models.UserPolicyView, error)
	ListMine(ctx context.Context, actor *models.Principal) ([]*models.UserPolicyView, error)
	ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.UserPolicyView, error)
	ListAll(ctx context.Context, actor *models.Principal) ([]*models.UserPolicyView, error)
}

type subscriptionService struct {
	repos    Repositories
	locker   locks.Locker
	audit    AuditService
	populate *Populator
	log      *logger.Logger
	now      func() time.Time
}

func NewSubscriptionService(repos Repositories, locker locks.Locker, audit AuditService, log *logger.Logger) SubscriptionService {
	return &subscriptionService{
		repos:    repos,
		locker:   locker,
		audit:    audit,
		populate: NewPopulator(repos),
		log:      log,
		now:      time.Now,
	}
}

func (s *subscriptionService) Purchase(ctx context.Context, actor *models.Principal, req *models.PurchaseRequest) (*Result[*models.UserPolicyView], error) {
	if err := access.RequireRole(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	if req.PolicyProductID.IsZero() {
		return nil, apperr.Validation("policyProductId is required")
	}
	start := models.StartOfDay(s.now())
	if strings.TrimSpace(req.StartDate) != "" {
		parsed, err := models.ParseDate(req.StartDate)
		if err != nil {
			return nil, apperr.Validation("startDate: %v", err)
		}
		start = parsed
	}
	nominee, err := normalizeNominee(req.Nominee)
	if err != nil {
		return nil, err
	}

	// Held until the subscription exists so the product cannot be deleted or re-termed underneath it.
	release, err := lockRecord(ctx, s.locker, policyProductLock, req.PolicyProductID)
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.repos.Products.FindByID(ctx, req.PolicyProductID)
	if err != nil {
		return nil, storeErr(err, "load product", "policy product")
	}
	agentID, err := s.existingAgent(ctx, product.AssignedAgentID)
	if err != nil {
		return nil, err
	}

	term := models.NewCoverageTerm(start, product.TermMonths)
	up := &models.UserPolicy{
		UserID:           actor.ID,
		PolicyProductID:  product.ID,
		StartDate:        term.StartDate,
		EndDate:          term.EndDate,
		PremiumPaid:      decimal.Zero,
		Status:           models.PolicyPending,
		VerificationType: models.VerificationNone,
		AssignedAgentID:  agentID,
		Nominee:          nominee,
	}
	if err := s.repos.Policies.Create(ctx, up); err != nil {
		return nil, apperr.Internal(err, "create subscription")
	}

	s.log.Info("subscription purchased", "userPolicy", up.ID.Hex(), "product", product.Code, "customer", actor.ID.Hex())
	view, err := s.populate.Policy(ctx, up)
	if err != nil {
		return nil, err
	}
	return result(view), nil
}

// existingAgent drops an assignment whose agent no longer exists.
func (s *subscriptionService) existingAgent(ctx context.Context, id *primitive.ObjectID) (*primitive.ObjectID, error) {
	if id == nil {
		return nil, nil
	}
	agents, err := s.repos.Accounts.For(models.RoleAgent)
	if err != nil {
		return nil, apperr.Internal(err, "resolve agents")
	}
	if _, err := agents.FindByID(ctx, *id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.log.Warn("product references a missing agent", "agent", id.Hex())
			return nil, nil
		}
		return nil, apperr.Internal(err, "load agent")
	}
	agentID := *id
	return &agentID, nil
}

func normalizeNominee(n *models.Nominee) (*models.Nominee, error) {
	if n == nil || (strings.TrimSpace(n.Name) == "" && strings.TrimSpace(n.Relation) == "") {
		return nil, nil
	}
	out := &models.Nominee{Name: strings.TrimSpace(n.Name), Relation: strings.TrimSpace(n.Relation)}
	if out.Name == "" {
		return nil, apperr.Validation("nominee name is required")
	}
	for _, rel := range models.NomineeRelations {
		if strings.EqualFold(rel, out.Relation) {
			out.Relation = rel
			return out, nil
		}
	}
	return nil, apperr.Validation("nominee relation must be one of %s", strings.Join(models.NomineeRelations, ", "))
}

func (s *subscriptionService) Approve(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error) {
	return s.decide(ctx, actor, id, models.PolicyApproved, false)
}

func (s *subscriptionService) Reject(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error) {
	return s.decide(ctx, actor, id, models.PolicyRejected, false)
}

func (s *subscriptionService) ApprovePolicyRequest(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error) {
	return s.decide(ctx, actor, id, models.PolicyApproved, true)
}

func (s *subscriptionService) RejectPolicyRequest(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error) {
	return s.decide(ctx, actor, id, models.PolicyRejected, true)
}

// decide moves a Pending subscription to status. The conditional update means
// only one of several concurrent decisions can succeed.
func (s *subscriptionService) decide(ctx context.Context, actor *models.Principal, id primitive.ObjectID, status models.PolicyStatus, request bool) (*Result[*models.UserPolicyView], error) {
	release, err := lockRecord(ctx, s.locker, userPolicyLock, id)
	if err != nil {
		return nil, err
	}
	defer release()

	up, err := s.repos.Policies.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "load subscription", "user policy")
	}
	if err := access.AuthorizeReviewer(actor, access.ForPolicy(up)); err != nil {
		return nil, err
	}
	switch {
	case up.Status.Terminal():
		return nil, apperr.Conflict("user policy is already %s", up.Status)
	case up.Status != models.PolicyPending:
		return nil, apperr.Conflict("user policy is %s, only Pending subscriptions can be decided", up.Status)
	}

	decision := models.PolicyDecision{Status: status, VerificationType: actor.Role.VerificationType()}
	var product *models.PolicyProduct
	if request && status == models.PolicyApproved {
		product, err = s.repos.Products.FindByID(ctx, up.PolicyProductID)
		if err != nil {
			return nil, storeErr(err, "load product", "policy product")
		}
		term := models.NewCoverageTerm(models.StartOfDay(s.now()), product.TermMonths)
		decision.Term = &term
	}

	updated, err := s.repos.Policies.Transition(ctx, id, []models.PolicyStatus{models.PolicyPending}, decision)
	if errors.Is(err, repositories.ErrPreconditionFailed) {
		return nil, apperr.Conflict("user policy was decided concurrently")
	}
	if err != nil {
		return nil, apperr.Internal(err, "update subscription")
	}
	s.log.Info("subscription decided", "userPolicy", id.Hex(), "status", status, "actor", actor.String())

	warning := s.audit.Record(ctx, auditEntry(policyAuditAction(status, request), actor, up.UserID,
		"user policy %s %s by %s", id.Hex(), strings.ToLower(string(status)), actor.Role))
	view, err := s.populate.Policy(ctx, updated)
	if err != nil {
		return nil, err
	}
	return result(view, warning), nil
}

func policyAuditAction(status models.PolicyStatus, request bool) string {
	switch {
	case request && status == models.PolicyApproved:
		return models.AuditPolicyRequestApproved
	case request:
		return models.AuditPolicyRequestRejected
	case status == models.PolicyApproved:
		return models.AuditPolicyApproved
	default:
		return models.AuditPolicyRejected
	}
}

func (s *subscriptionService) Cancel(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.UserPolicyView], error) {
	if err := access.RequireRole(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	release, err := lockRecord(ctx, s.locker, userPolicyLock, id)
	if err != nil {
		return nil, err
	}
	defer release()

	up, err := s.repos.Policies.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "load subscription", "user policy")
	}
	if err := access.AuthorizeOwner(actor, access.ForPolicy(up)); err != nil {
		return nil, err
	}
	switch {
	case up.Status.Terminal():
		return nil, apperr.Conflict("user policy is already %s", up.Status)
	case up.Status != models.PolicyApproved:
		return nil, apperr.Conflict("only Approved subscriptions can be cancelled, this one is %s", up.Status)
	}

	updated, err := s.repos.Policies.Transition(ctx, id, []models.PolicyStatus{models.PolicyApproved}, models.PolicyDecision{Status: models.PolicyCancelled})
	if errors.Is(err, repositories.ErrPreconditionFailed) {
		return nil, apperr.Conflict("user policy changed concurrently")
	}
	if err != nil {
		return nil, apperr.Internal(err, "cancel subscription")
	}
	s.log.Info("subscription cancelled", "userPolicy", id.Hex(), "customer", actor.ID.Hex())

	view, err := s.populate.Policy(ctx, updated)
	if err != nil {
		return nil, err
	}
	return result(view), nil
}

func (s *subscriptionService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repos.Policies.ExpireEnded(ctx, models.StartOfDay(now))
	if err != nil {
		return 0, apperr.Internal(err, "expire subscriptions")
	}
	if n > 0 {
		s.log.Info("subscriptions expired", "count", n)
	}
	return n, nil
}

func (s *subscriptionService) Get(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*models.UserPolicyView, error) {
	up, err := s.repos.Policies.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "load subscription", "user policy")
	}
	if err := access.Authorize(actor, access.ForPolicy(up)); err != nil {
		return nil, err
	}
	return s.populate.Policy(ctx, up)
}

func (s *subscriptionService) ListMine(ctx context.Context, actor *models.Principal) ([]*models.UserPolicyView, error) {
	if err := access.RequireRole(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	list, err := s.repos.Policies.FindByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list subscriptions")
	}
	return s.populate.Policies(ctx, list)
}

// ListAssigned covers subscriptions assigned to the agent directly or through one of the agent's products.
func (s *subscriptionService) ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.UserPolicyView, error) {
	list, err := assignedPolicies(ctx, s.repos, actor)
	if err != nil {
		return nil, err
	}
	return s.populate.Policies(ctx, list)
}

func (s *subscriptionService) ListAll(ctx context.Context, actor *models.Principal) ([]*models.UserPolicyView, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	list, err := s.repos.Policies.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list subscriptions")
	}
	return s.populate.Policies(ctx, list)
}

// assignedPolicies resolves the agent's workload, shared by the payment and claim listings.
func assignedPolicies(ctx context.Context, repos Repositories, actor *models.Principal) ([]*models.UserPolicy, error) {
	if err := access.RequireRole(actor, models.RoleAgent); err != nil {
		return nil, err
	}
	products, err := repos.Products.FindByAgent(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list assigned products")
	}
	productIDs := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
	}
	list, err := repos.Policies.FindAssigned(ctx, actor.ID, productIDs)
	if err != nil {
		return nil, apperr.Internal(err, "list assigned subscriptions")
	}
	return list, nil
}

func policyIDs(list []*models.UserPolicy) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(list))
	for _, up := range list {
		ids = append(ids, up.ID)
	}
	return ids
}
