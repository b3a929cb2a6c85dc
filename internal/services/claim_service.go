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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const claimLock = "claim"

// ClaimService drives the claim lifecycle
type ClaimService interface {
	Raise(ctx context.Context, actor *models.Principal, req *models.RaiseClaimRequest) (*Result[*models.ClaimView], error)
	// Decide approves or rejects a Pending claim. Approval also moves the
	// parent subscription to Claimed in the same transaction.
	Decide(ctx context.Context, actor *models.Principal, req *models.DecideClaimRequest) (*Result[*models.ClaimView], error)
	Update(ctx context.Context, actor *models.Principal, id primitive.ObjectID, req *models.UpdateClaimRequest) (*Result[*models.ClaimView], error)
	Get(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*models.ClaimView, error)
	ListMine(ctx context.Context, actor *models.Principal) ([]*models.ClaimView, error)
	ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.ClaimView, error)
	ListAll(ctx context.Context, actor *models.Principal) ([]*models.ClaimView, error)
}

type claimService struct {
	repos    Repositories
	locker   locks.Locker
	audit    AuditService
	populate *Populator
	log      *logger.Logger
	now      func() time.Time
}

func NewClaimService(repos Repositories, locker locks.Locker, audit AuditService, log *logger.Logger) ClaimService {
	return &claimService{
		repos:    repos,
		locker:   locker,
		audit:    audit,
		populate: NewPopulator(repos),
		log:      log,
		now:      time.Now,
	}
}

// incidentDate parses an incident date and rejects days after today.
func (s *claimService) incidentDate(raw string) (time.Time, error) {
	t, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperr.Validation("incidentDate: %v", err)
	}
	if models.StartOfDay(t).After(models.StartOfDay(s.now())) {
		return time.Time{}, apperr.Validation("incidentDate must not be in the future")
	}
	return t, nil
}

func (s *claimService) Raise(ctx context.Context, actor *models.Principal, req *models.RaiseClaimRequest) (*Result[*models.ClaimView], error) {
	if err := access.RequireRole(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, apperr.Validation("description is required")
	}
	if !req.AmountClaimed.IsPositive() {
		return nil, apperr.Validation("amountClaimed must be greater than zero")
	}
	incident, err := s.incidentDate(req.IncidentDate)
	if err != nil {
		return nil, err
	}

	up, err := s.repos.Policies.FindByID(ctx, req.UserPolicyID)
	if err != nil {
		return nil, storeErr(err, "load subscription", "user policy")
	}
	if err := access.AuthorizeOwner(actor, access.ForPolicy(up)); err != nil {
		return nil, err
	}
	if up.Status != models.PolicyApproved {
		return nil, apperr.Conflict("claims can only be raised on an Approved subscription, this one is %s", up.Status)
	}

	claim := &models.Claim{
		UserID:           actor.ID,
		UserPolicyID:     up.ID,
		IncidentDate:     incident,
		Description:      description,
		AmountClaimed:    req.AmountClaimed,
		Status:           models.ClaimPending,
		VerificationType: models.VerificationNone,
	}
	if err := s.repos.Claims.Create(ctx, claim); err != nil {
		return nil, apperr.Internal(err, "create claim")
	}
	s.log.Info("claim raised", "claim", claim.ID.Hex(), "userPolicy", up.ID.Hex(), "amount", claim.AmountClaimed.String())

	view, err := s.populate.Claim(ctx, claim)
	if err != nil {
		return nil, err
	}
	return result(view), nil
}

// loadClaim returns the claim and its parent subscription.
func (s *claimService) loadClaim(ctx context.Context, id primitive.ObjectID) (*models.Claim, *models.UserPolicy, error) {
	claim, err := s.repos.Claims.FindByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err, "load claim", "claim")
	}
	parent, err := s.repos.Policies.FindByID(ctx, claim.UserPolicyID)
	if err != nil {
		return nil, nil, storeErr(err, "load subscription", "user policy")
	}
	return claim, parent, nil
}

func (s *claimService) Decide(ctx context.Context, actor *models.Principal, req *models.DecideClaimRequest) (*Result[*models.ClaimView], error) {
	outcome := req.Status
	if outcome == "" {
		outcome = models.ClaimApproved
	}
	if !outcome.Outcome() {
		return nil, apperr.Validation("status must be Approved or Rejected")
	}

	release, err := lockRecord(ctx, s.locker, claimLock, req.ClaimID)
	if err != nil {
		return nil, err
	}
	defer release()

	claim, parent, err := s.loadClaim(ctx, req.ClaimID)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeReviewer(actor, access.ForClaim(claim, parent)); err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimPending {
		return nil, apperr.Conflict("claim has already been %s", strings.ToLower(string(claim.Status)))
	}

	releaseParent, err := lockRecord(ctx, s.locker, userPolicyLock, parent.ID)
	if err != nil {
		return nil, err
	}
	defer releaseParent()

	decision := models.ClaimDecision{
		Status:           outcome,
		DecisionNotes:    strings.TrimSpace(req.DecisionNotes),
		DecidedBy:        actor.ID,
		VerificationType: actor.Role.VerificationType(),
		DecidedAt:        s.now().UTC(),
	}
	var decided *models.Claim
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		decided, err = s.repos.Claims.Decide(ctx, claim.ID, decision)
		if errors.Is(err, repositories.ErrPreconditionFailed) {
			return apperr.Conflict("claim was decided concurrently")
		}
		if err != nil {
			return err
		}
		if outcome != models.ClaimApproved {
			return nil
		}
		_, err = s.repos.Policies.Transition(ctx, parent.ID, models.ClaimablePolicyStatuses,
			models.PolicyDecision{Status: models.PolicyClaimed})
		if errors.Is(err, repositories.ErrPreconditionFailed) {
			return apperr.Conflict("user policy cannot be marked Claimed from its current status")
		}
		return err
	})
	if err != nil {
		return nil, storeErr(err, "decide claim", "claim")
	}
	s.log.Info("claim decided", "claim", claim.ID.Hex(), "status", outcome, "actor", actor.String())

	action := models.AuditClaimRejected
	if outcome == models.ClaimApproved {
		action = models.AuditClaimApproved
	}
	warning := s.audit.Record(ctx, auditEntry(action, actor, claim.UserID,
		"claim %s on user policy %s %s", claim.ID.Hex(), parent.ID.Hex(), strings.ToLower(string(outcome))))

	view, err := s.populate.Claim(ctx, decided)
	if err != nil {
		return nil, err
	}
	return result(view, warning), nil
}

// Update edits claim details. Customers may only touch their own Pending
// claims and never the decision notes.
func (s *claimService) Update(ctx context.Context, actor *models.Principal, id primitive.ObjectID, req *models.UpdateClaimRequest) (*Result[*models.ClaimView], error) {
	release, err := lockRecord(ctx, s.locker, claimLock, id)
	if err != nil {
		return nil, err
	}
	defer release()

	claim, parent, err := s.loadClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, access.ForClaim(claim, parent)); err != nil {
		return nil, err
	}
	pendingOnly := actor.IsCustomer()
	if pendingOnly && req.DecisionNotes != nil {
		return nil, apperr.Forbidden("customers may not edit decision notes")
	}

	var patch models.ClaimPatch
	if req.IncidentDate != nil {
		incident, err := s.incidentDate(*req.IncidentDate)
		if err != nil {
			return nil, err
		}
		patch.IncidentDate = &incident
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, apperr.Validation("description must not be empty")
		}
		patch.Description = &description
	}
	if req.AmountClaimed != nil {
		if !req.AmountClaimed.IsPositive() {
			return nil, apperr.Validation("amountClaimed must be greater than zero")
		}
		amount := *req.AmountClaimed
		patch.AmountClaimed = &amount
	}
	if req.DecisionNotes != nil {
		notes := strings.TrimSpace(*req.DecisionNotes)
		patch.DecisionNotes = &notes
	}
	if patch.Empty() {
		return nil, apperr.Validation("at least one field must be provided")
	}
	if pendingOnly && claim.Status != models.ClaimPending {
		return nil, apperr.Conflict("claim has already been decided")
	}

	updated, err := s.repos.Claims.Patch(ctx, id, patch, pendingOnly)
	if errors.Is(err, repositories.ErrPreconditionFailed) {
		return nil, apperr.Conflict("claim has already been decided")
	}
	if err != nil {
		return nil, apperr.Internal(err, "update claim")
	}

	view, err := s.populate.Claim(ctx, updated)
	if err != nil {
		return nil, err
	}
	return result(view), nil
}

func (s *claimService) Get(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*models.ClaimView, error) {
	claim, parent, err := s.loadClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, access.ForClaim(claim, parent)); err != nil {
		return nil, err
	}
	return s.populate.Claim(ctx, claim)
}

func (s *claimService) ListMine(ctx context.Context, actor *models.Principal) ([]*models.ClaimView, error) {
	if err := access.RequireRole(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	list, err := s.repos.Claims.FindByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list claims")
	}
	return s.populate.Claims(ctx, list)
}

func (s *claimService) ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.ClaimView, error) {
	policies, err := assignedPolicies(ctx, s.repos, actor)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Claims.FindByUserPolicies(ctx, policyIDs(policies))
	if err != nil {
		return nil, apperr.Internal(err, "list claims")
	}
	return s.populate.Claims(ctx, list)
}

func (s *claimService) ListAll(ctx context.Context, actor *models.Principal) ([]*models.ClaimView, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	list, err := s.repos.Claims.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list claims")
	}
	return s.populate.Claims(ctx, list)
}
