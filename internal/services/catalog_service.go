package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ArowuTest/insurance-policy-backend/internal/access"
	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const policyProductLock = "policy product"

// CatalogService manages policy products
type CatalogService interface {
	Create(ctx context.Context, actor *models.Principal, req *models.CreateProductRequest) (*Result[*models.PolicyProduct], error)
	Update(ctx context.Context, actor *models.Principal, id primitive.ObjectID, req *models.UpdateProductRequest) (*Result[*models.PolicyProduct], error)
	AssignAgent(ctx context.Context, actor *models.Principal, productID, agentID primitive.ObjectID) (*Result[*models.PolicyProduct], error)
	UnassignAgent(ctx context.Context, actor *models.Principal, productID primitive.ObjectID) (*Result[*models.PolicyProduct], error)
	Delete(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.PolicyProduct], error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.PolicyProduct, error)
	List(ctx context.Context) ([]*models.PolicyProduct, error)
	// ListAssigned returns the products assigned to the acting agent.
	ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.PolicyProduct, error)
}

type catalogService struct {
	repos  Repositories
	locker locks.Locker
	audit  AuditService
	log    *logger.Logger
}

func NewCatalogService(repos Repositories, locker locks.Locker, audit AuditService, log *logger.Logger) CatalogService {
	return &catalogService{repos: repos, locker: locker, audit: audit, log: log}
}

// validateProduct checks the bounds of a complete product.
func validateProduct(p *models.PolicyProduct) error {
	if n := utf8.RuneCountInString(p.Code); n < 2 || n > 20 {
		return apperr.Validation("code must be between 2 and 20 characters")
	}
	if n := utf8.RuneCountInString(p.Title); n < 3 || n > 100 {
		return apperr.Validation("title must be between 3 and 100 characters")
	}
	if utf8.RuneCountInString(p.Description) > 500 {
		return apperr.Validation("description must be at most 500 characters")
	}
	if !p.Premium.IsPositive() {
		return apperr.Validation("premium must be greater than zero")
	}
	if p.TermMonths < 1 || p.TermMonths > 600 {
		return apperr.Validation("termMonths must be between 1 and 600")
	}
	if p.MinSumInsured.IsNegative() {
		return apperr.Validation("minSumInsured must not be negative")
	}
	if p.MaxSumInsured != nil && p.MaxSumInsured.LessThan(p.MinSumInsured) {
		return apperr.Validation("maxSumInsured must be greater than or equal to minSumInsured")
	}
	return nil
}

func (s *catalogService) ensureCodeFree(ctx context.Context, code string, self primitive.ObjectID) error {
	existing, err := s.repos.Products.FindByCode(ctx, code)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	case err != nil:
		return apperr.Internal(err, "check product code")
	case existing.ID != self:
		return apperr.Conflict("product code %s already exists", code)
	}
	return nil
}

func (s *catalogService) Create(ctx context.Context, actor *models.Principal, req *models.CreateProductRequest) (*Result[*models.PolicyProduct], error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	product := &models.PolicyProduct{
		Code:          strings.TrimSpace(req.Code),
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Premium:       req.Premium,
		TermMonths:    req.TermMonths,
		MinSumInsured: req.MinSumInsured,
		MaxSumInsured: req.MaxSumInsured,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, product.Code, primitive.NilObjectID); err != nil {
		return nil, err
	}
	if err := s.repos.Products.Create(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, apperr.Conflict("product code %s already exists", product.Code)
		}
		return nil, apperr.Internal(err, "create product")
	}

	s.log.Info("product created", "product", product.ID.Hex(), "code", product.Code)
	warning := s.audit.Record(ctx, auditEntry(models.AuditProductCreated, actor, actor.ID, "product %s created", product.Code))
	return result(product, warning), nil
}

func (s *catalogService) Update(ctx context.Context, actor *models.Principal, id primitive.ObjectID, req *models.UpdateProductRequest) (*Result[*models.PolicyProduct], error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, apperr.Validation("at least one field must be provided")
	}
	release, err := lockRecord(ctx, s.locker, policyProductLock, id)
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "load product", "policy product")
	}
	if err := s.ensurePaymentTermsKept(ctx, product, req); err != nil {
		return nil, err
	}

	if req.Code != nil {
		product.Code = strings.TrimSpace(*req.Code)
	}
	if req.Title != nil {
		product.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Premium != nil {
		product.Premium = *req.Premium
	}
	if req.TermMonths != nil {
		product.TermMonths = *req.TermMonths
	}
	if req.MinSumInsured != nil {
		product.MinSumInsured = *req.MinSumInsured
	}
	if req.MaxSumInsured != nil {
		maxSum := *req.MaxSumInsured
		product.MaxSumInsured = &maxSum
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if req.Code != nil {
		if err := s.ensureCodeFree(ctx, product.Code, product.ID); err != nil {
			return nil, err
		}
	}
	if err := s.repos.Products.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, apperr.Conflict("product code %s already exists", product.Code)
		}
		return nil, storeErr(err, "update product", "policy product")
	}

	warning := s.audit.Record(ctx, auditEntry(models.AuditProductUpdated, actor, actor.ID, "product %s updated", product.Code))
	return result(product, warning), nil
}

// ensurePaymentTermsKept rejects a term shorter than installments already paid
// and any premium change once an installment has been paid, so every
// subscription still satisfies installmentsPaid <= termMonths and
// premiumPaid == installmentsPaid * premium.
func (s *catalogService) ensurePaymentTermsKept(ctx context.Context, product *models.PolicyProduct, req *models.UpdateProductRequest) error {
	shorter := req.TermMonths != nil && *req.TermMonths < product.TermMonths
	repriced := req.Premium != nil && !req.Premium.Equal(product.Premium)
	if !shorter && !repriced {
		return nil
	}
	paid, err := s.repos.Policies.MaxInstallmentsByProduct(ctx, product.ID)
	if err != nil {
		return apperr.Internal(err, "count paid installments")
	}
	if shorter && *req.TermMonths < paid {
		return apperr.Conflict("product %s has a subscription with %d installments paid, termMonths cannot drop to %d", product.Code, paid, *req.TermMonths)
	}
	if repriced && paid > 0 {
		return apperr.Conflict("product %s has paid installments, its premium cannot change", product.Code)
	}
	return nil
}

func (s *catalogService) AssignAgent(ctx context.Context, actor *models.Principal, productID, agentID primitive.ObjectID) (*Result[*models.PolicyProduct], error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	agents, err := s.repos.Accounts.For(models.RoleAgent)
	if err != nil {
		return nil, apperr.Internal(err, "resolve agents")
	}
	agent, err := agents.FindByID(ctx, agentID)
	if err != nil {
		return nil, storeErr(err, "load agent", "agent")
	}
	name := agent.Name
	product, err := s.repos.Products.SetAgent(ctx, productID, &agent.ID, &name)
	if err != nil {
		return nil, storeErr(err, "assign agent", "policy product")
	}

	s.log.Info("agent assigned to product", "product", product.ID.Hex(), "agent", agent.ID.Hex())
	warning := s.audit.Record(ctx, auditEntry(models.AuditProductAssigned, actor, agent.ID,
		"product %s assigned to agent %s", product.Code, agent.AgentCode))
	return result(product, warning), nil
}

func (s *catalogService) UnassignAgent(ctx context.Context, actor *models.Principal, productID primitive.ObjectID) (*Result[*models.PolicyProduct], error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	product, err := s.repos.Products.SetAgent(ctx, productID, nil, nil)
	if err != nil {
		return nil, storeErr(err, "unassign agent", "policy product")
	}
	warning := s.audit.Record(ctx, auditEntry(models.AuditProductUnassigned, actor, actor.ID, "product %s unassigned", product.Code))
	return result(product, warning), nil
}

// Delete removes a product that no Pending or Approved subscription references.
func (s *catalogService) Delete(ctx context.Context, actor *models.Principal, id primitive.ObjectID) (*Result[*models.PolicyProduct], error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	release, err := lockRecord(ctx, s.locker, policyProductLock, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var product *models.PolicyProduct
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if product, err = s.repos.Products.FindByID(ctx, id); err != nil {
			return err
		}
		active, err := s.repos.Policies.CountByProduct(ctx, id, models.ActivePolicyStatuses)
		if err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("product %s has %d active subscriptions", product.Code, active)
		}
		return s.repos.Products.Delete(ctx, id)
	})
	if err != nil {
		return nil, storeErr(err, "delete product", "policy product")
	}

	s.log.Info("product deleted", "product", id.Hex(), "code", product.Code)
	warning := s.audit.Record(ctx, auditEntry(models.AuditProductDeleted, actor, actor.ID, "product %s deleted", product.Code))
	return result(product, warning), nil
}

func (s *catalogService) Get(ctx context.Context, id primitive.ObjectID) (*models.PolicyProduct, error) {
	product, err := s.repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "load product", "policy product")
	}
	return product, nil
}

func (s *catalogService) List(ctx context.Context) ([]*models.PolicyProduct, error) {
	products, err := s.repos.Products.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list products")
	}
	return products, nil
}

func (s *catalogService) ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.PolicyProduct, error) {
	if err := access.RequireRole(actor, models.RoleAgent); err != nil {
		return nil, err
	}
	products, err := s.repos.Products.FindByAgent(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list assigned products")
	}
	return products, nil
}

