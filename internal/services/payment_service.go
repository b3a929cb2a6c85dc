package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ArowuTest/insurance-policy-backend/internal/access"
	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// PaymentService records premium installments
type PaymentService interface {
	Pay(ctx context.Context, actor *models.Principal, req *models.PayRequest) (*Result[*models.PaymentReceipt], error)
	History(ctx context.Context, actor *models.Principal) ([]*models.PaymentView, error)
	ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.PaymentView, error)
	ListAll(ctx context.Context, actor *models.Principal) ([]*models.PaymentView, error)
}

type paymentService struct {
	repos    Repositories
	locker   locks.Locker
	populate *Populator
	log      *logger.Logger
}

func NewPaymentService(repos Repositories, locker locks.Locker, log *logger.Logger) PaymentService {
	return &paymentService{repos: repos, locker: locker, populate: NewPopulator(repos), log: log}
}

// NewPaymentReference generates a sortable unique payment reference.
func NewPaymentReference() string {
	return "PAY_" + ulid.Make().String()
}

// Pay charges one installment of the product premium. The installment count
// and premiumPaid move together with the payment insert in one transaction.
// Without transactions a failed insert is compensated by releasing the installment.
func (s *paymentService) Pay(ctx context.Context, actor *models.Principal, req *models.PayRequest) (*Result[*models.PaymentReceipt], error) {
	if err := access.RequireRole(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	method := req.Method
	if method == "" {
		method = models.MethodSimulated
	}
	if !method.Valid() {
		return nil, apperr.Validation("unsupported payment method %q", req.Method)
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = NewPaymentReference()
	}

	release, err := lockRecord(ctx, s.locker, userPolicyLock, req.UserPolicyID)
	if err != nil {
		return nil, err
	}
	defer release()

	up, err := s.repos.Policies.FindByID(ctx, req.UserPolicyID)
	if err != nil {
		return nil, storeErr(err, "load subscription", "user policy")
	}
	if err := access.AuthorizeOwner(actor, access.ForPolicy(up)); err != nil {
		return nil, err
	}
	if up.Status != models.PolicyApproved {
		return nil, apperr.Conflict("payments require an Approved subscription, this one is %s", up.Status)
	}
	releaseProduct, err := lockRecord(ctx, s.locker, policyProductLock, up.PolicyProductID)
	if err != nil {
		return nil, err
	}
	defer releaseProduct()

	product, err := s.repos.Products.FindByID(ctx, up.PolicyProductID)
	if err != nil {
		return nil, storeErr(err, "load product", "policy product")
	}
	if up.InstallmentsPaid >= product.TermMonths {
		return nil, apperr.Conflict("all installments paid")
	}

	payment := &models.Payment{
		UserID:       actor.ID,
		UserPolicyID: up.ID,
		Amount:       product.Premium,
		Method:       method,
		Reference:    reference,
	}
	var (
		updated      *models.UserPolicy
		insertFailed bool
	)
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		insertFailed = false
		updated, err = s.repos.Policies.ReserveInstallment(ctx, up.ID, product.TermMonths, product.Premium)
		if errors.Is(err, repositories.ErrPreconditionFailed) {
			return apperr.Conflict("all installments paid")
		}
		if err != nil {
			return err
		}
		if err := s.repos.Payments.Create(ctx, payment); err != nil {
			insertFailed = true
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return apperr.Conflict("payment reference %s already used", reference)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if insertFailed {
			s.undoReservation(ctx, updated, product.Premium)
		}
		return nil, storeErr(err, "record payment", "payment")
	}

	s.log.Info("installment paid",
		"userPolicy", up.ID.Hex(),
		"installment", updated.InstallmentsPaid,
		"termMonths", product.TermMonths,
		"amount", product.Premium.String(),
		"reference", reference,
	)
	return result(&models.PaymentReceipt{
		Payment: payment,
		Meta: models.PaymentMeta{
			PaidCount:         updated.InstallmentsPaid,
			TermMonths:        product.TermMonths,
			Remaining:         product.TermMonths - updated.InstallmentsPaid,
			InstallmentAmount: product.Premium,
		},
	}), nil
}

// undoReservation reverts a reservation that survived its failed payment
// insert, which happens when the store runs without transactions. The caller
// holds the subscription lock, so an unchanged count means nothing rolled it back.
func (s *paymentService) undoReservation(ctx context.Context, reserved *models.UserPolicy, amount decimal.Decimal) {
	current, err := s.repos.Policies.FindByID(ctx, reserved.ID)
	if err != nil {
		s.log.Error("failed to reload subscription after payment insert error", "userPolicy", reserved.ID.Hex(), "error", err)
		return
	}
	if current.InstallmentsPaid != reserved.InstallmentsPaid {
		return
	}
	if _, err := s.repos.Policies.ReleaseInstallment(ctx, reserved.ID, amount); err != nil {
		s.log.Error("failed to release installment", "userPolicy", reserved.ID.Hex(), "error", err)
		return
	}
	s.log.Warn("released installment after payment insert error", "userPolicy", reserved.ID.Hex(), "installment", reserved.InstallmentsPaid)
}

func (s *paymentService) History(ctx context.Context, actor *models.Principal) ([]*models.PaymentView, error) {
	if err := access.RequireRole(actor, models.RoleCustomer); err != nil {
		return nil, err
	}
	list, err := s.repos.Payments.FindByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list payments")
	}
	return s.populate.Payments(ctx, list)
}

func (s *paymentService) ListAssigned(ctx context.Context, actor *models.Principal) ([]*models.PaymentView, error) {
	policies, err := assignedPolicies(ctx, s.repos, actor)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Payments.FindByUserPolicies(ctx, policyIDs(policies))
	if err != nil {
		return nil, apperr.Internal(err, "list payments")
	}
	return s.populate.Payments(ctx, list)
}

func (s *paymentService) ListAll(ctx context.Context, actor *models.Principal) ([]*models.PaymentView, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	list, err := s.repos.Payments.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list payments")
	}
	return s.populate.Payments(ctx, list)
}
