package services

import (
	"context"

	"github.com/ArowuTest/insurance-policy-backend/internal/access"
	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// ReportService computes admin dashboard counters
type ReportService interface {
	Summary(ctx context.Context, actor *models.Principal) (*models.ReportSummary, error)
}

type reportService struct {
	repos Repositories
}

func NewReportService(repos Repositories) ReportService {
	return &reportService{repos: repos}
}

func (s *reportService) Summary(ctx context.Context, actor *models.Principal) (*models.ReportSummary, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	customers, err := s.repos.Accounts.For(models.RoleCustomer)
	if err != nil {
		return nil, apperr.Internal(err, "resolve customers")
	}
	agents, err := s.repos.Accounts.For(models.RoleAgent)
	if err != nil {
		return nil, apperr.Internal(err, "resolve agents")
	}

	var out models.ReportSummary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Customers, err = customers.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Agents, err = agents.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingPolicies, err = s.repos.Policies.CountByStatus(ctx, models.PolicyPending)
		return err
	})
	g.Go(func() (err error) {
		out.ApprovedPolicies, err = s.repos.Policies.CountByStatus(ctx, models.PolicyApproved)
		return err
	})
	g.Go(func() (err error) {
		out.PendingClaims, err = s.repos.Claims.CountByStatus(ctx, models.ClaimPending)
		return err
	})
	g.Go(func() (err error) {
		out.ApprovedClaims, err = s.repos.Claims.CountByStatus(ctx, models.ClaimApproved)
		return err
	})
	g.Go(func() (err error) {
		out.Payments, out.PaymentsTotal, err = s.repos.Payments.Totals(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err, "build report")
	}
	return &out, nil
}
