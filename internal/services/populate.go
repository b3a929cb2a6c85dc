package services

import (
	"context"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Populator expands related entities for display. Lookups for different
// collections run concurrently.
type Populator struct {
	repos Repositories
}

func NewPopulator(repos Repositories) *Populator {
	return &Populator{repos: repos}
}

func (p *Populator) accounts(ctx context.Context, role models.Role, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Account, error) {
	out := map[primitive.ObjectID]*models.Account{}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	repo, err := p.repos.Accounts.For(role)
	if err != nil {
		return nil, err
	}
	list, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		out[a.ID] = a
	}
	return out, nil
}

// Policies attaches product and assigned agent to each subscription.
func (p *Populator) Policies(ctx context.Context, list []*models.UserPolicy) ([]*models.UserPolicyView, error) {
	var productIDs, agentIDs []primitive.ObjectID
	for _, up := range list {
		productIDs = append(productIDs, up.PolicyProductID)
		if up.AssignedAgentID != nil {
			agentIDs = append(agentIDs, *up.AssignedAgentID)
		}
	}

	products := map[primitive.ObjectID]*models.PolicyProduct{}
	var agents map[primitive.ObjectID]*models.Account
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids := uniqueIDs(productIDs)
		if len(ids) == 0 {
			return nil
		}
		found, err := p.repos.Products.FindByIDs(gctx, ids)
		if err != nil {
			return err
		}
		for _, prod := range found {
			products[prod.ID] = prod
		}
		return nil
	})
	g.Go(func() (err error) {
		agents, err = p.accounts(gctx, models.RoleAgent, agentIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err, "populate subscriptions")
	}

	views := make([]*models.UserPolicyView, 0, len(list))
	for _, up := range list {
		view := &models.UserPolicyView{UserPolicy: up, Product: products[up.PolicyProductID]}
		if up.AssignedAgentID != nil {
			view.AssignedAgent = agents[*up.AssignedAgentID].Summary()
		}
		views = append(views, view)
	}
	return views, nil
}

func (p *Populator) Policy(ctx context.Context, up *models.UserPolicy) (*models.UserPolicyView, error) {
	views, err := p.Policies(ctx, []*models.UserPolicy{up})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Claims attaches the populated subscription and the deciding reviewer.
func (p *Populator) Claims(ctx context.Context, list []*models.Claim) ([]*models.ClaimView, error) {
	var policyIDs, deciderIDs []primitive.ObjectID
	for _, c := range list {
		policyIDs = append(policyIDs, c.UserPolicyID)
		if c.DecidedByAgentID != nil {
			deciderIDs = append(deciderIDs, *c.DecidedByAgentID)
		}
	}

	var (
		policies       map[primitive.ObjectID]*models.UserPolicyView
		agents, admins map[primitive.ObjectID]*models.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		parents, err := p.repos.Policies.FindByIDs(gctx, uniqueIDs(policyIDs))
		if err != nil {
			return err
		}
		views, err := p.Policies(gctx, parents)
		if err != nil {
			return err
		}
		policies = make(map[primitive.ObjectID]*models.UserPolicyView, len(views))
		for _, v := range views {
			policies[v.ID] = v
		}
		return nil
	})
	g.Go(func() (err error) {
		agents, err = p.accounts(gctx, models.RoleAgent, deciderIDs)
		return err
	})
	g.Go(func() (err error) {
		admins, err = p.accounts(gctx, models.RoleAdmin, deciderIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err, "populate claims")
	}

	views := make([]*models.ClaimView, 0, len(list))
	for _, c := range list {
		view := &models.ClaimView{Claim: c, UserPolicy: policies[c.UserPolicyID]}
		if c.DecidedByAgentID != nil {
			decider := agents[*c.DecidedByAgentID]
			if decider == nil {
				decider = admins[*c.DecidedByAgentID]
			}
			view.DecidedBy = decider.Summary()
		}
		views = append(views, view)
	}
	return views, nil
}

func (p *Populator) Claim(ctx context.Context, c *models.Claim) (*models.ClaimView, error) {
	views, err := p.Claims(ctx, []*models.Claim{c})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Payments attaches the populated subscription to each payment.
func (p *Populator) Payments(ctx context.Context, list []*models.Payment) ([]*models.PaymentView, error) {
	var policyIDs []primitive.ObjectID
	for _, pay := range list {
		policyIDs = append(policyIDs, pay.UserPolicyID)
	}
	parents, err := p.repos.Policies.FindByIDs(ctx, uniqueIDs(policyIDs))
	if err != nil {
		return nil, apperr.Internal(err, "populate payments")
	}
	parentViews, err := p.Policies(ctx, parents)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.UserPolicyView, len(parentViews))
	for _, v := range parentViews {
		byID[v.ID] = v
	}

	views := make([]*models.PaymentView, 0, len(list))
	for _, pay := range list {
		views = append(views, &models.PaymentView{Payment: pay, UserPolicy: byID[pay.UserPolicyID]})
	}
	return views, nil
}
