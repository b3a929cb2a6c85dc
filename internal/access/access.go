// Package access decides whether a principal may act on a resource.
package access

import (
	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resource describes who owns an entity and which agent handles it.
type Resource struct {
	Kind    string
	OwnerID primitive.ObjectID
	AgentID *primitive.ObjectID
}

// ForPolicy scopes a subscription.
func ForPolicy(up *models.UserPolicy) Resource {
	return Resource{Kind: "user policy", OwnerID: up.UserID, AgentID: up.AssignedAgentID}
}

// ForClaim scopes a claim; the agent comes from its subscription.
func ForClaim(c *models.Claim, parent *models.UserPolicy) Resource {
	r := Resource{Kind: "claim", OwnerID: c.UserID}
	if parent != nil {
		r.AgentID = parent.AssignedAgentID
	}
	return r
}

// Authorize applies the role rules:
// admins act on everything, agents on resources assigned to them,
// customers on resources they own.
func Authorize(p *models.Principal, r Resource) error {
	if p == nil || p.ID.IsZero() {
		return apperr.Unauthenticated("authentication required")
	}
	switch p.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleAgent:
		if r.AgentID != nil && *r.AgentID == p.ID {
			return nil
		}
		return apperr.Forbidden("%s is not assigned to this agent", r.Kind)
	case models.RoleCustomer:
		if r.OwnerID == p.ID {
			return nil
		}
		return apperr.Forbidden("%s does not belong to this customer", r.Kind)
	}
	return apperr.Forbidden("unknown role")
}

// AuthorizeReviewer is Authorize restricted to agents and admins.
func AuthorizeReviewer(p *models.Principal, r Resource) error {
	if err := RequireRole(p, models.RoleAgent, models.RoleAdmin); err != nil {
		return err
	}
	return Authorize(p, r)
}

// AuthorizeOwner only lets the owning customer through.
func AuthorizeOwner(p *models.Principal, r Resource) error {
	if err := RequireRole(p, models.RoleCustomer); err != nil {
		return err
	}
	return Authorize(p, r)
}

// RequireRole checks the principal's role against the allowed set.
func RequireRole(p *models.Principal, roles ...models.Role) error {
	if p == nil || p.ID.IsZero() {
		return apperr.Unauthenticated("authentication required")
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("role %s may not perform this operation", p.Role)
}
