package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role discriminates principals. Every role-dependent lookup switches on it.
type Role string

const (
	RoleCustomer Role = "Customer"
	RoleAgent    Role = "Agent"
	RoleAdmin    Role = "Admin"
)

// Roles lists all roles in a stable order.
var Roles = []Role{RoleCustomer, RoleAgent, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// ParseRole accepts any casing of a role name.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// VerificationType records which kind of reviewer made a decision.
func (r Role) VerificationType() VerificationType {
	switch r {
	case RoleAgent:
		return VerificationAgent
	case RoleAdmin:
		return VerificationAdmin
	}
	return VerificationNone
}

// Principal is the authenticated actor of an operation.
type Principal struct {
	ID   primitive.ObjectID `json:"id"`
	Role Role               `json:"role"`
}

func (p *Principal) IsCustomer() bool { return p != nil && p.Role == RoleCustomer }

func (p *Principal) String() string {
	if p == nil {
		return "anonymous"
	}
	return string(p.Role) + ":" + p.ID.Hex()
}
