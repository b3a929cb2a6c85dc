package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a login identity. Customers, agents and admins share the shape but
// live in separate collections selected by Role.
type Account struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash, never serialized
	Role      Role               `bson:"role" json:"role"`
	AgentCode string             `bson:"agentCode,omitempty" json:"agentCode,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Principal returns the acting identity for this account.
func (a *Account) Principal() *Principal {
	return &Principal{ID: a.ID, Role: a.Role}
}

// AccountSummary is the public view of an account embedded in populated responses.
type AccountSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	AgentCode string             `json:"agentCode,omitempty"`
}

func (a *Account) Summary() *AccountSummary {
	if a == nil {
		return nil
	}
	return &AccountSummary{ID: a.ID, Name: a.Name, Email: a.Email, AgentCode: a.AgentCode}
}

// Counter is a named monotonic sequence.
type Counter struct {
	Name string `bson:"_id" json:"name"`
	Seq  int64  `bson:"seq" json:"seq"`
}

const AgentCodeCounter = "agentCode"

// CustomerOverview is the admin view of one customer and their activity.
type CustomerOverview struct {
	Customer *AccountSummary   `json:"customer"`
	Policies []*UserPolicyView `json:"policies"`
	Payments []*Payment        `json:"payments"`
	Claims   []*Claim          `json:"claims"`
}
