package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "Pending"
	ClaimApproved ClaimStatus = "Approved"
	ClaimRejected ClaimStatus = "Rejected"
)

// Outcome reports whether s is a valid decision outcome.
func (s ClaimStatus) Outcome() bool {
	return s == ClaimApproved || s == ClaimRejected
}

// Claim is a payout request raised against a subscription.
type Claim struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           primitive.ObjectID  `bson:"userId" json:"userId"`
	UserPolicyID     primitive.ObjectID  `bson:"userPolicyId" json:"userPolicyId"`
	IncidentDate     time.Time           `bson:"incidentDate" json:"incidentDate"`
	Description      string              `bson:"description" json:"description"`
	AmountClaimed    decimal.Decimal     `bson:"amountClaimed" json:"amountClaimed"`
	Status           ClaimStatus         `bson:"status" json:"status"`
	DecisionNotes    string              `bson:"decisionNotes,omitempty" json:"decisionNotes,omitempty"`
	DecidedByAgentID *primitive.ObjectID `bson:"decidedByAgentId,omitempty" json:"decidedByAgentId,omitempty"`
	DecidedAt        *time.Time          `bson:"decidedAt,omitempty" json:"decidedAt,omitempty"`
	VerificationType VerificationType    `bson:"verificationType" json:"verificationType"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ClaimDecision is applied atomically to a Pending claim.
type ClaimDecision struct {
	Status           ClaimStatus
	DecisionNotes    string
	DecidedBy        primitive.ObjectID
	VerificationType VerificationType
	DecidedAt        time.Time
}

// ClaimPatch holds the editable claim fields; nil means unchanged.
type ClaimPatch struct {
	IncidentDate  *time.Time
	Description   *string
	AmountClaimed *decimal.Decimal
	DecisionNotes *string
}

func (p ClaimPatch) Empty() bool {
	return p.IncidentDate == nil && p.Description == nil && p.AmountClaimed == nil && p.DecisionNotes == nil
}

// RaiseClaimRequest is the customer payload for a new claim.
type RaiseClaimRequest struct {
	UserPolicyID  primitive.ObjectID `json:"userPolicyId"`
	IncidentDate  string             `json:"incidentDate"`
	Description   string             `json:"description"`
	AmountClaimed decimal.Decimal    `json:"amountClaimed"`
}

// DecideClaimRequest approves or rejects a claim. Status defaults to Approved.
type DecideClaimRequest struct {
	ClaimID       primitive.ObjectID `json:"claimId"`
	Status        ClaimStatus        `json:"status"`
	DecisionNotes string             `json:"decisionNotes"`
}

// UpdateClaimRequest edits claim details without touching its status.
type UpdateClaimRequest struct {
	IncidentDate  *string          `json:"incidentDate"`
	Description   *string          `json:"description"`
	AmountClaimed *decimal.Decimal `json:"amountClaimed"`
	DecisionNotes *string          `json:"decisionNotes"`
}

// ClaimView expands the claim's subscription and deciding agent.
type ClaimView struct {
	*Claim
	UserPolicy *UserPolicyView `json:"userPolicy,omitempty"`
	DecidedBy  *AccountSummary `json:"decidedBy,omitempty"`
}
