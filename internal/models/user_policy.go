package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PolicyStatus is the lifecycle state of a UserPolicy.
type PolicyStatus string

const (
	PolicyPending   PolicyStatus = "Pending"
	PolicyApproved  PolicyStatus = "Approved"
	PolicyRejected  PolicyStatus = "Rejected"
	PolicyCancelled PolicyStatus = "Cancelled"
	PolicyExpired   PolicyStatus = "Expired"
	PolicyClaimed   PolicyStatus = "Claimed"
)

// Terminal reports whether no further transition may leave this status.
func (s PolicyStatus) Terminal() bool {
	switch s {
	case PolicyRejected, PolicyCancelled, PolicyExpired, PolicyClaimed:
		return true
	}
	return false
}

// Active statuses block deletion of the referenced product.
var ActivePolicyStatuses = []PolicyStatus{PolicyPending, PolicyApproved}

// ClaimablePolicyStatuses may be moved to Claimed by an approved claim.
var ClaimablePolicyStatuses = []PolicyStatus{PolicyApproved, PolicyExpired, PolicyClaimed}

// VerificationType records whether a decision was taken by an agent or an admin.
type VerificationType string

const (
	VerificationAgent VerificationType = "Agent"
	VerificationAdmin VerificationType = "Admin"
	VerificationNone  VerificationType = "None"
)

var NomineeRelations = []string{"Spouse", "Parent", "Child", "Sibling", "Relative", "Friend", "Other"}

type Nominee struct {
	Name     string `bson:"name" json:"name"`
	Relation string `bson:"relation" json:"relation"`
}

// UserPolicy is a customer's subscription to a PolicyProduct.
type UserPolicy struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           primitive.ObjectID  `bson:"userId" json:"userId"`
	PolicyProductID  primitive.ObjectID  `bson:"policyProductId" json:"policyProductId"`
	StartDate        time.Time           `bson:"startDate" json:"startDate"`
	EndDate          time.Time           `bson:"endDate" json:"endDate"`
	PremiumPaid      decimal.Decimal     `bson:"premiumPaid" json:"premiumPaid"`
	InstallmentsPaid int                 `bson:"installmentsPaid" json:"installmentsPaid"`
	Status           PolicyStatus        `bson:"status" json:"status"`
	VerificationType VerificationType    `bson:"verificationType" json:"verificationType"`
	AssignedAgentID  *primitive.ObjectID `bson:"assignedAgentId" json:"assignedAgentId"`
	Nominee          *Nominee            `bson:"nominee,omitempty" json:"nominee,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// PolicyDecision is the change applied by an approve/reject transition.
type PolicyDecision struct {
	Status           PolicyStatus
	VerificationType VerificationType
	// Term is set when the decision restarts coverage.
	Term *CoverageTerm
}

type CoverageTerm struct {
	StartDate time.Time
	EndDate   time.Time
}

// PurchaseRequest is the customer payload for buying a product.
// StartDate accepts YYYY-MM-DD or RFC 3339.
type PurchaseRequest struct {
	PolicyProductID primitive.ObjectID `json:"policyProductId"`
	StartDate       string             `json:"startDate"`
	Nominee         *Nominee           `json:"nominee"`
}

// PolicyIDRequest is the body of approve/reject/cancel endpoints.
type PolicyIDRequest struct {
	UserPolicyID primitive.ObjectID `json:"userPolicyId"`
}

// UserPolicyView is a subscription with related entities expanded for display.
type UserPolicyView struct {
	*UserPolicy
	Product       *PolicyProduct  `json:"policyProduct,omitempty"`
	AssignedAgent *AccountSummary `json:"assignedAgent,omitempty"`
}
