package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PolicyProduct is a catalog offering customers can subscribe to.
type PolicyProduct struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Code              string              `bson:"code" json:"code"`
	Title             string              `bson:"title" json:"title"`
	Description       string              `bson:"description" json:"description"`
	Premium           decimal.Decimal     `bson:"premium" json:"premium"` // charged per installment
	TermMonths        int                 `bson:"termMonths" json:"termMonths"`
	MinSumInsured     decimal.Decimal     `bson:"minSumInsured" json:"minSumInsured"`
	MaxSumInsured     *decimal.Decimal    `bson:"maxSumInsured,omitempty" json:"maxSumInsured,omitempty"`
	AssignedAgentID   *primitive.ObjectID `bson:"assignedAgentId" json:"assignedAgentId"`
	AssignedAgentName *string             `bson:"assignedAgentName" json:"assignedAgentName"`
	CreatedAt         time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CreateProductRequest defines the payload for adding a catalog product
type CreateProductRequest struct {
	Code          string           `json:"code"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Premium       decimal.Decimal  `json:"premium"`
	TermMonths    int              `json:"termMonths"`
	MinSumInsured decimal.Decimal  `json:"minSumInsured"`
	MaxSumInsured *decimal.Decimal `json:"maxSumInsured"`
}

// UpdateProductRequest is a partial update; nil fields are left unchanged.
type UpdateProductRequest struct {
	Code          *string          `json:"code"`
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Premium       *decimal.Decimal `json:"premium"`
	TermMonths    *int             `json:"termMonths"`
	MinSumInsured *decimal.Decimal `json:"minSumInsured"`
	MaxSumInsured *decimal.Decimal `json:"maxSumInsured"`
}

// Empty reports whether the patch changes nothing.
func (r *UpdateProductRequest) Empty() bool {
	return r.Code == nil && r.Title == nil && r.Description == nil && r.Premium == nil &&
		r.TermMonths == nil && r.MinSumInsured == nil && r.MaxSumInsured == nil
}

// AssignAgentRequest links a product to the agent handling its subscriptions
type AssignAgentRequest struct {
	PolicyProductID primitive.ObjectID `json:"policyProductId"`
	AgentID         primitive.ObjectID `json:"agentId"`
}
