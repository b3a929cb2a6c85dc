package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit actions.
const (
	AuditPolicyApproved        = "POLICY_APPROVED"
	AuditPolicyRejected        = "POLICY_REJECTED"
	AuditPolicyRequestApproved = "POLICY_REQUEST_APPROVED"
	AuditPolicyRequestRejected = "POLICY_REQUEST_REJECTED"
	AuditClaimApproved         = "CLAIM_APPROVED"
	AuditClaimRejected         = "CLAIM_REJECTED"
	AuditProductCreated        = "PRODUCT_CREATED"
	AuditProductUpdated        = "PRODUCT_UPDATED"
	AuditProductDeleted        = "PRODUCT_DELETED"
	AuditProductAssigned       = "PRODUCT_AGENT_ASSIGNED"
	AuditProductUnassigned     = "PRODUCT_AGENT_UNASSIGNED"
	AuditAgentCreated          = "AGENT_CREATED"
	AuditRoleChanged           = "ACCOUNT_ROLE_CHANGED"
)

// AuditLog is an append-only record of a privileged action.
type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Action    string             `bson:"action" json:"action"`
	UserID    primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"` // subject of the action
	ActorID   primitive.ObjectID `bson:"actorId,omitempty" json:"actorId,omitempty"`
	ActorRole Role               `bson:"actorRole,omitempty" json:"actorRole,omitempty"`
	Details   string             `bson:"details,omitempty" json:"details,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
