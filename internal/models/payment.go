package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentMethod string

const (
	MethodCard       PaymentMethod = "Card"
	MethodNetbanking PaymentMethod = "Netbanking"
	MethodOffline    PaymentMethod = "Offline"
	MethodUPI        PaymentMethod = "UPI"
	MethodSimulated  PaymentMethod = "Simulated"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodNetbanking, MethodOffline, MethodUPI, MethodSimulated:
		return true
	}
	return false
}

// Payment is one installment paid toward a UserPolicy. Immutable once stored.
type Payment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	UserPolicyID primitive.ObjectID `bson:"userPolicyId" json:"userPolicyId"`
	Amount       decimal.Decimal    `bson:"amount" json:"amount"`
	Method       PaymentMethod      `bson:"method" json:"method"`
	Reference    string             `bson:"reference" json:"reference"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// PayRequest carries only the method; the amount is always derived server side.
type PayRequest struct {
	UserPolicyID primitive.ObjectID `json:"userPolicyId"`
	Method       PaymentMethod      `json:"method"`
	Reference    string             `json:"reference"`
}

type PaymentMeta struct {
	PaidCount         int             `json:"paidCount"`
	TermMonths        int             `json:"termMonths"`
	Remaining         int             `json:"remaining"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
}

type PaymentReceipt struct {
	Payment *Payment    `json:"payment"`
	Meta    PaymentMeta `json:"meta"`
}

// PaymentView expands the subscription a payment belongs to.
type PaymentView struct {
	*Payment
	UserPolicy *UserPolicyView `json:"userPolicy,omitempty"`
}
