package models

import "github.com/shopspring/decimal"

// ReportSummary holds the admin dashboard counters.
type ReportSummary struct {
	Customers        int64           `json:"customers"`
	Agents           int64           `json:"agents"`
	PendingPolicies  int64           `json:"pendingPolicies"`
	ApprovedPolicies int64           `json:"approvedPolicies"`
	PendingClaims    int64           `json:"pendingClaims"`
	ApprovedClaims   int64           `json:"approvedClaims"`
	Payments         int64           `json:"payments"`
	PaymentsTotal    decimal.Decimal `json:"paymentsTotal"`
}
