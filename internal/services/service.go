package services

import (
	"context"
	"errors"

	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repositories bundles the stores the services read and write.
type Repositories struct {
	Tx        repositories.Transactor
	Accounts  repositories.AccountDirectory
	Counters  repositories.CounterRepository
	Products  repositories.PolicyProductRepository
	Policies  repositories.UserPolicyRepository
	Payments  repositories.PaymentRepository
	Claims    repositories.ClaimRepository
	AuditLogs repositories.AuditLogRepository
}

// Result is the outcome of a mutation: the populated entity plus any
// non-fatal warnings (for example a failed audit write).
type Result[T any] struct {
	Data     T
	Warnings []string
}

func result[T any](data T, warnings ...string) *Result[T] {
	r := &Result[T]{Data: data, Warnings: []string{}}
	for _, w := range warnings {
		if w != "" {
			r.Warnings = append(r.Warnings, w)
		}
	}
	return r
}

// storeErr translates repository failures into typed errors.
func storeErr(err error, op, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, repositories.ErrDuplicateKey):
		return apperr.Conflict("%s already exists", what)
	}
	var typed *apperr.Error
	if errors.As(err, &typed) {
		return err
	}
	return apperr.Internal(err, op)
}

// lockRecord serializes mutations of one record.
func lockRecord(ctx context.Context, locker locks.Locker, kind string, id primitive.ObjectID) (locks.Release, error) {
	release, err := locker.Acquire(ctx, locks.Key(kind, id.Hex()))
	if errors.Is(err, locks.ErrTimeout) {
		return nil, apperr.Conflict("%s is being modified, retry shortly", kind)
	}
	if err != nil {
		return nil, apperr.Internal(err, "lock "+kind)
	}
	return release, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
