package memory

import (
	"context"
	"sort"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.AuditLogRepository = (*AuditLogRepository)(nil)

type AuditLogRepository struct {
	s *Store
}

func (s *Store) AuditLogs() *AuditLogRepository {
	return &AuditLogRepository{s: s}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.s.write(ctx, func() error {
		entry.ID = primitive.NewObjectID()
		if entry.Timestamp.IsZero() {
			entry.Timestamp = now()
		}
		r.s.audit = append(r.s.audit, *entry)
		return nil
	})
}

func (r *AuditLogRepository) FindRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	out := []*models.AuditLog{}
	r.s.read(func() {
		for i := len(r.s.audit) - 1; i >= 0; i-- {
			entry := r.s.audit[i]
			out = append(out, &entry)
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
