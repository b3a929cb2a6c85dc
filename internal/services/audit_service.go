package services

import (
	"context"
	"fmt"

	"github.com/ArowuTest/insurance-policy-backend/internal/access"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 200
)

// AuditService appends and lists audit entries
type AuditService interface {
	// Record writes entry after the business change has committed. A failure
	// never propagates; it is logged and returned as a warning message.
	Record(ctx context.Context, entry *models.AuditLog) string
	Recent(ctx context.Context, actor *models.Principal, limit int) ([]*models.AuditLog, error)
}

type auditService struct {
	repo repositories.AuditLogRepository
	log  *logger.Logger
}

func NewAuditService(repo repositories.AuditLogRepository, log *logger.Logger) AuditService {
	return &auditService{repo: repo, log: log}
}

func (s *auditService) Record(ctx context.Context, entry *models.AuditLog) string {
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn("audit write failed", "action", entry.Action, "subject", entry.UserID.Hex(), "error", err)
		return "audit entry " + entry.Action + " could not be recorded"
	}
	return ""
}

func (s *auditService) Recent(ctx context.Context, actor *models.Principal, limit int) ([]*models.AuditLog, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	entries, err := s.repo.FindRecent(ctx, limit)
	if err != nil {
		return nil, storeErr(err, "list audit logs", "audit log")
	}
	return entries, nil
}

// auditEntry builds an entry for an action taken by actor on subject.
func auditEntry(action string, actor *models.Principal, subject primitive.ObjectID, format string, args ...interface{}) *models.AuditLog {
	return &models.AuditLog{
		Action:    action,
		UserID:    subject,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Details:   fmt.Sprintf(format, args...),
	}
}
