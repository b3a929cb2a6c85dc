package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.AuditLogRepository = (*AuditLogRepository)(nil)

// AuditLogRepository appends audit entries; it has no update or delete.
type AuditLogRepository struct {
	collection *mongo.Collection
}

func NewAuditLogRepository(db *mongo.Database) *AuditLogRepository {
	return &AuditLogRepository{collection: db.Collection("auditlogs")}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = primitive.NewObjectID()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// FindRecent returns the latest entries first
func (r *AuditLogRepository) FindRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))
	return findAll[models.AuditLog](ctx, r.collection, bson.M{}, opts)
}
