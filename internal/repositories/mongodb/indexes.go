package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"policyproducts": {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "assignedAgentId", Value: 1}}},
		},
		"userpolicies": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "policyProductId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "assignedAgentId", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "endDate", Value: 1}}},
		},
		"payments": {
			{Keys: bson.D{{Key: "userPolicyId", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"claims": {
			{Keys: bson.D{{Key: "userPolicyId", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"auditlogs": {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}
	for _, coll := range []string{CustomersCollection, AgentsCollection, AdminsCollection} {
		specs[coll] = []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		}
	}
	specs[AgentsCollection] = append(specs[AgentsCollection], mongo.IndexModel{
		Keys:    bson.D{{Key: "agentCode", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
