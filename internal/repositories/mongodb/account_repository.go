package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure AccountRepository implements the interface
var _ repositories.AccountRepository = (*AccountRepository)(nil)

// Collection names per role
const (
	CustomersCollection = "customers"
	AgentsCollection    = "agents"
	AdminsCollection    = "admins"
)

// AccountRepository handles MongoDB operations for one role's accounts
type AccountRepository struct {
	collection *mongo.Collection
}

// NewAccountRepository creates a repository over the given collection
func NewAccountRepository(db *mongo.Database, collection string) *AccountRepository {
	return &AccountRepository{collection: db.Collection(collection)}
}

// NewAccountDirectory wires one repository per role collection
func NewAccountDirectory(db *mongo.Database) repositories.RoleAccounts {
	return repositories.RoleAccounts{
		models.RoleCustomer: NewAccountRepository(db, CustomersCollection),
		models.RoleAgent:    NewAccountRepository(db, AgentsCollection),
		models.RoleAdmin:    NewAccountRepository(db, AdminsCollection),
	}
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, account)
	return mapErr(err)
}

// FindByEmail finds an account by email
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.collection.FindOne(ctx, filter).Decode(&account); err != nil {
		return nil, mapErr(err)
	}
	return &account, nil
}

// FindByID finds an account by ID
func (r *AccountRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var account models.Account
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&account); err != nil {
		return nil, mapErr(err)
	}
	return &account, nil
}

// FindByIDs loads several accounts at once; unknown ids are skipped
func (r *AccountRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Account, error) {
	if len(ids) == 0 {
		return []*models.Account{}, nil
	}
	return findAll[models.Account](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}})
}

// FindAll retrieves all accounts of the role
func (r *AccountRepository) FindAll(ctx context.Context) ([]*models.Account, error) {
	return findAll[models.Account](ctx, r.collection, bson.M{}, newestFirst())
}

// Delete deletes an account by ID
func (r *AccountRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Count counts all accounts of the role
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
