package memory

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.AccountRepository = (*AccountRepository)(nil)
	_ repositories.CounterRepository = (*CounterRepository)(nil)
)

// AccountRepository stores the accounts of one role
type AccountRepository struct {
	s    *Store
	role models.Role
}

// Accounts returns a directory with one repository per role
func (s *Store) Accounts() repositories.RoleAccounts {
	dir := repositories.RoleAccounts{}
	for _, role := range models.Roles {
		dir[role] = &AccountRepository{s: s, role: role}
	}
	return dir
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.s.write(ctx, func() error {
		account.Email = strings.ToLower(strings.TrimSpace(account.Email))
		for _, existing := range r.s.accounts[r.role] {
			if existing.Email == account.Email {
				return repositories.ErrDuplicateKey
			}
			if account.AgentCode != "" && existing.AgentCode == account.AgentCode {
				return repositories.ErrDuplicateKey
			}
		}
		if account.ID.IsZero() {
			account.ID = primitive.NewObjectID()
		}
		if _, ok := r.s.accounts[r.role][account.ID]; ok {
			return repositories.ErrDuplicateKey
		}
		t := now()
		if account.CreatedAt.IsZero() {
			account.CreatedAt = t
		}
		account.UpdatedAt = t
		r.s.accounts[r.role][account.ID] = *account
		return nil
	})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var found *models.Account
	r.s.read(func() {
		for _, a := range r.s.accounts[r.role] {
			if a.Email == email {
				a := a
				found = &a
				return
			}
		}
	})
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var (
		a  models.Account
		ok bool
	)
	r.s.read(func() { a, ok = r.s.accounts[r.role][id] })
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (r *AccountRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Account, error) {
	set := idSet(ids)
	var out []*models.Account
	r.s.read(func() {
		out = collect(r.s.accounts[r.role], accountCreated, func(a *models.Account) bool { return set[a.ID] })
	})
	return out, nil
}

func (r *AccountRepository) FindAll(ctx context.Context) ([]*models.Account, error) {
	var out []*models.Account
	r.s.read(func() { out = collect(r.s.accounts[r.role], accountCreated, nil) })
	return out, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.accounts[r.role][id]; !ok {
			return repositories.ErrNotFound
		}
		delete(r.s.accounts[r.role], id)
		return nil
	})
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int
	r.s.read(func() { n = len(r.s.accounts[r.role]) })
	return int64(n), nil
}

func accountCreated(a *models.Account) time.Time { return a.CreatedAt }

// CounterRepository hands out named sequences
type CounterRepository struct {
	s *Store
}

func (s *Store) Counters() *CounterRepository {
	return &CounterRepository{s: s}
}

func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := r.s.write(ctx, func() error {
		r.s.counters[name]++
		seq = r.s.counters[name]
		return nil
	})
	return seq, err
}
