// Package memory implements the repository interfaces in process memory.
// It backs the service tests and the memory storage driver.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

// Store holds every collection. Records are stored by value and copied on
// the way in and out, so callers never share memory with the store.
type Store struct {
	// txMu serializes writers; a transaction holds it for its whole duration.
	txMu sync.Mutex
	mu   sync.RWMutex

	accounts map[models.Role]map[primitive.ObjectID]models.Account
	counters map[string]int64
	products map[primitive.ObjectID]models.PolicyProduct
	policies map[primitive.ObjectID]models.UserPolicy
	payments map[primitive.ObjectID]models.Payment
	claims   map[primitive.ObjectID]models.Claim
	audit    []models.AuditLog
}

var _ repositories.Transactor = (*Store)(nil)

func NewStore() *Store {
	s := &Store{
		accounts: map[models.Role]map[primitive.ObjectID]models.Account{},
		counters: map[string]int64{},
		products: map[primitive.ObjectID]models.PolicyProduct{},
		policies: map[primitive.ObjectID]models.UserPolicy{},
		payments: map[primitive.ObjectID]models.Payment{},
		claims:   map[primitive.ObjectID]models.Claim{},
	}
	for _, role := range models.Roles {
		s.accounts[role] = map[primitive.ObjectID]models.Account{}
	}
	return s
}

type snapshot struct {
	accounts map[models.Role]map[primitive.ObjectID]models.Account
	counters map[string]int64
	products map[primitive.ObjectID]models.PolicyProduct
	policies map[primitive.ObjectID]models.UserPolicy
	payments map[primitive.ObjectID]models.Payment
	claims   map[primitive.ObjectID]models.Claim
	audit    []models.AuditLog
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := snapshot{
		accounts: map[models.Role]map[primitive.ObjectID]models.Account{},
		counters: cloneMap(s.counters),
		products: cloneMap(s.products),
		policies: cloneMap(s.policies),
		payments: cloneMap(s.payments),
		claims:   cloneMap(s.claims),
		audit:    append([]models.AuditLog(nil), s.audit...),
	}
	for role, m := range s.accounts {
		snap.accounts[role] = cloneMap(m)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.counters = snap.counters
	s.products = snap.products
	s.policies = snap.policies
	s.payments = snap.payments
	s.claims = snap.claims
	s.audit = snap.audit
}

// WithinTx runs fn with writers excluded; any error restores the state seen on entry.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// write runs fn under the write lock, joining the caller's transaction if any.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// collect copies the values accepted by keep, newest first.
func collect[V any](m map[primitive.ObjectID]V, created func(*V) time.Time, keep func(*V) bool) []*V {
	type entry struct {
		id primitive.ObjectID
		v  *V
	}
	entries := []entry{}
	for id, v := range m {
		v := v
		if keep == nil || keep(&v) {
			entries = append(entries, entry{id: id, v: &v})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := created(entries[i].v), created(entries[j].v)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].id.Hex() > entries[j].id.Hex()
	})
	out := make([]*V, len(entries))
	for i, e := range entries {
		out[i] = e.v
	}
	return out
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func now() time.Time {
	return time.Now().UTC()
}
