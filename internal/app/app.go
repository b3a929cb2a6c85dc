// Package app assembles storage and locking from configuration for the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/ArowuTest/insurance-policy-backend/internal/config"
	"github.com/ArowuTest/insurance-policy-backend/internal/locks"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/insurance-policy-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/insurance-policy-backend/internal/services"
	"github.com/ArowuTest/insurance-policy-backend/pkg/mongodb"
)

// Storage is the repository set together with the connection backing it.
type Storage struct {
	Repos services.Repositories
	close func(ctx context.Context) error
}

// Close releases the underlying connection, if any.
func (s *Storage) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStorage connects the configured backend and builds its repositories.
func OpenStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("using in-memory storage; data is lost on exit")
		store := memory.NewStore()
		return &Storage{Repos: services.Repositories{
			Tx:        store,
			Accounts:  store.Accounts(),
			Counters:  store.Counters(),
			Products:  store.Products(),
			Policies:  store.UserPolicies(),
			Payments:  store.Payments(),
			Claims:    store.Claims(),
			AuditLogs: store.AuditLogs(),
		}}, nil
	case "mongo":
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Transactions)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info("connected to MongoDB", "database", cfg.MongoDB.Database, "transactions", cfg.MongoDB.Transactions)
		if !cfg.MongoDB.Transactions {
			log.Warn("MongoDB transactions disabled, multi-document writes are not atomic; use only for local development")
		}
		return &Storage{
			Repos: services.Repositories{
				Tx:        client,
				Accounts:  mongorepo.NewAccountDirectory(db),
				Counters:  mongorepo.NewCounterRepository(db),
				Products:  mongorepo.NewPolicyProductRepository(db),
				Policies:  mongorepo.NewUserPolicyRepository(db),
				Payments:  mongorepo.NewPaymentRepository(db),
				Claims:    mongorepo.NewClaimRepository(db),
				AuditLogs: mongorepo.NewAuditLogRepository(db),
			},
			close: client.Disconnect,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// NewLocker builds the record locker. The returned close func is never nil.
func NewLocker(ctx context.Context, cfg *config.Config, log *logger.Logger) (locks.Locker, func() error, error) {
	if cfg.Locks.Driver != "redis" {
		return locks.NewLocalLocker(cfg.Locks.WaitTimeout), func() error { return nil }, nil
	}
	rdb, err := locks.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using redis record locks", "addr", cfg.Redis.Addr)
	return locks.NewRedisLocker(rdb, log, cfg.Locks.TTL, cfg.Locks.WaitTimeout), rdb.Close, nil
}
