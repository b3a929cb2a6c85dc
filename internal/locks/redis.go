package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker takes locks with SET NX PX so several API instances serialize on
// the same record. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	rdb    *goredis.Client
	log    *logger.Logger
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisLocker(rdb *goredis.Client, log *logger.Logger, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		log:    log.With("service", "RedisLocker"),
		prefix: "lock:",
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	redisKey := l.prefix + key
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// The request context may already be done; release regardless.
					relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					if err := releaseScript.Run(relCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
						l.log.Warn("failed to release lock", "key", key, "error", err)
					}
				})
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
