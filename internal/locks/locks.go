// Package locks serializes mutations of a single record.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock could not be taken within the wait budget.
var ErrTimeout = errors.New("timed out waiting for record lock")

// Release gives the lock back. It is safe to call once.
type Release func()

// Locker hands out exclusive, keyed locks.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Key builds a lock key for a record.
func Key(kind, id string) string {
	return kind + ":" + id
}

// LocalLocker is an in-process keyed mutex. Waiting is bounded by the wait timeout.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot), wait: wait}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.drop(key, s)
			})
		}, nil
	case <-waitCtx.Done():
		l.drop(key, s)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTimeout
	}
}

func (l *LocalLocker) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
