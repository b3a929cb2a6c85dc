package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	l := NewLocalLocker(time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), Key("policy", "1"))
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.slots)
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocalLocker(50 * time.Millisecond)
	r1, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer r1()

	r2, err := l.Acquire(context.Background(), "b")
	require.NoError(t, err)
	r2()
}

func TestLocalLocker_Timeout(t *testing.T) {
	l := NewLocalLocker(20 * time.Millisecond)
	release, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "a")
	assert.ErrorIs(t, err, ErrTimeout)

	release()
	release() // second call is a no-op
	again, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)
	again()
}
