package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T) (InflightGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisInflightGuard(rdb, 30*time.Second), mr
}

func TestGuardAdmitReleaseCycle(t *testing.T) {
	redisGuard, _ := newRedisGuard(t)
	guards := map[string]InflightGuard{
		"memory": NewMemoryInflightGuard(),
		"redis":  redisGuard,
	}
	for name, guard := range guards {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := InflightKey(1, "hello")

			ok, err := guard.Admit(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = guard.Admit(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, "second admit without release must be rejected")

			other, err := guard.Admit(ctx, InflightKey(2, "hello"))
			require.NoError(t, err)
			assert.True(t, other, "keys are scoped per conversation")

			guard.Release(ctx, key)
			ok, err = guard.Admit(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestAcquireReleasesOnPanic(t *testing.T) {
	guard := NewMemoryInflightGuard()
	key := InflightKey(1, "boom")

	func() {
		defer func() { _ = recover() }()
		release, admitted, err := Acquire(context.Background(), guard, key)
		require.NoError(t, err)
		require.True(t, admitted)
		defer release()
		panic("handler blew up")
	}()

	assert.Zero(t, guard.(*memoryInflightGuard).Len())
}

func TestAcquireRejectedReturnsNoopRelease(t *testing.T) {
	guard := NewMemoryInflightGuard()
	key := InflightKey(3, "dup")

	release, admitted, err := Acquire(context.Background(), guard, key)
	require.NoError(t, err)
	require.True(t, admitted)

	rejectRelease, admitted, err := Acquire(context.Background(), guard, key)
	require.NoError(t, err)
	assert.False(t, admitted)
	// 被拒绝者的 release 不能释放别人持有的 key
	rejectRelease()
	assert.Equal(t, 1, guard.(*memoryInflightGuard).Len())

	release()
	release()
	assert.Zero(t, guard.(*memoryInflightGuard).Len())
}

func TestMemoryGuardConcurrentAdmit(t *testing.T) {
	guard := NewMemoryInflightGuard()
	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := guard.Admit(context.Background(), "same"); ok {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted)
}

func TestRedisGuardKeyExpires(t *testing.T) {
	guard, mr := newRedisGuard(t)
	ctx := context.Background()
	key := InflightKey(1, "crashed holder")

	ok, err := guard.Admit(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(redisKey(key)))

	mr.FastForward(31 * time.Second)
	ok, err = guard.Admit(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuardUnavailable(t *testing.T) {
	guard, mr := newRedisGuard(t)
	mr.Close()

	_, err := guard.Admit(context.Background(), "k")
	assert.Error(t, err)
}
