package distlock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/deliverability/internal/pkg/distlock"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	a := distlock.NewRedisLock(client, "job", time.Minute)
	b := distlock.NewRedisLock(client, "job", time.Minute)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	require.NoError(t, a.Release(ctx))

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "released lock is acquirable")
}

func TestRedisLockReleaseIsOwnershipChecked(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	a := distlock.NewRedisLock(client, "job", time.Minute)
	b := distlock.NewRedisLock(client, "job", time.Minute)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// b never acquired; releasing must not free a's lock.
	require.NoError(t, b.Release(ctx))

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewPrefersRedis(t *testing.T) {
	client := newRedis(t)
	l := distlock.New(client, nil, "job", time.Minute)
	_, isRedis := l.(*distlock.RedisLock)
	assert.True(t, isRedis)

	l = distlock.New(nil, nil, "job", time.Minute)
	_, isAdvisory := l.(*distlock.AdvisoryLock)
	assert.True(t, isAdvisory)
}
