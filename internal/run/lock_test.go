package run

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExcludesSameKey(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	lock, err := l.TryLock(ctx, "p1")
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "p1")
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := l.TryLock(ctx, "p2")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))
	again, err := l.TryLock(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLockReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	first, err := l.TryLock(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, first.Release(ctx))

	second, err := l.TryLock(ctx, "p1")
	require.NoError(t, err)
	// a stale release must not free the new holder's lock
	require.NoError(t, first.Release(ctx))
	_, err = l.TryLock(ctx, "p1")
	assert.ErrorIs(t, err, ErrLockHeld)
	require.NoError(t, second.Release(ctx))
}

func TestMultiLockerReleasesOnPartialFailure(t *testing.T) {
	ctx := context.Background()
	a, b := NewLocalLocker(), NewLocalLocker()
	held, err := b.TryLock(ctx, "p1")
	require.NoError(t, err)

	m := MultiLocker{a, b}
	_, err = m.TryLock(ctx, "p1")
	require.ErrorIs(t, err, ErrLockHeld)

	// a's lock was handed back
	la, err := a.TryLock(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, la.Release(ctx))

	require.NoError(t, held.Release(ctx))
	lock, err := m.TryLock(ctx, "p1")
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
	_, err = a.TryLock(ctx, "p1")
	require.NoError(t, err)
}

func TestRedisLockerUnreachableIsNotLockHeld(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	l := NewRedisLocker(rdb, 0)
	assert.Equal(t, DefaultLockTTL, l.ttl)

	_, err := l.TryLock(context.Background(), "p1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLockHeld))
}
