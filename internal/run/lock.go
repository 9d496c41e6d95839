package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by TryLock when the key is already locked.
var ErrLockHeld = errors.New("lock held")

// Lock is a held run lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker acquires process-scoped run locks without blocking.
type Locker interface {
	TryLock(ctx context.Context, key string) (Lock, error)
}

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// TryLock takes key or returns ErrLockHeld.
func (l *LocalLocker) TryLock(_ context.Context, key string) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrLockHeld
	}
	l.held[key] = true
	return &localLock{owner: l, key: key}, nil
}

type localLock struct {
	owner *LocalLocker
	key   string
	once  sync.Once
}

func (l *localLock) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.held, l.key)
		l.owner.mu.Unlock()
	})
	return nil
}

// DefaultLockTTL bounds how long a Redis run lock survives a crashed holder.
const DefaultLockTTL = 5 * time.Minute

// RedisLocker takes run locks in Redis so instances sharing a database
// cannot run the same process at once.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLocker creates a RedisLocker over rdb. A non-positive ttl uses
// DefaultLockTTL.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, prefix: "consol:run:"}
}

// TryLock obtains key once, without retries.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (Lock, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}
	return redisLock{lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (l redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// MultiLocker takes every locker's lock in order, releasing the ones
// already taken if a later one fails.
type MultiLocker []Locker

// TryLock implements Locker.
func (m MultiLocker) TryLock(ctx context.Context, key string) (Lock, error) {
	held := make(multiLock, 0, len(m))
	for _, l := range m {
		lock, err := l.TryLock(ctx, key)
		if err != nil {
			_ = held.Release(ctx)
			return nil, err
		}
		held = append(held, lock)
	}
	return held, nil
}

type multiLock []Lock

func (m multiLock) Release(ctx context.Context) error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
