package orderlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 2 * time.Minute
	lockScope  = "order"
)

// ErrHeld is returned when another workflow already owns the order.
var ErrHeld = errors.New("order lock is held by another workflow")

// ReleaseFunc gives the lock back. It is safe to call more than once.
type ReleaseFunc func(ctx context.Context) error

// Locker grants at most one in-flight workflow per order id.
type Locker interface {
	Acquire(ctx context.Context, orderID string) (ReleaseFunc, error)
}

// MemoryLocker is a process-local try-lock keyed by order id.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

// Acquire never blocks: a held order returns ErrHeld immediately.
func (l *MemoryLocker) Acquire(_ context.Context, orderID string) (ReleaseFunc, error) {
	key := strings.TrimSpace(orderID)
	if key == "" {
		return nil, errors.New("order id is required for lock")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// redisStore is the subset of pkg/redis.Client used by RedisLocker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

// RedisLocker shares order locks across processes with SETNX + TTL.
type RedisLocker struct {
	client redisStore
	ttl    time.Duration
}

func NewRedisLocker(client redisStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for order lock")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

// Acquire claims the order key with a fresh owner token. The TTL bounds how
// long a crashed holder can block the order.
func (l *RedisLocker) Acquire(ctx context.Context, orderID string) (ReleaseFunc, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, errors.New("order id is required for lock")
	}
	key := l.client.LockKey(lockScope, id)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var (
		once       sync.Once
		releaseErr error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			releaseErr = l.release(ctx, key, owner)
		})
		return releaseErr
	}, nil
}

func (l *RedisLocker) release(ctx context.Context, key, owner string) error {
	value, err := l.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := l.client.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
