package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes abrir/cerrar per negocio so that two concurrent opens (or
// a close racing a close) cannot both succeed. Resumen never takes the lock.
type Locker interface {
	// Acquire returns a release func, or ErrLockHeld without blocking when
	// another caller already holds the negocio.
	Acquire(ctx context.Context, key string) (func(), error)
}

// ErrLockHeld means another request is currently operating this negocio's caja.
var ErrLockHeld = errors.New("lock already held")

// ─── Redis lock ──────────────────────────────────────────────────────────────
// SET NX PX with a per-acquisition token; release is a compare-and-delete so an
// expired lock taken over by someone else is never deleted by the old holder.

// unlockScript deletes the key only when it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLock(rdb *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisLock{rdb: rdb, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func() {
		// Best-effort: the TTL cleans up if the release never runs.
		_ = unlockScript.Run(context.Background(), l.rdb, []string{key}, token).Err()
	}
	return release, nil
}

// ─── Local lock ──────────────────────────────────────────────────────────────
// In-process equivalent for single-node deployments and tests.

type LocalLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]bool)}
}

func (l *LocalLock) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrLockHeld
	}
	l.held[key] = true
	release := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	return release, nil
}
