package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
)

// Locker serializes the conflict check and the write for one table and
// day. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// SlotKey is the lock key for a table on the JST day of t.
func SlotKey(table string, t time.Time) string {
	return "slot:" + table + ":" + clock.DateOf(t).String()
}

// MutexLocker is an in-process keyed mutex.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMutexLocker returns an empty MutexLocker.
func NewMutexLocker() *MutexLocker { return &MutexLocker{locks: map[string]*keyLock{}} }

// Lock blocks until key is free or ctx is done.
func (m *MutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, kl, false)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { m.release(key, kl, true) }) }, nil
}

func (m *MutexLocker) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.ch
	}
	m.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}

// ErrLockTimeout is returned when a Redis lock could not be taken in time.
var ErrLockTimeout = errors.New("slot lock busy")

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker takes a lease with SET NX PX so that several server
// instances sharing a database also share the slot lock. The lease
// expires on its own if the holder dies.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker returns a RedisLocker. ttl bounds how long a crashed
// holder blocks the slot; wait bounds how long Lock retries.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait, retry: 50 * time.Millisecond}
}

// Lock retries until the lease is taken, wait elapses or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	full := key
	if l.prefix != "" {
		full = l.prefix + ":" + key
	}
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, "redis lock")
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
