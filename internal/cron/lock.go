package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Minute

// Lock coordinates exclusive runs of one settlement job across the cron
// worker and HTTP triggers.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	// Extend pushes the expiry out by the lock TTL and reports whether this
	// run still owns the lock.
	Extend(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	TTL() time.Duration
}

// ownerStore is the owner-checked key store behind RedisLock.
type ownerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	ExtendIfOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
}

// LockFactory returns a fresh lock for the named job. Each run gets its own
// owner token so concurrent triggers never share one.
type LockFactory func(job string) (Lock, error)

type lockKeyer interface {
	ownerStore
	LockKey(name string) string
}

// RedisLocks builds per-job locks keyed in the client's namespace.
func RedisLocks(client lockKeyer, ttl time.Duration) LockFactory {
	return func(job string) (Lock, error) {
		if client == nil {
			return nil, errors.New("redis client required for lock")
		}
		return NewRedisLock(client, client.LockKey(job), ttl)
	}
}

// RedisLock implements Lock with SET NX PX and owner-checked scripts.
type RedisLock struct {
	client ownerStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client ownerStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLock) TTL() time.Duration { return l.ttl }

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

func (l *RedisLock) Extend(ctx context.Context) (bool, error) {
	if l.owner == "" {
		return false, nil
	}
	held, err := l.client.ExtendIfOwner(ctx, l.key, l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("extend lock: %w", err)
	}
	return held, nil
}

// Release frees the lock only if this run still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.client.ReleaseIfOwner(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}
