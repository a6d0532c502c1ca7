package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocations keeps revoked token ids in Redis.  Each key expires when
// the token itself would have, so the list never outgrows the set of live
// sessions.
type RedisRevocations struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisRevocations(rdb *redis.Client, prefix string) *RedisRevocations {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocations{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRevocations) key(jti string) string { return r.prefix + ":" + jti }

// Revoke blacklists jti until the given expiry.  Already expired tokens are
// ignored.
func (r *RedisRevocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, r.key(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked and has not yet expired.
func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, r.key(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryRevocations is the process-local fallback used when Redis is not
// reachable.  Revocations do not survive a restart and are not shared
// between replicas.
type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations builds an empty list.  A nil clock means time.Now.
func NewMemoryRevocations(now func() time.Time) *MemoryRevocations {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocations{entries: make(map[string]time.Time), now: now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !until.After(now) {
		return nil
	}
	m.entries[jti] = until
	m.sweep(now)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if !until.After(m.now()) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}

// Len returns the number of live entries.
func (m *MemoryRevocations) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep(m.now())
	return len(m.entries)
}

// sweep drops expired entries.  Callers hold mu.
func (m *MemoryRevocations) sweep(now time.Time) {
	for jti, until := range m.entries {
		if !until.After(now) {
			delete(m.entries, jti)
		}
	}
}
