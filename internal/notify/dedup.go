package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses duplicate reminder sends within a TTL window.
type Deduper interface {
	// AcquireOnce returns true the first time the scope/key pair is seen
	// within the window, false for duplicates.
	AcquireOnce(ctx context.Context, scope, key string) bool
	// Release frees an acquired key so the action can be re-issued. Callers
	// release when the side effect the key guards did not happen.
	Release(ctx context.Context, scope, key string)
}

// RedisDeduper is the production deduper backed by Redis SetNX.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) AcquireOnce(ctx context.Context, scope, key string) bool {
	redisKey := fmt.Sprintf("dedup:%s:%s", scope, key)

	ok, err := d.rdb.SetNX(ctx, redisKey, 1, d.ttl).Result()
	if err != nil {
		// When Redis is unavailable, do not block the reminder.
		return true
	}
	return ok
}

func (d *RedisDeduper) Release(ctx context.Context, scope, key string) {
	redisKey := fmt.Sprintf("dedup:%s:%s", scope, key)
	// Best effort. A failed delete leaves the key to expire with its TTL.
	_ = d.rdb.Del(ctx, redisKey).Err()
}

// MemoryDeduper is an in-process deduper for tests and single-node runs.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) AcquireOnce(ctx context.Context, scope, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := scope + ":" + key
	if _, ok := d.seen[k]; ok {
		return false
	}
	d.seen[k] = struct{}{}
	return true
}

func (d *MemoryDeduper) Release(ctx context.Context, scope, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, scope+":"+key)
}
